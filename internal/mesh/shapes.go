package mesh

import (
	gomath "math"

	"github.com/pkg/errors"

	"github.com/Faultbox/modgrow/pkg/math"
)

// boxFaces lists the corners of each box side; corner i sits at
// (i&1, i>>1&1, i>>2&1).
var boxFaces = [6][4]VertexID{
	{0, 2, 3, 1}, // -Z
	{4, 5, 7, 6}, // +Z
	{0, 1, 5, 4}, // -Y
	{2, 6, 7, 3}, // +Y
	{0, 4, 6, 2}, // -X
	{1, 3, 7, 5}, // +X
}

// Box builds an axis-aligned box centred at the origin. All eight corners
// are valence-3 poles.
func Box(sx, sy, sz float64) *Mesh {
	m := New()
	for i := 0; i < 8; i++ {
		m.AddVertex(math.Vec3{
			X: (float64(i&1) - 0.5) * sx,
			Y: (float64(i>>1&1) - 0.5) * sy,
			Z: (float64(i>>2&1) - 0.5) * sz,
		})
	}
	for _, f := range boxFaces {
		if _, err := m.AddFace(f[:]...); err != nil {
			panic(err) // fixed table
		}
	}
	return m
}

// Tube builds a closed prism along +Z from z=0 to z=length, with the given
// number of sides and segments along its length. Each cap is a fan around
// a centre pole of valence sides; every other vertex is regular.
func Tube(sides, segments int, radius, length float64) (*Mesh, error) {
	if sides < 3 || segments < 1 {
		return nil, errors.Errorf("tube: need at least 3 sides and 1 segment, got %d and %d", sides, segments)
	}
	if radius <= 0 || length <= 0 {
		return nil, errors.Errorf("tube: radius %g and length %g must be positive", radius, length)
	}

	m := New()
	rings := make([][]VertexID, segments+1)
	for r := range rings {
		z := length * float64(r) / float64(segments)
		rings[r] = make([]VertexID, sides)
		for i := 0; i < sides; i++ {
			a := 2 * gomath.Pi * float64(i) / float64(sides)
			rings[r][i] = m.AddVertex(math.Vec3{X: radius * gomath.Cos(a), Y: radius * gomath.Sin(a), Z: z})
		}
	}

	for r := 0; r < segments; r++ {
		lo, hi := rings[r], rings[r+1]
		for i := 0; i < sides; i++ {
			j := (i + 1) % sides
			if _, err := m.AddFace(lo[i], lo[j], hi[j], hi[i]); err != nil {
				return nil, errors.Wrap(err, "tube side")
			}
		}
	}

	bottom := make([]VertexID, sides)
	for i := range bottom {
		bottom[i] = rings[0][sides-1-i]
	}
	for _, ends := range [][]VertexID{bottom, rings[segments]} {
		f, err := m.AddFace(ends...)
		if err != nil {
			return nil, errors.Wrap(err, "tube cap")
		}
		if _, err := m.SplitFaceByVertex(f); err != nil {
			return nil, errors.Wrap(err, "tube cap")
		}
	}
	return m, nil
}
