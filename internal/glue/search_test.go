package glue

import (
	"context"
	gomath "math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Faultbox/modgrow/internal/mesh"
	"github.com/Faultbox/modgrow/internal/spatial"
	"github.com/Faultbox/modgrow/pkg/math"
)

const tol = 1e-9

func TestConfigurationsSingleCandidate(t *testing.T) {
	host := fakeHost{10: {pos: math.Vec3{X: 1, Y: 2, Z: 3}, normal: math.Vec3{Y: 1}, valence: 3, ring: 1}}
	poles := PoleMap{
		0: pole(math.Vec3{X: 5}, math.Vec3{X: 1, Z: 1}, 3),
	}
	s := &Searcher{Matcher: host.matcher()}

	configs := s.Configurations(poles, math.Vec3{X: 4, Y: 1})
	require.Len(t, configs, 16)

	seen := make(map[int]bool)
	for k, c := range configs {
		assert.Equal(t, k, c.Step)
		assert.InDelta(t, float64(k)*gomath.Pi/8, c.Angle, tol)
		assert.False(t, seen[c.Step])
		seen[c.Step] = true

		moved := c.Poles[0]
		assert.True(t, moved.Pos.ApproxEqual(math.Vec3{X: 1, Y: 2, Z: 3}, 1e-9), "step %d: %v", k, moved.Pos)
		assert.True(t, moved.Normal.ApproxEqual(math.Vec3{Y: -1}, 1e-9), "step %d: %v", k, moved.Normal)
	}

	// consecutive steps differ by pi/8 about the candidate normal
	point := math.Vec3{X: 9, Y: -4, Z: 2}
	a := configs[0].Transform.TransformPoint(point)
	b := configs[1].Transform.TransformPoint(point)
	want := math.RotateAbout(math.Vec3{Y: 1}, gomath.Pi/8, math.Vec3{X: 1, Y: 2, Z: 3}).TransformPoint(a)
	assert.True(t, b.ApproxEqual(want, 1e-9))
}

func TestConfigurationsCount(t *testing.T) {
	host := fakeHost{
		10: {pos: math.Vec3{}, normal: math.Vec3{Z: 1}, valence: 3},
		11: {pos: math.Vec3{X: 1}, normal: math.Vec3{Z: 1}, valence: 3},
		12: {pos: math.Vec3{Y: 1}, normal: math.Vec3{Z: 1}, valence: 3},
	}
	poles := PoleMap{
		0: pole(math.Vec3{}, math.Vec3{Z: 1}, 3),
		1: pole(math.Vec3{X: 1}, math.Vec3{X: 1}, 3),
	}

	s := &Searcher{Matcher: host.matcher()}
	assert.Len(t, s.Configurations(poles, math.Vec3{}), 3*2*16)

	s.RotationSteps = 4
	assert.Len(t, s.Configurations(poles, math.Vec3{}), 3*2*4)
}

func TestPoleMapRoundTrip(t *testing.T) {
	poles := PoleMap{
		0: pole(math.Vec3{X: 1, Y: -2, Z: 0.5}, math.Vec3{X: 1, Y: 1}, 3),
		7: pole(math.Vec3{Z: 4}, math.Vec3{Z: -1}, 5),
	}
	tr := math.Translate(3, -1, 2).Mul(math.RotateAxis(math.Vec3{X: 1, Y: 2, Z: 2}.Normalize(), 1.1))

	back := poles.Transform(tr).Transform(tr.RigidInverse())
	for id, pi := range poles {
		assert.True(t, back[id].Pos.ApproxEqual(pi.Pos, tol), "pos %d", id)
		assert.True(t, back[id].Normal.ApproxEqual(pi.Normal, tol), "normal %d", id)
		assert.Equal(t, pi.Valence, back[id].Valence)
	}
}

// boxAndTube merges a three sided tube, well away from a box host, and
// returns the mesh with the host and module vertex lists.
func boxAndTube(t *testing.T) (*mesh.Mesh, []mesh.VertexID, []mesh.VertexID) {
	t.Helper()
	m := mesh.Box(2, 2, 2)
	host := m.Vertices()

	tube, err := mesh.Tube(3, 1, 0.5, 1)
	require.NoError(t, err)
	tube.Transform(tube.Vertices(), math.Translate(5, 5, 5))
	remap := m.Merge(tube)
	return m, host, remap.Vertices(tube.Vertices())
}

func meshSearcher(t *testing.T, m *mesh.Mesh, host []mesh.VertexID) *Searcher {
	var pts []spatial.Point
	cands := make(Candidates)
	for _, v := range host {
		if m.IsPole(v) {
			pts = append(pts, spatial.Point{ID: v, Pos: m.Pos(v)})
			cands[v] = CandidateInfo{Labels: LabelAll}
		}
	}
	return &Searcher{
		Matcher: &Matcher{Host: m, Index: spatial.New(pts), Candidates: cands},
		Log:     zaptest.NewLogger(t),
	}
}

func TestSearchFindsGlueing(t *testing.T) {
	m, host, module := boxAndTube(t)
	s := meshSearcher(t, m, host)
	poles := ReadPoles(m, module, 1, LabelAll)
	require.Len(t, poles, 2)

	c, _ := m.BoundingSphere(module)
	best, err := s.Search(context.Background(), poles, c, 1)
	require.NoError(t, err)
	require.Len(t, best.Matches, 1)
	assert.Equal(t, 0.0, best.Cost.Dist)

	mt := best.Matches[0]
	assert.Contains(t, poles, mt.Module)
	assert.True(t, m.IsPole(mt.Host))
	assert.True(t, best.Poles[mt.Module].Pos.ApproxEqual(m.Pos(mt.Host), 1e-9))
}

func TestSearchPreconditions(t *testing.T) {
	m, host, module := boxAndTube(t)
	s := meshSearcher(t, m, host)
	poles := ReadPoles(m, module, 1, LabelAll)

	_, err := s.Search(context.Background(), poles, math.Vec3{}, 0)
	assert.True(t, errors.Is(err, ErrPrecondition))

	_, err = s.Search(context.Background(), poles, math.Vec3{}, 3)
	assert.True(t, errors.Is(err, ErrPrecondition))
}

func TestSearchExhausted(t *testing.T) {
	m, host, module := boxAndTube(t)
	s := meshSearcher(t, m, host)
	poles := ReadPoles(m, module, 1, LabelAll)

	// both caps never face the host at once
	_, err := s.Search(context.Background(), poles, math.Vec3{}, 2)
	assert.True(t, errors.Is(err, ErrNoGlueing))
	assert.Equal(t, KindExhausted, KindOf(err))
}

func TestSearchCancelled(t *testing.T) {
	m, host, module := boxAndTube(t)
	s := meshSearcher(t, m, host)
	poles := ReadPoles(m, module, 1, LabelAll)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Search(ctx, poles, math.Vec3{}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
