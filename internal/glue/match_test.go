package glue

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/modgrow/internal/mesh"
	"github.com/Faultbox/modgrow/internal/spatial"
	"github.com/Faultbox/modgrow/pkg/math"
)

type fakeVertex struct {
	pos     math.Vec3
	normal  math.Vec3
	valence int
	ring    float64
}

// fakeHost is a Host made of free-standing vertices.
type fakeHost map[mesh.VertexID]fakeVertex

func (h fakeHost) Pos(v mesh.VertexID) math.Vec3        { return h[v].pos }
func (h fakeHost) UnitNormal(v mesh.VertexID) math.Vec3 { return h[v].normal.Normalize() }
func (h fakeHost) Valence(v mesh.VertexID) int          { return h[v].valence }
func (h fakeHost) MeanRingDistance(v mesh.VertexID) float64 {
	return h[v].ring
}

func (h fakeHost) matcher() *Matcher {
	var pts []spatial.Point
	cands := make(Candidates)
	for id, v := range h {
		pts = append(pts, spatial.Point{ID: id, Pos: v.pos})
		cands[id] = CandidateInfo{Labels: LabelAll}
	}
	return &Matcher{Host: h, Index: spatial.New(pts), Candidates: cands}
}

func pole(pos, normal math.Vec3, valence int) PoleInfo {
	return PoleInfo{Pos: pos, Normal: normal.Normalize(), Valence: valence, Labels: LabelAll}
}

func assertInjective(t *testing.T, matches []Match) {
	t.Helper()
	mods := make(map[mesh.VertexID]bool)
	hosts := make(map[mesh.VertexID]bool)
	for _, m := range matches {
		assert.False(t, mods[m.Module], "module pole %d matched twice", m.Module)
		assert.False(t, hosts[m.Host], "host vertex %d matched twice", m.Host)
		mods[m.Module] = true
		hosts[m.Host] = true
	}
}

func TestOppositeDirections(t *testing.T) {
	vs := []math.Vec3{{X: 1}, {Y: -3}, {X: 1e-4, Y: 2e-4, Z: -1e-4}, {X: 5, Y: 5, Z: 5}}
	for _, v := range vs {
		assert.False(t, OppositeDirections(v, v), "%v", v)
		assert.True(t, OppositeDirections(v, v.Neg()), "%v", v)
	}
	assert.False(t, OppositeDirections(math.Vec3{X: 1}, math.Vec3{Y: 1}))
	assert.True(t, OppositeDirections(math.Vec3{X: 1}, math.Vec3{X: -1, Y: 10}))
}

func TestMatchFacingPair(t *testing.T) {
	host := fakeHost{10: {pos: math.Vec3{Z: 2}, normal: math.Vec3{Z: -1}, valence: 4, ring: 1}}
	poles := PoleMap{0: pole(math.Vec3{}, math.Vec3{Z: 1}, 4)}

	got := host.matcher().Match(poles)
	assert.Equal(t, []Match{{Module: 0, Host: 10}}, got)
}

func TestMatchRejectsIncompatible(t *testing.T) {
	tests := []struct {
		name   string
		normal math.Vec3
		val    int
		labels Label
	}{
		{"same direction", math.Vec3{Z: -1}, 4, LabelAll},
		{"perpendicular", math.Vec3{X: 1}, 4, LabelAll},
		{"valence", math.Vec3{Z: 1}, 5, LabelAll},
		{"labels", math.Vec3{Z: 1}, 4, LabelRed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := fakeHost{10: {pos: math.Vec3{Z: 2}, normal: math.Vec3{Z: -1}, valence: 4, ring: 1}}
			mt := host.matcher()
			mt.Candidates[10] = CandidateInfo{Labels: LabelBlue}
			p := pole(math.Vec3{}, tt.normal, tt.val)
			p.Labels = tt.labels
			if tt.labels == LabelAll {
				mt.Candidates[10] = CandidateInfo{Labels: LabelAll}
			}
			assert.Empty(t, mt.Match(PoleMap{0: p}))
		})
	}
}

func TestMatchIgnoreValence(t *testing.T) {
	host := fakeHost{10: {pos: math.Vec3{Z: 2}, normal: math.Vec3{Z: -1}, valence: 4, ring: 1}}
	mt := host.matcher()
	mt.IgnoreValence = true

	got := mt.Match(PoleMap{0: pole(math.Vec3{}, math.Vec3{Z: 1}, 3)})
	assert.Len(t, got, 1)
}

func TestMatchConflictKeepsNearest(t *testing.T) {
	host := fakeHost{10: {pos: math.Vec3{}, normal: math.Vec3{Z: -1}, valence: 3, ring: 1.5}}
	poles := PoleMap{
		1: pole(math.Vec3{Z: 2}, math.Vec3{Z: 1}, 3),
		2: pole(math.Vec3{Z: 1}, math.Vec3{Z: 1}, 3),
	}

	got := host.matcher().Match(poles)
	assert.Equal(t, []Match{{Module: 2, Host: 10}}, got)
}

func TestMatchConflictTieKeepsFirst(t *testing.T) {
	host := fakeHost{10: {pos: math.Vec3{}, normal: math.Vec3{Z: -1}, valence: 3, ring: 0.1}}
	poles := PoleMap{
		4: pole(math.Vec3{X: 1, Z: 1}, math.Vec3{Z: 1}, 3),
		3: pole(math.Vec3{X: -1, Z: 1}, math.Vec3{Z: 1}, 3),
	}

	got := host.matcher().Match(poles)
	assert.Equal(t, []Match{{Module: 3, Host: 10}}, got)
}

func TestMatchSecondClosest(t *testing.T) {
	newHost := func(valence int) fakeHost {
		return fakeHost{
			10: {pos: math.Vec3{}, normal: math.Vec3{Z: -1}, valence: 3, ring: 1.5},
			11: {pos: math.Vec3{X: 1}, normal: math.Vec3{Z: -1}, valence: valence, ring: 1.5},
			12: {pos: math.Vec3{X: 10}, normal: math.Vec3{Z: -1}, valence: 3, ring: 1.5},
		}
	}
	poles := PoleMap{
		1: pole(math.Vec3{Z: 1}, math.Vec3{Z: 1}, 3),
		2: pole(math.Vec3{Z: 2}, math.Vec3{Z: 1}, 3),
	}

	got := newHost(3).matcher().Match(poles)
	assert.Equal(t, []Match{{Module: 1, Host: 10}, {Module: 2, Host: 11}}, got)

	// the only free neighbour is incompatible and 12 is out of range
	got = newHost(4).matcher().Match(poles)
	assert.Equal(t, []Match{{Module: 1, Host: 10}}, got)
}

func TestMatchEmptyIndex(t *testing.T) {
	mt := &Matcher{Host: fakeHost{}, Index: spatial.New(nil)}
	assert.Empty(t, mt.Match(PoleMap{0: pole(math.Vec3{}, math.Vec3{Z: 1}, 3)}))
}

func TestMatchInjective(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	randVec := func() math.Vec3 {
		return math.Vec3{X: rng.Float64()*4 - 2, Y: rng.Float64()*4 - 2, Z: rng.Float64()*4 - 2}
	}

	for trial := 0; trial < 25; trial++ {
		host := make(fakeHost)
		for i := 0; i < 12; i++ {
			host[mesh.VertexID(100+i)] = fakeVertex{
				pos:     randVec(),
				normal:  math.Vec3{Z: -1},
				valence: 3 + rng.Intn(2),
				ring:    rng.Float64() * 3,
			}
		}
		poles := make(PoleMap)
		for i := 0; i < 20; i++ {
			poles[mesh.VertexID(i)] = pole(randVec(), math.Vec3{X: rng.Float64() - 0.5, Y: rng.Float64() - 0.5, Z: 1}, 3+rng.Intn(2))
		}

		got := host.matcher().Match(poles)
		assertInjective(t, got)
		for _, m := range got {
			require.Contains(t, poles, m.Module)
			require.Contains(t, host, m.Host)
			assert.Equal(t, poles[m.Module].Valence, host[m.Host].valence)
		}
	}
}
