package engine

import (
	"context"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Faultbox/modgrow/internal/glue"
	"github.com/Faultbox/modgrow/internal/mesh"
	"github.com/Faultbox/modgrow/pkg/math"
)

func tubeModule(t *testing.T, labels glue.Label) Module {
	t.Helper()
	tube, err := mesh.Tube(3, 1, 0.5, 1)
	require.NoError(t, err)
	return Module{Mesh: tube, Type: 1, Labels: labels}
}

func newSession(t *testing.T, seed int64) *Session {
	t.Helper()
	s := New(rand.New(rand.NewSource(seed)), DefaultOptions(), zaptest.NewLogger(t))
	require.NoError(t, s.SetHost(mesh.Box(2, 2, 2)))
	return s
}

func TestSessionLifecycle(t *testing.T) {
	s := newSession(t, 3)
	assert.Equal(t, StateHostSet, s.State())
	assert.NotEmpty(t, s.ID())

	require.NoError(t, s.AttachModule(tubeModule(t, glue.LabelAll)))
	assert.Equal(t, StateModuleAttached, s.State())
	assert.Len(t, s.HostVertices(), 8)
	assert.Len(t, s.ModuleVertices(), 8)
	assert.Len(t, s.Poles(), 2)
	assert.Len(t, s.Candidates(), 8)

	best, err := s.SearchBestGlueing(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StateMatched, s.State())
	require.Len(t, best.Matches, 1)
	assert.NotNil(t, s.Best())

	require.NoError(t, s.Align())
	assert.Equal(t, StateAligned, s.State())
	m := s.Host()
	mt := best.Matches[0]
	assert.True(t, m.Pos(mt.Module).ApproxEqual(m.Pos(mt.Host), 1e-9))

	_, err = s.ApplyGlueing()
	require.NoError(t, err)
	assert.Equal(t, StateConsolidated, s.State())
	assert.Equal(t, 1, s.Glueings())
	assert.Nil(t, s.Best())
	assert.Empty(t, s.ModuleVertices())
	assert.Empty(t, s.Candidates())

	// a box corner opens a hole of six, the tube cap one of three that is
	// subdivided to six before welding
	assert.Equal(t, 11, m.NumVertices())
	assert.True(t, m.IsClosed())
	require.NoError(t, m.Validate())
	assert.Len(t, s.HostVertices(), 11)
}

func TestApplyGlueingAlignsFirst(t *testing.T) {
	s := newSession(t, 5)
	require.NoError(t, s.AttachModule(tubeModule(t, glue.LabelAll)))
	_, err := s.SearchBestGlueing(context.Background(), 1)
	require.NoError(t, err)

	_, err = s.ApplyGlueing()
	require.NoError(t, err)
	assert.Equal(t, StateConsolidated, s.State())
	assert.True(t, s.Host().IsClosed())
}

func TestSessionPreconditions(t *testing.T) {
	s := New(nil, DefaultOptions(), nil)
	assert.Equal(t, StateEmpty, s.State())

	err := s.AttachModule(tubeModule(t, glue.LabelAll))
	assert.True(t, errors.Is(err, glue.ErrPrecondition))
	assert.True(t, errors.Is(s.SetHost(nil), glue.ErrPrecondition))
	assert.True(t, errors.Is(s.SetHost(mesh.New()), glue.ErrPrecondition))

	require.NoError(t, s.SetHost(mesh.Box(1, 1, 1)))
	assert.True(t, errors.Is(s.AttachModule(Module{}), glue.ErrPrecondition))

	_, err = s.SearchBestGlueing(context.Background(), 1)
	assert.True(t, errors.Is(err, glue.ErrPrecondition))
	assert.True(t, errors.Is(s.Align(), glue.ErrPrecondition))
	_, err = s.ApplyGlueing()
	assert.True(t, errors.Is(err, glue.ErrPrecondition))
	assert.True(t, errors.Is(s.DetachModule(), glue.ErrPrecondition))

	require.NoError(t, s.AttachModule(tubeModule(t, glue.LabelAll)))
	assert.True(t, errors.Is(s.AttachModule(tubeModule(t, glue.LabelAll)), glue.ErrPrecondition))
	assert.True(t, errors.Is(s.SetHost(mesh.Box(1, 1, 1)), glue.ErrPrecondition))
	assert.True(t, errors.Is(s.Align(), glue.ErrPrecondition))

	_, err = s.SearchBestGlueing(context.Background(), 3)
	assert.Equal(t, glue.KindPrecondition, glue.KindOf(err))
	assert.Equal(t, StateModuleAttached, s.State())
}

func TestSessionNoGlueingThenDetach(t *testing.T) {
	s := newSession(t, 11)
	require.NoError(t, s.AttachModule(tubeModule(t, glue.LabelAll)))

	// the two caps of a tube never face two box corners at once
	_, err := s.SearchBestGlueing(context.Background(), 2)
	assert.True(t, errors.Is(err, glue.ErrNoGlueing))
	assert.Equal(t, StateModuleAttached, s.State())

	require.NoError(t, s.DetachModule())
	assert.Equal(t, StateHostSet, s.State())
	m := s.Host()
	assert.Equal(t, 8, m.NumVertices())
	assert.Equal(t, 6, m.NumFaces())
	box := mesh.Box(2, 2, 2)
	for _, v := range box.Vertices() {
		assert.Equal(t, box.Pos(v), m.Pos(v))
	}

	require.NoError(t, s.AttachModule(tubeModule(t, glue.LabelAll)))
	_, err = s.SearchBestGlueing(context.Background(), 1)
	require.NoError(t, err)
	_, err = s.ApplyGlueing()
	require.NoError(t, err)
	assert.True(t, m.IsClosed())
}

func TestSessionGluesAtTwoCorners(t *testing.T) {
	glued := 0
	for seed := int64(1); seed <= 6; seed++ {
		s := newSession(t, seed)
		require.NoError(t, s.AttachModule(Module{Mesh: mesh.Box(1, 1, 1), Labels: glue.LabelAll}))

		best, err := s.SearchBestGlueing(context.Background(), 2)
		if errors.Is(err, glue.ErrNoGlueing) {
			require.NoError(t, s.DetachModule())
			continue
		}
		require.NoError(t, err, "seed %d", seed)
		require.Len(t, best.Matches, 2)

		_, err = s.ApplyGlueing()
		require.NoError(t, err, "seed %d", seed)
		assert.Equal(t, StateConsolidated, s.State())
		m := s.Host()
		assert.True(t, m.IsClosed(), "seed %d", seed)
		require.NoError(t, m.Validate(), "seed %d", seed)
		assert.Equal(t, 1, s.Glueings())
		glued++
	}
	assert.Positive(t, glued)
}

func TestApplyGlueingFailureKeepsSession(t *testing.T) {
	host := mesh.Box(2, 2, 2)
	host.RemoveVertices([]mesh.VertexID{0})
	host.Cleanup()
	s := New(rand.New(rand.NewSource(4)), DefaultOptions(), zaptest.NewLogger(t))
	require.NoError(t, s.SetHost(host))
	require.NoError(t, s.AttachModule(tubeModule(t, glue.LabelAll)))

	var inner, rim mesh.VertexID = mesh.InvalidVertex, mesh.InvalidVertex
	for _, v := range s.HostVertices() {
		if host.IsBoundary(v) {
			rim = v
		} else {
			inner = v
		}
	}
	var caps []mesh.VertexID
	for _, v := range s.ModuleVertices() {
		if _, ok := s.Poles()[v]; ok {
			caps = append(caps, v)
		}
	}
	require.Len(t, caps, 2)

	// a hole cannot be cut around a vertex on the rim of the open host
	s.best = &glue.Configuration{
		Transform: math.Identity(),
		Matches:   []glue.Match{{Module: caps[0], Host: inner}, {Module: caps[1], Host: rim}},
	}
	s.state = StateAligned
	hostVerts, moduleVerts := s.HostVertices(), s.ModuleVertices()
	before := host.Clone()

	_, err := s.ApplyGlueing()
	require.Error(t, err)
	assert.Equal(t, StateAligned, s.State())
	assert.Equal(t, hostVerts, s.HostVertices())
	assert.Equal(t, moduleVerts, s.ModuleVertices())
	assert.Equal(t, before.Vertices(), host.Vertices())
	assert.Equal(t, before.NumFaces(), host.NumFaces())
	for _, v := range before.Vertices() {
		assert.Equal(t, before.Pos(v), host.Pos(v))
	}

	require.NoError(t, s.DetachModule())
	assert.Equal(t, 7, host.NumVertices())
	assert.Equal(t, 3, host.NumFaces())
	require.NoError(t, host.Validate())
}

func TestSessionCarriesPoleLabels(t *testing.T) {
	s := newSession(t, 7)
	require.NoError(t, s.AttachModule(tubeModule(t, glue.LabelRed)))
	_, err := s.SearchBestGlueing(context.Background(), 1)
	require.NoError(t, err)
	_, err = s.ApplyGlueing()
	require.NoError(t, err)

	require.NoError(t, s.AttachModule(tubeModule(t, glue.LabelBlue)))
	red := 0
	for _, info := range s.Candidates() {
		switch info.Labels {
		case glue.LabelRed:
			red++
		case glue.LabelAll:
		default:
			t.Errorf("unexpected candidate labels %v", info.Labels)
		}
	}
	assert.Equal(t, 1, red)
}

func TestRandomPlacementTouchesHost(t *testing.T) {
	a := newSession(t, 42)
	require.NoError(t, a.AttachModule(tubeModule(t, glue.LabelAll)))
	b := newSession(t, 42)
	require.NoError(t, b.AttachModule(tubeModule(t, glue.LabelAll)))
	assert.True(t, a.Placement().ApproxEqual(b.Placement(), 0))

	for seed := int64(40); seed < 46; seed++ {
		s := newSession(t, seed)
		require.NoError(t, s.AttachModule(tubeModule(t, glue.LabelAll)))
		m := s.Host()
		hc, hr := m.BoundingSphere(s.HostVertices())
		mc, mr := m.BoundingSphere(s.ModuleVertices())
		assert.InDelta(t, hr+mr, hc.Distance(mc), 1e-9, "seed %d", seed)
	}
}

func TestRandomPlacementMovesAlongCentroids(t *testing.T) {
	s := newSession(t, 42)
	module := tubeModule(t, glue.LabelAll)
	require.NoError(t, s.AttachModule(module))

	// the translation part of the placement is parallel to the offset
	// between host centre and rotated module centre
	m := s.Host()
	hc, _ := m.BoundingSphere(s.HostVertices())
	p := s.Placement()
	shift := p.Translation()
	rotated := make([]math.Vec3, 0, module.Mesh.NumVertices())
	for _, v := range module.Mesh.Vertices() {
		rotated = append(rotated, p.TransformPoint(module.Mesh.Pos(v)).Sub(shift))
	}
	rc, _ := mesh.BoundingSphere(rotated)
	d := rc.Sub(hc)
	assert.InDelta(t, 0, d.Cross(shift).Length(), 1e-9)
	assert.Greater(t, d.Dot(shift), 0.0)
}

func TestRandomPlacementCoincidentCentres(t *testing.T) {
	s := newSession(t, 8)
	require.NoError(t, s.AttachModule(Module{Mesh: mesh.Box(1, 1, 1), Labels: glue.LabelAll}))

	m := s.Host()
	hc, hr := m.BoundingSphere(s.HostVertices())
	mc, mr := m.BoundingSphere(s.ModuleVertices())
	assert.InDelta(t, hr+mr, hc.Distance(mc), 1e-9)
}

func TestPlacementDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.RandomPlacement = false
	s := New(rand.New(rand.NewSource(1)), opts, zaptest.NewLogger(t))
	require.NoError(t, s.SetHost(mesh.Box(2, 2, 2)))
	module := tubeModule(t, glue.LabelAll)
	require.NoError(t, s.AttachModule(module))

	m := s.Host()
	for i, v := range s.ModuleVertices() {
		assert.Equal(t, module.Mesh.Pos(mesh.VertexID(i)), m.Pos(v))
	}
}

func TestCandidatePolicyAll(t *testing.T) {
	host, err := mesh.Tube(3, 2, 1, 2)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.CandidatePolicy = CandidatesAll
	opts.RequireEqualValence = false
	s, err := Attach(rand.New(rand.NewSource(2)), opts, zaptest.NewLogger(t), host, tubeModule(t, glue.LabelAll))
	require.NoError(t, err)
	assert.Len(t, s.Candidates(), 11)

	other, err := mesh.Tube(3, 2, 1, 2)
	require.NoError(t, err)
	s, err = Attach(nil, DefaultOptions(), nil, other, tubeModule(t, glue.LabelAll))
	require.NoError(t, err)
	assert.Len(t, s.Candidates(), 2)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "module attached", StateModuleAttached.String())
	assert.Equal(t, "unknown", State(42).String())
}
