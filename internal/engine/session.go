// Package engine sequences the glueing pipeline over one shared mesh.
//
// A Session owns the host mesh and moves through a fixed lifecycle:
//
//	Empty -> HostSet -> ModuleAttached -> Matched -> Aligned -> Consolidated
//
// Attaching merges the module into the host mesh and records which vertices
// belong to which side. Consolidation forgets that split; the merged mesh
// is the host for the next module. Every method is safe for concurrent
// use, but calls are serialized.
package engine

import (
	"context"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/modgrow/internal/glue"
	"github.com/Faultbox/modgrow/internal/mesh"
	"github.com/Faultbox/modgrow/internal/spatial"
	"github.com/Faultbox/modgrow/pkg/math"
)

// State is a lifecycle stage of a Session.
type State int

// Session states.
const (
	StateEmpty State = iota
	StateHostSet
	StateModuleAttached
	StateMatched
	StateAligned
	StateConsolidated
)

var stateNames = [...]string{"empty", "host set", "module attached", "matched", "aligned", "consolidated"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// CandidatePolicy selects which host vertices may be matched.
type CandidatePolicy string

// Candidate policies.
const (
	CandidatesPoles CandidatePolicy = "poles"
	CandidatesAll   CandidatePolicy = "all"
)

// Options tune the search.
type Options struct {
	RotationSteps       int
	OppositeThreshold   float64
	NormalizeCosts      bool
	RequireEqualValence bool
	CandidatePolicy     CandidatePolicy
	// RandomPlacement rotates an attached module at random and moves it
	// clear of the host before its poles are read.
	RandomPlacement bool
}

// DefaultOptions returns the standard search settings.
func DefaultOptions() Options {
	return Options{
		RotationSteps:       glue.DefaultRotationSteps,
		OppositeThreshold:   glue.DefaultOppositeThreshold,
		RequireEqualValence: true,
		CandidatePolicy:     CandidatesPoles,
		RandomPlacement:     true,
	}
}

// Module is a mesh to be glued together with its pole metadata.
type Module struct {
	Mesh   *mesh.Mesh
	Type   glue.ModuleType
	Labels glue.Label
}

// Session holds the state of glueing modules onto one host.
type Session struct {
	mu   sync.Mutex
	id   uuid.UUID
	log  *zap.Logger
	rng  *rand.Rand
	opts Options

	state       State
	host        *mesh.Mesh
	hostVerts   []mesh.VertexID
	moduleVerts []mesh.VertexID
	hostLabels  map[mesh.VertexID]glue.Label

	candidates glue.Candidates
	index      *spatial.Index
	poles      glue.PoleMap
	module     Module
	placement  math.Mat4
	best       *glue.Configuration
	target     int
	glueings   int
}

// New creates an empty session. Randomness comes only from rng; a nil rng
// is replaced by one seeded with 1 so that runs are reproducible.
func New(rng *rand.Rand, opts Options, log *zap.Logger) *Session {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.New()
	return &Session{
		id:         id,
		log:        log.With(zap.String("session", id.String())),
		rng:        rng,
		opts:       opts,
		hostLabels: make(map[mesh.VertexID]glue.Label),
		placement:  math.Identity(),
	}
}

// Attach creates a session on host and attaches module to it.
func Attach(rng *rand.Rand, opts Options, log *zap.Logger, host *mesh.Mesh, module Module) (*Session, error) {
	s := New(rng, opts, log)
	if err := s.SetHost(host); err != nil {
		return nil, err
	}
	if err := s.AttachModule(module); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id.String() }

// State returns the current lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Host returns the shared mesh. It must not be edited while a module is
// attached.
func (s *Session) Host() *mesh.Mesh {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host
}

// HostVertices returns the vertices currently on the host side.
func (s *Session) HostVertices() []mesh.VertexID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mesh.VertexID(nil), s.hostVerts...)
}

// ModuleVertices returns the vertices of the attached module.
func (s *Session) ModuleVertices() []mesh.VertexID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mesh.VertexID(nil), s.moduleVerts...)
}

// Poles returns the pole info of the attached module.
func (s *Session) Poles() glue.PoleMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poles
}

// Candidates returns the host vertices eligible for matching.
func (s *Session) Candidates() glue.Candidates {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.candidates
}

// Placement returns the random transform applied when the module was
// attached.
func (s *Session) Placement() math.Mat4 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placement
}

// Best returns the selected configuration, or nil before a successful
// search.
func (s *Session) Best() *glue.Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.best
}

// Glueings returns the number of modules glued so far.
func (s *Session) Glueings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.glueings
}

// SetHost installs the host mesh. The session must be empty or
// consolidated.
func (s *Session) SetHost(host *mesh.Mesh) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "set host"
	if s.state != StateEmpty && s.state != StateConsolidated {
		return glue.Preconditionf(op, "session is %s", s.state)
	}
	if host == nil || host.NumVertices() == 0 {
		return glue.Preconditionf(op, "empty host")
	}
	s.host = host
	s.hostVerts = host.Vertices()
	s.hostLabels = make(map[mesh.VertexID]glue.Label)
	s.state = StateHostSet
	s.log.Info("host set", zap.Int("vertices", host.NumVertices()), zap.Int("faces", host.NumFaces()))
	return nil
}

func (s *Session) requireState(op string, allowed ...State) error {
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	return glue.Preconditionf(op, "session is %s", s.state)
}

// AttachModule merges module into the host mesh and prepares matching:
// the module is placed clear of the host, the host candidates are indexed
// and the module poles are read. The session must hold a host and no
// other module.
func (s *Session) AttachModule(module Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "attach module"
	if err := s.requireState(op, StateHostSet, StateConsolidated); err != nil {
		return err
	}
	if module.Mesh == nil || module.Mesh.NumVertices() == 0 {
		return glue.Preconditionf(op, "empty module")
	}

	s.hostVerts = s.host.Vertices()
	remap := s.host.Merge(module.Mesh)
	s.moduleVerts = remap.Vertices(module.Mesh.Vertices())
	s.module = module

	s.placement = math.Identity()
	if s.opts.RandomPlacement {
		s.placement = s.collisionAvoidingTransform()
		s.host.Transform(s.moduleVerts, s.placement)
	}

	s.buildCandidates()
	s.poles = glue.ReadPoles(s.host, s.moduleVerts, module.Type, module.Labels)
	s.best = nil
	s.state = StateModuleAttached

	s.log.Info("module attached",
		zap.Int("module_vertices", len(s.moduleVerts)),
		zap.Int("module_poles", len(s.poles)),
		zap.Int("candidates", len(s.candidates)))
	if len(s.candidates) == 0 {
		s.log.Warn("host has no candidates", zap.String("policy", string(s.opts.CandidatePolicy)))
	}
	return nil
}

// collisionAvoidingTransform rotates the module at random and then pushes
// its bounding sphere out along the centroid direction until it touches
// the host's.
func (s *Session) collisionAvoidingTransform() math.Mat4 {
	x1, x2, x3 := s.rng.Float64(), s.rng.Float64(), s.rng.Float64()
	rot := math.RandomRotation(x1, x2, x3)

	rotated := make([]math.Vec3, len(s.moduleVerts))
	for i, v := range s.moduleVerts {
		rotated[i] = rot.TransformPoint(s.host.Pos(v))
	}
	mc, mr := mesh.BoundingSphere(rotated)
	hc, hr := s.host.BoundingSphere(s.hostVerts)

	d := mc.Sub(hc)
	length := hr + mr - d.Length()
	dir, fallback := d.NormalizeOr(math.Vec3{X: x1, Y: x2, Z: x3})
	if fallback && dir.IsZero() {
		dir = math.Vec3{X: 1}
	}
	return math.TranslateVec(dir.Scale(length)).Mul(rot)
}

func (s *Session) buildCandidates() {
	s.candidates = make(glue.Candidates)
	var pts []spatial.Point
	for _, v := range s.hostVerts {
		if s.opts.CandidatePolicy != CandidatesAll && !s.host.IsPole(v) {
			continue
		}
		labels, ok := s.hostLabels[v]
		if !ok {
			labels = glue.LabelAll
		}
		s.candidates[v] = glue.CandidateInfo{Labels: labels}
		pts = append(pts, spatial.Point{ID: v, Pos: s.host.Pos(v)})
	}
	s.index = spatial.New(pts)
}

func (s *Session) searcher() *glue.Searcher {
	return &glue.Searcher{
		Matcher: &glue.Matcher{
			Host:              s.host,
			Index:             s.index,
			Candidates:        s.candidates,
			OppositeThreshold: s.opts.OppositeThreshold,
			IgnoreValence:     !s.opts.RequireEqualValence,
		},
		RotationSteps:  s.opts.RotationSteps,
		NormalizeCosts: s.opts.NormalizeCosts,
		Log:            s.log,
	}
}

// SearchBestGlueing evaluates every candidate placement of the attached
// module and keeps the cheapest one that glues target poles. When none
// does, the error matches glue.ErrNoGlueing and the module stays attached
// so the caller can retry with another target or detach it.
func (s *Session) SearchBestGlueing(ctx context.Context, target int) (glue.Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "search best glueing"
	if err := s.requireState(op, StateModuleAttached, StateMatched); err != nil {
		return glue.Configuration{}, err
	}

	c, _ := s.host.BoundingSphere(s.moduleVerts)
	best, err := s.searcher().Search(ctx, s.poles, c, target)
	if err != nil {
		s.best = nil
		s.state = StateModuleAttached
		return glue.Configuration{}, err
	}
	s.best = &best
	s.target = target
	s.state = StateMatched
	s.log.Info("best glueing selected",
		zap.Int("target", target),
		zap.Int("host", int(best.Host)),
		zap.Int("pole", int(best.Pole)),
		zap.Float64("cost_dist", best.Cost.Dist),
		zap.Float64("cost_angle", best.Cost.Angle))
	return best, nil
}

// Align moves the module onto the host along the selected configuration.
func (s *Session) Align() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.align()
}

func (s *Session) align() error {
	const op = "align"
	if err := s.requireState(op, StateMatched); err != nil {
		return err
	}
	if err := glue.Align(s.host, s.moduleVerts, *s.best, s.log); err != nil {
		return err
	}
	s.state = StateAligned
	return nil
}

// ApplyGlueing stitches the module into the host at the selected matches
// and consolidates the session. A matched but unaligned session is
// aligned first. Module poles left unglued keep their labels as host
// candidates for later modules. When stitching fails the session stays
// aligned with the mesh unchanged.
func (s *Session) ApplyGlueing() (mesh.Remap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "apply glueing"
	if s.state == StateMatched {
		if err := s.align(); err != nil {
			return mesh.Remap{}, err
		}
	}
	if err := s.requireState(op, StateAligned); err != nil {
		return mesh.Remap{}, err
	}

	remap, err := glue.Glue(s.host, s.best.Matches, s.log)
	if err != nil {
		// the mesh is untouched, the module can still be detached
		s.log.Warn("glueing failed", zap.Int("matches", len(s.best.Matches)), zap.Error(err))
		return mesh.Remap{}, errors.Wrapf(err, "session %s", s.id)
	}

	glued := make(map[mesh.VertexID]bool, len(s.best.Matches))
	for _, mt := range s.best.Matches {
		glued[mt.Module] = true
	}
	labels := make(map[mesh.VertexID]glue.Label, len(s.hostLabels)+len(s.poles))
	for v, l := range s.hostLabels {
		if n := remap.Vertex(v); n != mesh.InvalidVertex {
			labels[n] = l
		}
	}
	for v, pi := range s.poles {
		if glued[v] {
			continue
		}
		if n := remap.Vertex(v); n != mesh.InvalidVertex {
			labels[n] = pi.Labels
		}
	}
	s.hostLabels = labels
	s.glueings++

	s.log.Info("module glued",
		zap.Int("matches", len(s.best.Matches)),
		zap.Int("vertices", s.host.NumVertices()),
		zap.Int("faces", s.host.NumFaces()))
	s.consolidate()
	return remap, nil
}

// DetachModule removes the attached module from the host mesh, leaving
// the host as it was before AttachModule.
func (s *Session) DetachModule() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "detach module"
	if err := s.requireState(op, StateModuleAttached, StateMatched, StateAligned); err != nil {
		return err
	}
	s.host.RemoveVertices(s.moduleVerts)
	remap := s.host.Cleanup()
	labels := make(map[mesh.VertexID]glue.Label, len(s.hostLabels))
	for v, l := range s.hostLabels {
		if n := remap.Vertex(v); n != mesh.InvalidVertex {
			labels[n] = l
		}
	}
	s.hostLabels = labels
	s.log.Info("module detached", zap.Int("module_vertices", len(s.moduleVerts)))
	s.consolidate()
	s.state = StateHostSet
	return nil
}

// consolidate drops the host/module split; the whole mesh is the host
// from now on.
func (s *Session) consolidate() {
	s.hostVerts = s.host.Vertices()
	s.moduleVerts = nil
	s.candidates = nil
	s.index = nil
	s.poles = nil
	s.best = nil
	s.target = 0
	s.state = StateConsolidated
}
