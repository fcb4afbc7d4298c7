// Package mesh implements the polygon mesh that modules are grown on.
//
// Vertices and faces live in arenas addressed by integer identifiers.
// Removing an element only marks it dead; identifiers stay valid until
// Cleanup compacts the arenas and returns the old->new Remap that every
// holder of identifiers must apply.
package mesh

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/Faultbox/modgrow/pkg/math"
)

// RegularValence is the valence of a vertex on a regular quad grid.
// Every other valence marks a pole.
const RegularValence = 4

// VertexID identifies a vertex in a Mesh.
type VertexID int

// FaceID identifies a face in a Mesh.
type FaceID int

// Invalid identifiers.
const (
	InvalidVertex VertexID = -1
	InvalidFace   FaceID   = -1
)

// Sentinel errors for mesh operations.
var (
	ErrInvalidVertex = errors.New("vertex not in use")
	ErrInvalidFace   = errors.New("face not in use")
	ErrNonManifold   = errors.New("operation would make the mesh non-manifold")
	ErrBoundary      = errors.New("vertex lies on a boundary")
	ErrLoopMismatch  = errors.New("loops differ in length or overlap")
)

type vertex struct {
	pos   math.Vec3
	alive bool
	faces []FaceID
}

type face struct {
	verts []VertexID
	alive bool
}

// Mesh is a manifold polygon mesh.
type Mesh struct {
	vertices []vertex
	faces    []face
	nv, nf   int
}

// New creates an empty mesh.
func New() *Mesh {
	return &Mesh{}
}

// AddVertex appends a vertex at p.
func (m *Mesh) AddVertex(p math.Vec3) VertexID {
	m.vertices = append(m.vertices, vertex{pos: p, alive: true})
	m.nv++
	return VertexID(len(m.vertices) - 1)
}

// AddFace appends a face with the given counter-clockwise vertex order.
// The face is rejected when a directed edge it uses already belongs to
// another face.
func (m *Mesh) AddFace(vs ...VertexID) (FaceID, error) {
	if len(vs) < 3 {
		return InvalidFace, errors.Wrapf(ErrNonManifold, "face with %d vertices", len(vs))
	}
	seen := make(map[VertexID]bool, len(vs))
	for _, v := range vs {
		if !m.InUse(v) {
			return InvalidFace, errors.Wrapf(ErrInvalidVertex, "add face: vertex %d", v)
		}
		if seen[v] {
			return InvalidFace, errors.Wrapf(ErrNonManifold, "add face: repeated vertex %d", v)
		}
		seen[v] = true
	}
	for i, v := range vs {
		next := vs[(i+1)%len(vs)]
		if f := m.edgeFace(v, next); f != InvalidFace {
			return InvalidFace, errors.Wrapf(ErrNonManifold, "add face: edge %d->%d already used by face %d", v, next, f)
		}
	}

	id := FaceID(len(m.faces))
	m.faces = append(m.faces, face{verts: append([]VertexID(nil), vs...), alive: true})
	for _, v := range vs {
		m.vertices[v].faces = append(m.vertices[v].faces, id)
	}
	m.nf++
	return id, nil
}

// InUse reports whether v is a live vertex.
func (m *Mesh) InUse(v VertexID) bool {
	return v >= 0 && int(v) < len(m.vertices) && m.vertices[v].alive
}

// FaceInUse reports whether f is a live face.
func (m *Mesh) FaceInUse(f FaceID) bool {
	return f >= 0 && int(f) < len(m.faces) && m.faces[f].alive
}

// Pos returns the position of v.
func (m *Mesh) Pos(v VertexID) math.Vec3 {
	return m.vertices[v].pos
}

// SetPos moves v to p.
func (m *Mesh) SetPos(v VertexID, p math.Vec3) {
	m.vertices[v].pos = p
}

// NumVertices returns the number of live vertices.
func (m *Mesh) NumVertices() int { return m.nv }

// NumFaces returns the number of live faces.
func (m *Mesh) NumFaces() int { return m.nf }

// Vertices returns the live vertices in ascending order.
func (m *Mesh) Vertices() []VertexID {
	out := make([]VertexID, 0, m.nv)
	for i := range m.vertices {
		if m.vertices[i].alive {
			out = append(out, VertexID(i))
		}
	}
	return out
}

// Faces returns the live faces in ascending order.
func (m *Mesh) Faces() []FaceID {
	out := make([]FaceID, 0, m.nf)
	for i := range m.faces {
		if m.faces[i].alive {
			out = append(out, FaceID(i))
		}
	}
	return out
}

// FaceVertices returns a copy of the vertex loop of f.
func (m *Mesh) FaceVertices(f FaceID) []VertexID {
	return append([]VertexID(nil), m.faces[f].verts...)
}

// IncidentFaces returns the live faces around v in ascending order.
func (m *Mesh) IncidentFaces(v VertexID) []FaceID {
	out := append([]FaceID(nil), m.vertices[v].faces...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Transform applies t to the positions of vs.
func (m *Mesh) Transform(vs []VertexID, t math.Mat4) {
	for _, v := range vs {
		m.vertices[v].pos = t.TransformPoint(m.vertices[v].pos)
	}
}

// edgeFace returns the live face that contains the directed edge from->to.
func (m *Mesh) edgeFace(from, to VertexID) FaceID {
	for _, f := range m.vertices[from].faces {
		vs := m.faces[f].verts
		i := indexOf(vs, from)
		if vs[(i+1)%len(vs)] == to {
			return f
		}
	}
	return InvalidFace
}

// HasEdge reports whether u and w are joined by an edge in either direction.
func (m *Mesh) HasEdge(u, w VertexID) bool {
	if !m.InUse(u) || !m.InUse(w) {
		return false
	}
	return m.edgeFace(u, w) != InvalidFace || m.edgeFace(w, u) != InvalidFace
}

func (m *Mesh) removeFace(f FaceID) {
	for _, v := range m.faces[f].verts {
		fs := m.vertices[v].faces
		for i, g := range fs {
			if g == f {
				m.vertices[v].faces = append(fs[:i], fs[i+1:]...)
				break
			}
		}
	}
	m.faces[f].alive = false
	m.faces[f].verts = nil
	m.nf--
}

func (m *Mesh) killVertex(v VertexID) {
	m.vertices[v].alive = false
	m.vertices[v].faces = nil
	m.nv--
}

func indexOf(vs []VertexID, v VertexID) int {
	for i, x := range vs {
		if x == v {
			return i
		}
	}
	return -1
}
