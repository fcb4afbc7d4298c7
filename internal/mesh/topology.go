package mesh

import (
	"github.com/pkg/errors"
)

// Neighbors returns the distinct vertices sharing an edge with v, in the
// order they are met walking the incident faces.
func (m *Mesh) Neighbors(v VertexID) []VertexID {
	var out []VertexID
	seen := make(map[VertexID]bool)
	for _, f := range m.IncidentFaces(v) {
		vs := m.faces[f].verts
		i := indexOf(vs, v)
		for _, n := range []VertexID{vs[(i+1)%len(vs)], vs[(i+len(vs)-1)%len(vs)]} {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// Valence returns the number of edges incident to v.
func (m *Mesh) Valence(v VertexID) int {
	return len(m.Neighbors(v))
}

// IsPole reports whether v has a valence other than RegularValence.
func (m *Mesh) IsPole(v VertexID) bool {
	return m.InUse(v) && m.Valence(v) != RegularValence
}

// Poles returns every live pole in ascending order.
func (m *Mesh) Poles() []VertexID {
	var out []VertexID
	for _, v := range m.Vertices() {
		if m.IsPole(v) {
			out = append(out, v)
		}
	}
	return out
}

// Ring returns the 1-ring of an interior vertex in counter-clockwise order.
// It fails with ErrBoundary when the walk around v does not close.
func (m *Mesh) Ring(v VertexID) ([]VertexID, error) {
	fan, err := m.fan(v)
	if err != nil {
		return nil, err
	}
	ring := make([]VertexID, len(fan))
	for i, f := range fan {
		vs := m.faces[f].verts
		ring[i] = vs[(indexOf(vs, v)+1)%len(vs)]
	}
	return ring, nil
}

// fan returns the faces around an interior vertex in walk order. Each face
// is followed by the one sharing the edge into v.
func (m *Mesh) fan(v VertexID) ([]FaceID, error) {
	if !m.InUse(v) {
		return nil, errors.Wrapf(ErrInvalidVertex, "ring of %d", v)
	}
	fs := m.IncidentFaces(v)
	if len(fs) == 0 {
		return nil, errors.Wrapf(ErrBoundary, "vertex %d has no faces", v)
	}

	out := make([]FaceID, 0, len(fs))
	f := fs[0]
	for range fs {
		out = append(out, f)
		vs := m.faces[f].verts
		prev := vs[(indexOf(vs, v)+len(vs)-1)%len(vs)]

		g := m.edgeFace(v, prev)
		if g == InvalidFace {
			return nil, errors.Wrapf(ErrBoundary, "vertex %d", v)
		}
		if g == fs[0] {
			if len(out) != len(fs) {
				return nil, errors.Wrapf(ErrNonManifold, "vertex %d has %d faces but a ring of %d", v, len(fs), len(out))
			}
			return out, nil
		}
		f = g
	}
	return nil, errors.Wrapf(ErrNonManifold, "ring around vertex %d does not close", v)
}

// IsBoundary reports whether v touches a hole.
func (m *Mesh) IsBoundary(v VertexID) bool {
	_, err := m.Ring(v)
	return err != nil
}

// IsClosed reports whether every edge is shared by exactly two faces with
// opposite orientation.
func (m *Mesh) IsClosed() bool {
	for _, f := range m.Faces() {
		vs := m.faces[f].verts
		for i, v := range vs {
			if m.edgeFace(vs[(i+1)%len(vs)], v) == InvalidFace {
				return false
			}
		}
	}
	return true
}

// Validate checks that incidence lists agree with face loops and that no
// directed edge is used twice.
func (m *Mesh) Validate() error {
	used := make(map[[2]VertexID]FaceID)
	for _, f := range m.Faces() {
		vs := m.faces[f].verts
		if len(vs) < 3 {
			return errors.Wrapf(ErrNonManifold, "face %d has %d vertices", f, len(vs))
		}
		for i, v := range vs {
			if !m.InUse(v) {
				return errors.Wrapf(ErrInvalidVertex, "face %d references dead vertex %d", f, v)
			}
			if !containsFace(m.vertices[v].faces, f) {
				return errors.Wrapf(ErrNonManifold, "vertex %d does not list face %d", v, f)
			}
			e := [2]VertexID{v, vs[(i+1)%len(vs)]}
			if g, ok := used[e]; ok {
				return errors.Wrapf(ErrNonManifold, "edge %d->%d used by faces %d and %d", e[0], e[1], g, f)
			}
			used[e] = f
		}
	}
	return nil
}

func containsFace(fs []FaceID, f FaceID) bool {
	for _, g := range fs {
		if g == f {
			return true
		}
	}
	return false
}
