package mesh

import (
	"github.com/pkg/errors"
)

// RemoveVertex deletes v and every face around it, leaving a hole. The
// returned loop runs along the hole in the direction of the removed faces,
// so CloseHole(loop) restores a consistently oriented surface.
func (m *Mesh) RemoveVertex(v VertexID) ([]VertexID, error) {
	fan, err := m.fan(v)
	if err != nil {
		return nil, errors.Wrap(err, "remove vertex")
	}

	var loop []VertexID
	for _, f := range fan {
		vs := m.faces[f].verts
		i := indexOf(vs, v)
		// from the successor of v up to, not including, its predecessor
		for k := 1; k < len(vs)-1; k++ {
			loop = append(loop, vs[(i+k)%len(vs)])
		}
	}
	if len(loop) < 3 || hasRepeats(loop) {
		return nil, errors.Wrapf(ErrNonManifold, "remove vertex %d: hole loop %v is not simple", v, loop)
	}

	for _, f := range fan {
		m.removeFace(f)
	}
	m.killVertex(v)
	return loop, nil
}

// RemoveVertices deletes vs together with every face touching them.
func (m *Mesh) RemoveVertices(vs []VertexID) {
	for _, v := range vs {
		if !m.InUse(v) {
			continue
		}
		for _, f := range m.IncidentFaces(v) {
			m.removeFace(f)
		}
		m.killVertex(v)
	}
}

// CloseHole fills a boundary loop with a single face.
func (m *Mesh) CloseHole(loop []VertexID) (FaceID, error) {
	f, err := m.AddFace(loop...)
	if err != nil {
		return InvalidFace, errors.Wrap(err, "close hole")
	}
	return f, nil
}

// SplitFaceByVertex replaces f with a fan of triangles around a new vertex
// at the face centroid.
func (m *Mesh) SplitFaceByVertex(f FaceID) (VertexID, error) {
	if !m.FaceInUse(f) {
		return InvalidVertex, errors.Wrapf(ErrInvalidFace, "split face %d", f)
	}
	vs := m.FaceVertices(f)
	c := m.AddVertex(m.FaceCentroid(f))
	m.removeFace(f)
	for i, v := range vs {
		if _, err := m.AddFace(v, vs[(i+1)%len(vs)], c); err != nil {
			return InvalidVertex, errors.Wrapf(err, "split face %d", f)
		}
	}
	return c, nil
}

// SplitEdge inserts a vertex at the midpoint of the edge u-w in every face
// that uses it.
func (m *Mesh) SplitEdge(u, w VertexID) (VertexID, error) {
	if !m.HasEdge(u, w) {
		return InvalidVertex, errors.Errorf("split edge: no edge %d-%d", u, w)
	}
	mid := m.AddVertex(m.Pos(u).Add(m.Pos(w)).Scale(0.5))
	for _, pair := range [][2]VertexID{{u, w}, {w, u}} {
		f := m.edgeFace(pair[0], pair[1])
		if f == InvalidFace {
			continue
		}
		vs := m.faces[f].verts
		i := indexOf(vs, pair[0])
		out := make([]VertexID, 0, len(vs)+1)
		out = append(out, vs[:i+1]...)
		out = append(out, mid)
		out = append(out, vs[i+1:]...)
		m.faces[f].verts = out
		m.vertices[mid].faces = append(m.vertices[mid].faces, f)
	}
	return mid, nil
}

// SubdivideLoop inserts extra vertices on the edges of a boundary loop,
// spread evenly, and returns the longer loop. Rounds repeat while extra
// exceeds the loop length.
func (m *Mesh) SubdivideLoop(loop []VertexID, extra int) ([]VertexID, error) {
	loop = append([]VertexID(nil), loop...)
	for extra > 0 {
		n := len(loop)
		c := extra
		if c > n {
			c = n
		}
		// descending edge indices keep earlier positions valid
		for j := c - 1; j >= 0; j-- {
			i := j * n / c
			mid, err := m.SplitEdge(loop[i], loop[(i+1)%n])
			if err != nil {
				return nil, errors.Wrap(err, "subdivide loop")
			}
			loop = append(loop[:i+1], append([]VertexID{mid}, loop[i+1:]...)...)
		}
		extra -= c
	}
	return loop, nil
}

// StitchLoops welds two hole loops of equal length. Vertex b[(offset-i) mod n]
// is merged into a[i] at their midpoint; b is traversed backwards so the
// faces on both sides keep a consistent orientation.
func (m *Mesh) StitchLoops(a, b []VertexID, offset int) error {
	n := len(a)
	if n != len(b) || n < 3 {
		return errors.Wrapf(ErrLoopMismatch, "stitch %d against %d vertices", len(a), len(b))
	}

	target := make(map[VertexID]VertexID, n)
	inA := make(map[VertexID]bool, n)
	for _, v := range a {
		inA[v] = true
	}
	for i := range a {
		w := b[((offset-i)%n+n)%n]
		if inA[w] || !m.InUse(w) || !m.InUse(a[i]) {
			return errors.Wrapf(ErrLoopMismatch, "stitch: vertex %d cannot merge into %d", w, a[i])
		}
		target[w] = a[i]
	}

	// Rewrite every face touching b and check the result before mutating.
	affected := make(map[FaceID][]VertexID)
	var order []FaceID
	for _, w := range b {
		for _, f := range m.vertices[w].faces {
			if _, ok := affected[f]; ok {
				continue
			}
			vs := m.faces[f].verts
			out := make([]VertexID, len(vs))
			for k, v := range vs {
				if t, ok := target[v]; ok {
					out[k] = t
				} else {
					out[k] = v
				}
			}
			if hasRepeats(out) {
				return errors.Wrapf(ErrNonManifold, "stitch: face %d collapses", f)
			}
			affected[f] = out
			order = append(order, f)
		}
	}
	used := make(map[[2]VertexID]bool)
	for _, f := range order {
		vs := affected[f]
		for k, v := range vs {
			e := [2]VertexID{v, vs[(k+1)%len(vs)]}
			if used[e] {
				return errors.Wrapf(ErrNonManifold, "stitch: edge %d->%d used twice", e[0], e[1])
			}
			used[e] = true
			if inA[e[0]] && inA[e[1]] {
				if g := m.edgeFace(e[0], e[1]); g != InvalidFace {
					if _, self := affected[g]; !self {
						return errors.Wrapf(ErrNonManifold, "stitch: edge %d->%d already used by face %d", e[0], e[1], g)
					}
				}
			}
		}
	}

	for _, w := range b {
		t := target[w]
		m.vertices[t].pos = m.vertices[t].pos.Add(m.vertices[w].pos).Scale(0.5)
		m.vertices[t].faces = append(m.vertices[t].faces, m.vertices[w].faces...)
		m.killVertex(w)
	}
	for _, f := range order {
		m.faces[f].verts = affected[f]
	}
	return nil
}

// PoleAt returns v when it is already a pole. Otherwise the vertex is
// replaced by a pole at the same position: its hole is closed by one face
// which is then split around a new centre vertex.
func (m *Mesh) PoleAt(v VertexID) (VertexID, error) {
	if !m.InUse(v) {
		return InvalidVertex, errors.Wrapf(ErrInvalidVertex, "pole at %d", v)
	}
	if m.IsPole(v) {
		return v, nil
	}
	pos := m.Pos(v)
	loop, err := m.RemoveVertex(v)
	if err != nil {
		return InvalidVertex, errors.Wrap(err, "pole synthesis")
	}
	f, err := m.CloseHole(loop)
	if err != nil {
		return InvalidVertex, errors.Wrap(err, "pole synthesis")
	}
	c, err := m.SplitFaceByVertex(f)
	if err != nil {
		return InvalidVertex, errors.Wrap(err, "pole synthesis")
	}
	m.SetPos(c, pos)
	return c, nil
}

// BestLoopOffset returns the offset for StitchLoops that minimises the summed
// squared distance between welded vertices. Ties keep the smallest offset.
func (m *Mesh) BestLoopOffset(a, b []VertexID) int {
	n := len(a)
	best, bestCost := 0, 0.0
	for off := 0; off < n; off++ {
		cost := 0.0
		for i := range a {
			d := m.Pos(a[i]).Sub(m.Pos(b[((off-i)%n+n)%n]))
			cost += d.LengthSq()
		}
		if off == 0 || cost < bestCost {
			best, bestCost = off, cost
		}
	}
	return best
}

// CutFace splits f along a new edge between u and w, two of its vertices
// that are not already neighbours in f. The first face runs from u to w,
// the second from w back to u.
func (m *Mesh) CutFace(f FaceID, u, w VertexID) (FaceID, FaceID, error) {
	if !m.FaceInUse(f) {
		return InvalidFace, InvalidFace, errors.Wrapf(ErrInvalidFace, "cut face %d", f)
	}
	vs := m.FaceVertices(f)
	n := len(vs)
	i, j := indexOf(vs, u), indexOf(vs, w)
	if i < 0 || j < 0 || i == j || (i+1)%n == j || (j+1)%n == i {
		return InvalidFace, InvalidFace, errors.Errorf("cut face %d: %d-%d is not a diagonal", f, u, w)
	}

	var first, second []VertexID
	for k := i; k != j; k = (k + 1) % n {
		first = append(first, vs[k])
	}
	first = append(first, w)
	for k := j; k != i; k = (k + 1) % n {
		second = append(second, vs[k])
	}
	second = append(second, u)

	m.removeFace(f)
	a, err := m.AddFace(first...)
	if err != nil {
		return InvalidFace, InvalidFace, errors.Wrapf(err, "cut face %d", f)
	}
	b, err := m.AddFace(second...)
	if err != nil {
		return InvalidFace, InvalidFace, errors.Wrapf(err, "cut face %d", f)
	}
	return a, b, nil
}

// IsolateVertex splits every edge at v and cuts each face around v so that
// v ends up in a fan of triangles over the new mid-edge vertices. The
// valence of v does not change. The returned ring holds the mid-edge
// vertices.
func (m *Mesh) IsolateVertex(v VertexID) ([]VertexID, error) {
	if !m.InUse(v) {
		return nil, errors.Wrapf(ErrInvalidVertex, "isolate %d", v)
	}
	var ring []VertexID
	for _, n := range m.Neighbors(v) {
		mid, err := m.SplitEdge(v, n)
		if err != nil {
			return nil, errors.Wrapf(err, "isolate %d", v)
		}
		ring = append(ring, mid)
	}
	for _, f := range m.IncidentFaces(v) {
		vs := m.faces[f].verts
		i := indexOf(vs, v)
		next, prev := vs[(i+1)%len(vs)], vs[(i+len(vs)-1)%len(vs)]
		if _, _, err := m.CutFace(f, next, prev); err != nil {
			return nil, errors.Wrapf(err, "isolate %d", v)
		}
	}
	return ring, nil
}

// HoleLoopVertices returns the vertices RemoveVertex(v) would leave on the
// rim of its hole.
func (m *Mesh) HoleLoopVertices(v VertexID) map[VertexID]bool {
	out := make(map[VertexID]bool)
	for _, f := range m.vertices[v].faces {
		for _, u := range m.faces[f].verts {
			if u != v {
				out[u] = true
			}
		}
	}
	return out
}

func hasRepeats(vs []VertexID) bool {
	seen := make(map[VertexID]bool, len(vs))
	for _, v := range vs {
		if seen[v] {
			return true
		}
		seen[v] = true
	}
	return false
}
