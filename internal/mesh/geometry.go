package mesh

import (
	gomath "math"

	"gonum.org/v1/gonum/stat"

	"github.com/Faultbox/modgrow/pkg/math"
)

// FaceNormal returns the area-weighted normal of f (Newell's method).
// The result is not normalized; its length is the face area.
func (m *Mesh) FaceNormal(f FaceID) math.Vec3 {
	vs := m.faces[f].verts
	var n math.Vec3
	for i, v := range vs {
		a := m.vertices[v].pos
		b := m.vertices[vs[(i+1)%len(vs)]].pos
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return n.Scale(0.5)
}

// VertexNormal returns the sum of the normals of the faces around v.
// Callers normalize it.
func (m *Mesh) VertexNormal(v VertexID) math.Vec3 {
	var n math.Vec3
	for _, f := range m.vertices[v].faces {
		n = n.Add(m.FaceNormal(f))
	}
	return n
}

// UnitNormal returns the normalized vertex normal of v.
func (m *Mesh) UnitNormal(v VertexID) math.Vec3 {
	return m.VertexNormal(v).Normalize()
}

// FaceCentroid returns the mean of the corners of f.
func (m *Mesh) FaceCentroid(f FaceID) math.Vec3 {
	return math.Centroid(m.Positions(m.faces[f].verts))
}

// Positions returns the positions of vs in order.
func (m *Mesh) Positions(vs []VertexID) []math.Vec3 {
	out := make([]math.Vec3, len(vs))
	for i, v := range vs {
		out[i] = m.vertices[v].pos
	}
	return out
}

// MeanRingDistance returns the mean distance from v to its neighbors, or 0
// for an isolated vertex.
func (m *Mesh) MeanRingDistance(v VertexID) float64 {
	ns := m.Neighbors(v)
	if len(ns) == 0 {
		return 0
	}
	p := m.vertices[v].pos
	d := make([]float64, len(ns))
	for i, n := range ns {
		d[i] = p.Distance(m.vertices[n].pos)
	}
	return stat.Mean(d, nil)
}

// MeanEdgeLength returns the mean length of all edges in the mesh.
func (m *Mesh) MeanEdgeLength() float64 {
	var lengths []float64
	for _, f := range m.Faces() {
		vs := m.faces[f].verts
		for i, v := range vs {
			w := vs[(i+1)%len(vs)]
			// count each undirected edge once
			if v < w || m.edgeFace(w, v) == InvalidFace {
				lengths = append(lengths, m.vertices[v].pos.Distance(m.vertices[w].pos))
			}
		}
	}
	if len(lengths) == 0 {
		return 0
	}
	return stat.Mean(lengths, nil)
}

// BoundingSphere returns the centroid of vs and the largest distance from
// it to any of them.
func (m *Mesh) BoundingSphere(vs []VertexID) (math.Vec3, float64) {
	return BoundingSphere(m.Positions(vs))
}

// BoundingSphere returns the centroid of points and the largest distance
// from it to any point.
func BoundingSphere(points []math.Vec3) (math.Vec3, float64) {
	c := math.Centroid(points)
	r := 0.0
	for _, p := range points {
		r = gomath.Max(r, c.Distance(p))
	}
	return c, r
}
