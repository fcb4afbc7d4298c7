package mesh

// Remap maps vertex identifiers from before a compaction or merge to the
// identifiers valid afterwards.
type Remap struct {
	vertices []VertexID
}

// Vertex returns the new identifier of old, or InvalidVertex when old was
// removed.
func (r Remap) Vertex(old VertexID) VertexID {
	if old < 0 || int(old) >= len(r.vertices) {
		return InvalidVertex
	}
	return r.vertices[old]
}

// Vertices maps every element of vs, dropping removed ones.
func (r Remap) Vertices(vs []VertexID) []VertexID {
	out := make([]VertexID, 0, len(vs))
	for _, v := range vs {
		if n := r.Vertex(v); n != InvalidVertex {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the size of the old identifier space.
func (r Remap) Len() int { return len(r.vertices) }

// Cleanup compacts the vertex and face arenas. Every identifier held
// outside the mesh must be passed through the returned Remap.
func (m *Mesh) Cleanup() Remap {
	remap := Remap{vertices: make([]VertexID, len(m.vertices))}
	vertices := make([]vertex, 0, m.nv)
	for i, v := range m.vertices {
		if !v.alive {
			remap.vertices[i] = InvalidVertex
			continue
		}
		remap.vertices[i] = VertexID(len(vertices))
		vertices = append(vertices, vertex{pos: v.pos, alive: true})
	}

	faces := make([]face, 0, m.nf)
	for _, f := range m.faces {
		if !f.alive {
			continue
		}
		id := FaceID(len(faces))
		vs := make([]VertexID, len(f.verts))
		for k, v := range f.verts {
			vs[k] = remap.vertices[v]
			vertices[vs[k]].faces = append(vertices[vs[k]].faces, id)
		}
		faces = append(faces, face{verts: vs, alive: true})
	}

	m.vertices, m.faces = vertices, faces
	m.nv, m.nf = len(vertices), len(faces)
	return remap
}

// Merge appends a copy of other to m. The returned Remap translates
// identifiers of other into identifiers of m.
func (m *Mesh) Merge(other *Mesh) Remap {
	remap := Remap{vertices: make([]VertexID, len(other.vertices))}
	for i, v := range other.vertices {
		if !v.alive {
			remap.vertices[i] = InvalidVertex
			continue
		}
		remap.vertices[i] = m.AddVertex(v.pos)
	}
	for _, f := range other.faces {
		if !f.alive {
			continue
		}
		id := FaceID(len(m.faces))
		vs := make([]VertexID, len(f.verts))
		for k, v := range f.verts {
			vs[k] = remap.vertices[v]
			m.vertices[vs[k]].faces = append(m.vertices[vs[k]].faces, id)
		}
		m.faces = append(m.faces, face{verts: vs, alive: true})
		m.nf++
	}
	return remap
}

// Clone returns a deep copy of m with the same identifiers.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		vertices: make([]vertex, len(m.vertices)),
		faces:    make([]face, len(m.faces)),
		nv:       m.nv,
		nf:       m.nf,
	}
	for i, v := range m.vertices {
		c.vertices[i] = vertex{pos: v.pos, alive: v.alive, faces: append([]FaceID(nil), v.faces...)}
	}
	for i, f := range m.faces {
		c.faces[i] = face{verts: append([]VertexID(nil), f.verts...), alive: f.alive}
	}
	return c
}

// Then returns the remap that applies r and then next.
func (r Remap) Then(next Remap) Remap {
	out := Remap{vertices: make([]VertexID, len(r.vertices))}
	for i, v := range r.vertices {
		out.vertices[i] = next.Vertex(v)
	}
	return out
}
