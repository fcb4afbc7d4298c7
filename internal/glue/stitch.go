package glue

import (
	"go.uber.org/zap"

	"github.com/Faultbox/modgrow/internal/mesh"
)

// maxIsolationRounds bounds how often matched poles are refined before
// their holes stop touching.
const maxIsolationRounds = 3

// Glue joins module and host at every match. Regular vertices on either
// side are first turned into poles. Poles whose holes would touch are
// refined until the holes are apart. Each pair of poles is then removed
// and the two holes are welded; when the holes differ in length the
// shorter one is subdivided first.
//
// The returned Remap maps identifiers from before the call to those valid
// afterwards. On error m is left as it was.
func Glue(m *mesh.Mesh, matches []Match, log *zap.Logger) (mesh.Remap, error) {
	const op = "glue"
	if log == nil {
		log = zap.NewNop()
	}
	if len(matches) == 0 {
		return mesh.Remap{}, Preconditionf(op, "no matches")
	}
	seen := make(map[mesh.VertexID]bool, 2*len(matches))
	for _, mt := range matches {
		for _, v := range []mesh.VertexID{mt.Module, mt.Host} {
			if seen[v] || !m.InUse(v) {
				return mesh.Remap{}, Preconditionf(op, "vertex %d is reused or not in use", v)
			}
			seen[v] = true
		}
	}

	work := m.Clone()
	ms := append([]Match(nil), matches...)
	for i := range ms {
		var err error
		if ms[i].Host, err = ensurePole(work, ms[i].Host, log); err != nil {
			return mesh.Remap{}, Wrap(err, KindNumeric, op)
		}
		if ms[i].Module, err = ensurePole(work, ms[i].Module, log); err != nil {
			return mesh.Remap{}, Wrap(err, KindNumeric, op)
		}
	}
	remap := work.Cleanup()
	poles := make([]mesh.VertexID, 0, 2*len(ms))
	for i := range ms {
		ms[i] = Match{Module: remap.Vertex(ms[i].Module), Host: remap.Vertex(ms[i].Host)}
		poles = append(poles, ms[i].Host, ms[i].Module)
	}

	if err := separateHoles(work, poles, log); err != nil {
		return mesh.Remap{}, Wrap(err, KindNumeric, op)
	}
	for _, mt := range ms {
		if err := stitchPair(work, mt, log); err != nil {
			return mesh.Remap{}, Wrap(err, KindNumeric, op)
		}
	}
	remap = remap.Then(work.Cleanup())
	*m = *work
	return remap, nil
}

// separateHoles refines poles until no two of them would leave holes that
// share a vertex or an edge, or contain one another.
func separateHoles(m *mesh.Mesh, poles []mesh.VertexID, log *zap.Logger) error {
	for round := 0; holesTouch(m, poles); round++ {
		if round == maxIsolationRounds {
			return Preconditionf("separate holes", "poles still touch after %d rounds", round)
		}
		for _, p := range poles {
			if _, err := m.IsolateVertex(p); err != nil {
				return err
			}
		}
		log.Debug("isolated matched poles", zap.Int("round", round+1), zap.Int("poles", len(poles)))
	}
	return nil
}

func holesTouch(m *mesh.Mesh, poles []mesh.VertexID) bool {
	holes := make([]map[mesh.VertexID]bool, len(poles))
	for i, p := range poles {
		holes[i] = m.HoleLoopVertices(p)
	}
	for i := range poles {
		for j := i + 1; j < len(poles); j++ {
			if holes[i][poles[j]] || holes[j][poles[i]] {
				return true
			}
			for u := range holes[i] {
				if holes[j][u] {
					return true
				}
				for _, n := range m.Neighbors(u) {
					if holes[j][n] {
						return true
					}
				}
			}
		}
	}
	return false
}

func ensurePole(m *mesh.Mesh, v mesh.VertexID, log *zap.Logger) (mesh.VertexID, error) {
	if m.IsPole(v) {
		return v, nil
	}
	p, err := m.PoleAt(v)
	if err != nil {
		return mesh.InvalidVertex, err
	}
	log.Debug("synthesized pole", zap.Int("vertex", int(v)), zap.Int("pole", int(p)), zap.Int("valence", m.Valence(p)))
	return p, nil
}

func stitchPair(m *mesh.Mesh, mt Match, log *zap.Logger) error {
	if !m.InUse(mt.Host) || !m.InUse(mt.Module) {
		return Preconditionf("stitch", "match %d-%d is no longer in the mesh", mt.Module, mt.Host)
	}
	a, err := m.RemoveVertex(mt.Host)
	if err != nil {
		return err
	}
	b, err := m.RemoveVertex(mt.Module)
	if err != nil {
		return err
	}

	switch d := len(b) - len(a); {
	case d > 0:
		a, err = m.SubdivideLoop(a, d)
	case d < 0:
		b, err = m.SubdivideLoop(b, -d)
	}
	if err != nil {
		return err
	}
	off := m.BestLoopOffset(a, b)
	log.Debug("stitching",
		zap.Int("host", int(mt.Host)),
		zap.Int("module", int(mt.Module)),
		zap.Int("loop", len(a)),
		zap.Int("offset", off))
	return m.StitchLoops(a, b, off)
}
