package glue

import (
	"sort"

	"github.com/Faultbox/modgrow/internal/mesh"
	"github.com/Faultbox/modgrow/internal/spatial"
	"github.com/Faultbox/modgrow/pkg/math"
)

// DefaultOppositeThreshold is the dot product two unit normals must fall
// below to count as facing each other.
const DefaultOppositeThreshold = -1e-5

// Host is the read-only view of the host mesh needed for matching.
// *mesh.Mesh implements it.
type Host interface {
	Pos(mesh.VertexID) math.Vec3
	UnitNormal(mesh.VertexID) math.Vec3
	Valence(mesh.VertexID) int
	MeanRingDistance(mesh.VertexID) float64
}

// Match pairs a module pole with the host vertex it will be glued to.
type Match struct {
	Module mesh.VertexID
	Host   mesh.VertexID
}

// OppositeDirections reports whether a and b point away from each other by
// more than a right angle.
func OppositeDirections(a, b math.Vec3) bool {
	return opposite(a, b, DefaultOppositeThreshold)
}

func opposite(a, b math.Vec3, threshold float64) bool {
	return a.Normalize().Dot(b.Normalize()) < threshold
}

// Matcher assigns module poles to host candidates one to one.
type Matcher struct {
	Host       Host
	Index      *spatial.Index
	Candidates Candidates

	// OppositeThreshold defaults to DefaultOppositeThreshold when zero.
	OppositeThreshold float64
	// IgnoreValence accepts host vertices whatever their valence.
	IgnoreValence bool
}

func (mt *Matcher) threshold() float64 {
	if mt.OppositeThreshold == 0 {
		return DefaultOppositeThreshold
	}
	return mt.OppositeThreshold
}

// accepts reports whether host vertex h may be glued to pole pi.
func (mt *Matcher) accepts(pi PoleInfo, h mesh.VertexID) bool {
	if !opposite(pi.Normal, mt.Host.UnitNormal(h), mt.threshold()) {
		return false
	}
	if !mt.IgnoreValence && mt.Host.Valence(h) != pi.Valence {
		return false
	}
	labels := LabelAll
	if ci, ok := mt.Candidates[h]; ok {
		labels = ci.Labels
	}
	return pi.Labels.Matches(labels)
}

type claim struct {
	pole mesh.VertexID
	dist float64
}

// Match pairs the poles with host candidates. Every pole first claims its
// nearest candidate. A candidate claimed several times goes to the closest
// claimant; the others search the neighbourhood of the lost candidate for
// a free compatible one. Poles without a compatible candidate are dropped.
// The result is ordered by module pole.
func (mt *Matcher) Match(poles PoleMap) []Match {
	claims := make(map[mesh.VertexID][]claim)
	lost := make(map[mesh.VertexID]mesh.VertexID)
	assigned := make(map[mesh.VertexID]bool)

	for _, id := range poles.IDs() {
		pi := poles[id]
		n, ok := mt.Index.Nearest(pi.Pos)
		if !ok {
			return nil
		}
		if !mt.accepts(pi, n.ID) {
			continue
		}
		claims[n.ID] = append(claims[n.ID], claim{pole: id, dist: n.Dist})
		assigned[n.ID] = true
		lost[id] = n.ID
	}

	var out []Match
	var unassigned []mesh.VertexID
	for _, h := range sortedKeys(claims) {
		cs := claims[h]
		nearest := cs[0]
		for _, c := range cs[1:] {
			if c.dist < nearest.dist {
				nearest = c
			}
		}
		out = append(out, Match{Module: nearest.pole, Host: h})
		for _, c := range cs {
			if c.pole != nearest.pole {
				unassigned = append(unassigned, c.pole)
			}
		}
	}

	sort.Slice(unassigned, func(i, j int) bool { return unassigned[i] < unassigned[j] })
	for _, id := range unassigned {
		if h, ok := mt.secondClosest(poles[id], lost[id], assigned); ok {
			assigned[h] = true
			out = append(out, Match{Module: id, Host: h})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Module < out[j].Module })
	return out
}

// secondClosest scans the candidates within the mean ring distance of the
// lost candidate, nearest first, for the first free compatible one.
func (mt *Matcher) secondClosest(pi PoleInfo, lost mesh.VertexID, assigned map[mesh.VertexID]bool) (mesh.VertexID, bool) {
	r := mt.Host.MeanRingDistance(lost)
	for _, n := range mt.Index.InSphere(mt.Host.Pos(lost), r) {
		if !assigned[n.ID] && mt.accepts(pi, n.ID) {
			return n.ID, true
		}
	}
	return mesh.InvalidVertex, false
}

func sortedKeys(m map[mesh.VertexID][]claim) []mesh.VertexID {
	ks := make([]mesh.VertexID, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Slice(ks, func(i, j int) bool { return ks[i] < ks[j] })
	return ks
}
