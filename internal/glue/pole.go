// Package glue finds where a module fits on a host and stitches it there.
//
// The pipeline runs in four stages. Transformation Search places the
// module's poles at every host candidate under 16 rotations. The Matcher
// pairs module poles with host candidates for each placement, and Subset
// Selection keeps the pairs that distort the module least. Finally
// Alignment fits the module onto the chosen pairs and stitches the
// topologies together.
package glue

import (
	"sort"
	"strings"

	"github.com/Faultbox/modgrow/internal/mesh"
	"github.com/Faultbox/modgrow/pkg/math"
)

// Label tags poles so that only compatible ones are matched.
type Label uint8

// Labels.
const (
	LabelNone    Label = 0
	LabelRed     Label = 1
	LabelBlue    Label = 2
	LabelGreen   Label = 4
	LabelCyan    Label = 8
	LabelMagenta Label = 16
	LabelYellow  Label = 32
	LabelPurple  Label = 64
	LabelAll     Label = 127
)

var labelNames = []struct {
	name  string
	label Label
}{
	{"red", LabelRed},
	{"blue", LabelBlue},
	{"green", LabelGreen},
	{"cyan", LabelCyan},
	{"magenta", LabelMagenta},
	{"yellow", LabelYellow},
	{"purple", LabelPurple},
}

// ParseLabels turns names such as "red", "all" or "none" into a mask.
// Unknown names yield ok == false.
func ParseLabels(names []string) (Label, bool) {
	if len(names) == 0 {
		return LabelAll, true
	}
	var l Label
	for _, n := range names {
		switch n = strings.ToLower(strings.TrimSpace(n)); n {
		case "all":
			l |= LabelAll
			continue
		case "none":
			continue
		}
		found := false
		for _, ln := range labelNames {
			if ln.name == n {
				l |= ln.label
				found = true
			}
		}
		if !found {
			return 0, false
		}
	}
	return l, true
}

// Matches reports whether l and other share a label.
func (l Label) Matches(other Label) bool { return l&other != 0 }

func (l Label) String() string {
	switch l {
	case LabelNone:
		return "none"
	case LabelAll:
		return "all"
	}
	var parts []string
	for _, ln := range labelNames {
		if l&ln.label != 0 {
			parts = append(parts, ln.name)
		}
	}
	return strings.Join(parts, "|")
}

// ModuleType identifies the kind of module a pole came from.
type ModuleType uint

// PoleInfo is the geometry and bookkeeping of one pole.
type PoleInfo struct {
	Valence    int
	Pos        math.Vec3
	Normal     math.Vec3
	ModuleType ModuleType
	Labels     Label
	Age        int
	Free       bool
}

// PoleMap holds the pole info of a module by vertex.
type PoleMap map[mesh.VertexID]PoleInfo

// ReadPoles collects the info of every pole among vs.
func ReadPoles(m *mesh.Mesh, vs []mesh.VertexID, mt ModuleType, labels Label) PoleMap {
	pm := make(PoleMap)
	for _, v := range vs {
		if !m.IsPole(v) {
			continue
		}
		pm[v] = PoleInfo{
			Valence:    m.Valence(v),
			Pos:        m.Pos(v),
			Normal:     m.UnitNormal(v),
			ModuleType: mt,
			Labels:     labels,
		}
	}
	return pm
}

// IDs returns the poles in ascending order.
func (pm PoleMap) IDs() []mesh.VertexID {
	ids := make([]mesh.VertexID, 0, len(pm))
	for id := range pm {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Transform returns a copy with positions mapped through t and normals
// through its linear part, renormalized.
func (pm PoleMap) Transform(t math.Mat4) PoleMap {
	out := make(PoleMap, len(pm))
	for id, pi := range pm {
		pi.Pos = t.TransformPoint(pi.Pos)
		pi.Normal = t.TransformDirection(pi.Normal).Normalize()
		out[id] = pi
	}
	return out
}

// Remap moves the map onto new identifiers, dropping removed vertices.
func (pm PoleMap) Remap(r mesh.Remap) PoleMap {
	out := make(PoleMap, len(pm))
	for id, pi := range pm {
		if n := r.Vertex(id); n != mesh.InvalidVertex {
			out[n] = pi
		}
	}
	return out
}

// CandidateInfo is the per-candidate data kept for host vertices eligible
// for matching.
type CandidateInfo struct {
	Labels Label
}

// Candidates maps host vertices to their candidate info.
type Candidates map[mesh.VertexID]CandidateInfo

// IDs returns the candidates in ascending order.
func (c Candidates) IDs() []mesh.VertexID {
	ids := make([]mesh.VertexID, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
