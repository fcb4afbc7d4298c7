package glue

import (
	"github.com/Faultbox/modgrow/internal/graph"
	"github.com/Faultbox/modgrow/pkg/math"
)

// SelectBestSubset keeps the target matches whose module poles and host
// vertices agree best in relative distance and normal angle.
//
// Node i of both compatibility graphs stands for matches[i]. The host graph
// is subtracted from the module graph and the node with the largest star
// cost is pruned until target nodes remain. The returned cost sums the
// stars of the survivors, so each retained edge counts twice; it is only
// meant for comparing configurations.
func SelectBestSubset(host Host, poles PoleMap, matches []Match, target int, normalize bool) ([]Match, graph.EdgeCost, error) {
	const op = "select best subset"
	if target < 1 || target > len(matches) {
		return nil, graph.EdgeCost{}, Preconditionf(op, "target %d outside [1, %d]", target, len(matches))
	}

	n := len(matches)
	mPos, mNrm := make([]math.Vec3, n), make([]math.Vec3, n)
	hPos, hNrm := make([]math.Vec3, n), make([]math.Vec3, n)
	for i, m := range matches {
		pi, ok := poles[m.Module]
		if !ok {
			return nil, graph.EdgeCost{}, Preconditionf(op, "vertex %d is not a module pole", m.Module)
		}
		mPos[i], mNrm[i] = pi.Pos, pi.Normal
		hPos[i], hNrm[i] = host.Pos(m.Host), host.UnitNormal(m.Host)
	}

	mg, err := graph.Build(mPos, mNrm)
	if err != nil {
		return nil, graph.EdgeCost{}, Wrap(err, KindPrecondition, op)
	}
	hg, err := graph.Build(hPos, hNrm)
	if err != nil {
		return nil, graph.EdgeCost{}, Wrap(err, KindPrecondition, op)
	}
	if normalize {
		graph.Normalize(mg)
		graph.Normalize(hg)
	}
	diff, err := graph.Difference(mg, hg)
	if err != nil {
		return nil, graph.EdgeCost{}, Wrap(err, KindPrecondition, op)
	}

	kept, cost := graph.Prune(diff, target)
	out := make([]Match, len(kept))
	for i, k := range kept {
		out[i] = matches[k]
	}
	return out, cost, nil
}
