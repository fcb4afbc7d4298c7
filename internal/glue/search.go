package glue

import (
	"context"
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/modgrow/internal/graph"
	"github.com/Faultbox/modgrow/internal/mesh"
	"github.com/Faultbox/modgrow/pkg/math"
)

// DefaultRotationSteps is the number of rotations tried about each host
// candidate normal, pi/8 apart.
const DefaultRotationSteps = 16

// Configuration is one candidate placement of the module.
type Configuration struct {
	Transform math.Mat4
	Host      mesh.VertexID // candidate the pole was brought to
	Pole      mesh.VertexID
	Step      int
	Angle     float64
	Poles     PoleMap // module poles after Transform

	Matches []Match
	Cost    graph.EdgeCost
}

// Searcher enumerates placements of a module and picks the best one.
type Searcher struct {
	Matcher        *Matcher
	RotationSteps  int
	NormalizeCosts bool
	Log            *zap.Logger
}

func (s *Searcher) steps() int {
	if s.RotationSteps <= 0 {
		return DefaultRotationSteps
	}
	return s.RotationSteps
}

func (s *Searcher) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// Configurations places every pole on every host candidate. The pole normal
// is turned against the candidate normal about the module centroid, the
// pole is moved onto the candidate, and the result is swept about the
// candidate normal in equal steps. Candidates and poles are visited in
// ascending order.
func (s *Searcher) Configurations(poles PoleMap, centroid math.Vec3) []Configuration {
	host := s.Matcher.Host
	steps := s.steps()
	step := 2 * gomath.Pi / float64(steps)

	var out []Configuration
	for _, h := range s.Matcher.Candidates.IDs() {
		hp := host.Pos(h)
		hn := host.UnitNormal(h)
		for _, p := range poles.IDs() {
			pi := poles[p]
			align := math.AlignVectors(pi.Normal, hn.Neg(), centroid)
			to := math.TranslateVec(hp.Sub(align.TransformPoint(pi.Pos)))
			base := to.Mul(align)

			for k := 0; k < steps; k++ {
				angle := float64(k) * step
				t := math.RotateAbout(hn, angle, hp).Mul(base)
				out = append(out, Configuration{
					Transform: t,
					Host:      h,
					Pole:      p,
					Step:      k,
					Angle:     angle,
					Poles:     poles.Transform(t),
				})
			}
		}
	}
	return out
}

// Search evaluates every configuration and returns the one with the lowest
// cost among those reaching target matches. Ties keep the first found. It
// fails with ErrNoGlueing when no configuration reaches the target.
func (s *Searcher) Search(ctx context.Context, poles PoleMap, centroid math.Vec3, target int) (Configuration, error) {
	const op = "search best glueing"
	if target < 1 || target > len(poles) {
		return Configuration{}, Preconditionf(op, "target %d outside [1, %d]", target, len(poles))
	}
	if target > len(s.Matcher.Candidates) {
		return Configuration{}, Preconditionf(op, "target %d exceeds %d host candidates", target, len(s.Matcher.Candidates))
	}

	log := s.log()
	configs := s.Configurations(poles, centroid)
	best, found, rejected := Configuration{}, false, 0
	for i := range configs {
		if err := ctx.Err(); err != nil {
			return Configuration{}, err
		}
		c := &configs[i]
		if !c.Transform.IsFinite() {
			log.Warn("skipping non-finite configuration", zap.Int("host", int(c.Host)), zap.Int("pole", int(c.Pole)))
			continue
		}

		matches := s.Matcher.Match(c.Poles)
		if len(matches) < target {
			rejected++
			continue
		}
		subset, cost, err := SelectBestSubset(s.Matcher.Host, c.Poles, matches, target, s.NormalizeCosts)
		if err != nil {
			return Configuration{}, err
		}
		c.Matches, c.Cost = subset, cost
		log.Debug("configuration",
			zap.Int("index", i),
			zap.Int("host", int(c.Host)),
			zap.Int("pole", int(c.Pole)),
			zap.Float64("angle", c.Angle),
			zap.Float64("cost_dist", cost.Dist),
			zap.Float64("cost_angle", cost.Angle))

		if !found || cost.Less(best.Cost) {
			best, found = *c, true
		}
	}

	log.Info("search finished",
		zap.Int("configurations", len(configs)),
		zap.Int("rejected", rejected),
		zap.Bool("found", found))
	if !found {
		return Configuration{}, Exhaustedf(op, "none of %d configurations reaches %d matches", len(configs), target)
	}
	return best, nil
}
