// Package grow drives a session: it draws modules from a toolbox and glues
// them onto the host one after another.
package grow

import (
	"context"
	"math/rand"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/Faultbox/modgrow/internal/engine"
	"github.com/Faultbox/modgrow/internal/glue"
	"github.com/Faultbox/modgrow/internal/toolbox"
)

// Step records one module draw.
type Step struct {
	Index    int
	Module   string
	Glued    bool
	Cost     float64 // distance part of the glueing cost
	Vertices int
	Faces    int
	Poles    int
}

// Result summarizes a run.
type Result struct {
	Steps   []Step
	Glued   int
	Dropped int
	// MeanCost averages the distance cost over glued steps.
	MeanCost float64
}

// Grower glues toolbox modules onto the host of Session until the toolbox
// runs out or MaxSteps draws were made. MaxSteps <= 0 means no limit.
type Grower struct {
	Session  *engine.Session
	Toolbox  *toolbox.Toolbox
	Rng      *rand.Rand
	MaxSteps int
	Log      *zap.Logger

	// OnStep, when set, is called after every draw.
	OnStep func(Step)
}

// Run grows the host. A module that cannot be glued is detached again and
// the run goes on with the next draw.
func (g *Grower) Run(ctx context.Context) (Result, error) {
	log := g.Log
	if log == nil {
		log = zap.NewNop()
	}
	rng := g.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	var res Result
	var costs []float64
	for i := 0; g.MaxSteps <= 0 || i < g.MaxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !g.Toolbox.HasNext() {
			log.Info("toolbox exhausted", zap.Int("steps", i))
			break
		}

		step, err := g.step(ctx, rng, i, log)
		if err != nil {
			return res, err
		}
		res.Steps = append(res.Steps, step)
		if step.Glued {
			res.Glued++
			costs = append(costs, step.Cost)
		} else {
			res.Dropped++
		}
		if g.OnStep != nil {
			g.OnStep(step)
		}
	}
	if len(costs) > 0 {
		res.MeanCost = stat.Mean(costs, nil)
	}
	log.Info("growth finished",
		zap.Int("glued", res.Glued),
		zap.Int("dropped", res.Dropped),
		zap.Float64("mean_cost", res.MeanCost))
	return res, nil
}

func (g *Grower) step(ctx context.Context, rng *rand.Rand, i int, log *zap.Logger) (Step, error) {
	d, err := g.Toolbox.Next(rng)
	if err != nil {
		return Step{}, err
	}
	step := Step{Index: i, Module: d.Name}
	log = log.With(zap.Int("step", i), zap.String("module", d.Name))

	if err := g.Session.AttachModule(d.Module); err != nil {
		return step, errors.Wrapf(err, "step %d", i)
	}
	best, err := g.Session.SearchBestGlueing(ctx, d.Glueings)
	switch {
	case err == nil:
		_, err = g.Session.ApplyGlueing()
	case errors.Is(err, glue.ErrNoGlueing), errors.Is(err, glue.ErrPrecondition):
	default:
		return step, errors.Wrapf(err, "step %d", i)
	}
	if err != nil {
		// search and glue failures leave the host as it was
		log.Warn("module dropped", zap.Error(err))
		if err := g.Session.DetachModule(); err != nil {
			return step, errors.Wrapf(err, "step %d", i)
		}
		g.fill(&step)
		return step, nil
	}
	step.Glued = true
	step.Cost = best.Cost.Dist
	g.fill(&step)
	log.Debug("module glued", zap.Int("vertices", step.Vertices), zap.Int("poles", step.Poles))
	return step, nil
}

func (g *Grower) fill(step *Step) {
	m := g.Session.Host()
	step.Vertices = m.NumVertices()
	step.Faces = m.NumFaces()
	step.Poles = len(m.Poles())
}
