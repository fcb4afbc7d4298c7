package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/modgrow/internal/config"
	"github.com/Faultbox/modgrow/internal/engine"
	"github.com/Faultbox/modgrow/internal/grow"
	"github.com/Faultbox/modgrow/internal/logger"
	"github.com/Faultbox/modgrow/internal/mesh"
	"github.com/Faultbox/modgrow/internal/toolbox"
)

var growCmd = &cobra.Command{
	Use:   "grow",
	Short: "Grow a cube by glueing toolbox modules onto it",
	Long: `Grow starts from a cube of --host-size and glues modules drawn from the
toolbox until it is empty or --steps modules were drawn.

Examples:
  modgrow grow --toolbox parts.yaml
  modgrow grow --toolbox parts.yaml --seed 7 --steps 10 --host-size 2`,
	RunE: runGrow,
}

func sessionOptions(s config.SearchConfig) engine.Options {
	return engine.Options{
		RotationSteps:       s.RotationSteps,
		OppositeThreshold:   s.OppositeThreshold,
		NormalizeCosts:      s.NormalizeCosts,
		RequireEqualValence: s.RequireEqualValence,
		CandidatePolicy:     engine.CandidatePolicy(s.CandidatePolicy),
		RandomPlacement:     s.RandomPlacement,
	}
}

func runGrow(cmd *cobra.Command, args []string) error {
	tb, err := toolbox.Load(cfg.Toolbox.Path)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(cfg.Random.Seed))
	s := engine.New(rng, sessionOptions(cfg.Search), logger.Named("engine"))
	size := cfg.Grow.HostSize
	if err := s.SetHost(mesh.Box(size, size, size)); err != nil {
		return err
	}
	log := logger.Named("modgrow")
	log.Info("growth started",
		zap.String("session", s.ID()),
		zap.String("toolbox", cfg.Toolbox.Path),
		zap.Int("pieces", tb.Remaining()),
		zap.Int64("seed", cfg.Random.Seed))

	out := cmd.OutOrStdout()
	g := &grow.Grower{
		Session:  s,
		Toolbox:  tb,
		Rng:      rng,
		MaxSteps: cfg.Grow.MaxSteps,
		Log:      logger.Named("grow"),
		OnStep: func(st grow.Step) {
			status := "glued"
			if !st.Glued {
				status = "dropped"
			}
			fmt.Fprintf(out, "step %3d  %-16s %-8s vertices=%d faces=%d poles=%d\n",
				st.Index, st.Module, status, st.Vertices, st.Faces, st.Poles)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res, err := g.Run(ctx)
	if err != nil {
		log.Error("growth aborted", zap.Int("steps", len(res.Steps)), zap.Error(err))
		return err
	}

	m := s.Host()
	fmt.Fprintf(out, "glued %d, dropped %d, mean cost %.4g\n", res.Glued, res.Dropped, res.MeanCost)
	fmt.Fprintf(out, "final mesh: %d vertices, %d faces, closed=%t\n", m.NumVertices(), m.NumFaces(), m.IsClosed())
	return m.Validate()
}
