package main

import (
	"github.com/spf13/cobra"

	"github.com/Faultbox/modgrow/internal/config"
	"github.com/Faultbox/modgrow/internal/logger"
)

var (
	flags *config.Flags
	cfg   *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "modgrow",
	Short: "Grow polygon meshes by glueing modules onto them",
	Long: `modgrow grows a polygon mesh by attaching modules from a toolbox.

Each module is matched to the host at its poles (vertices whose valence
differs from four), aligned and stitched into the host mesh.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(flags); err != nil {
			return err
		}
		return logger.Init(cfg.Logging.Level, cfg.Logging.LogFile)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	flags = config.BindFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(growCmd, inspectCmd, versionCmd)
}
