package config

import "github.com/spf13/pflag"

// Flags are the command line overrides of a Config. Only flags set
// explicitly on the command line override file values.
type Flags struct {
	fs *pflag.FlagSet

	ConfigPath string
	Debug      bool
	Toolbox    string
	Seed       int64
	Steps      int
	HostSize   float64
}

// BindFlags registers the config flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.Toolbox, "toolbox", "", "Path to toolbox file")
	fs.Int64Var(&f.Seed, "seed", 0, "Random seed")
	fs.IntVar(&f.Steps, "steps", 0, "Maximum number of modules to draw (0 = all)")
	fs.Float64Var(&f.HostSize, "host-size", 0, "Edge length of the starting cube")
	return f
}

func (f *Flags) configPath() string {
	if f == nil {
		return ""
	}
	return f.ConfigPath
}

func (f *Flags) changed(name string) bool {
	return f.fs != nil && f.fs.Changed(name)
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.changed("toolbox") {
		cfg.Toolbox.Path = f.Toolbox
	}
	if f.changed("seed") {
		cfg.Random.Seed = f.Seed
	}
	if f.changed("steps") {
		cfg.Grow.MaxSteps = f.Steps
	}
	if f.changed("host-size") {
		cfg.Grow.HostSize = f.HostSize
	}
}
