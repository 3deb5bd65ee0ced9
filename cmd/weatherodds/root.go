package main

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/weatherodds/weatherodds/internal/climate"
	"github.com/weatherodds/weatherodds/internal/config"
	"github.com/weatherodds/weatherodds/internal/provider/resilience"
)

// serviceFactory builds the analysis service. offline skips the provider so
// every result comes from fallback data.
type serviceFactory func(log zerolog.Logger, offline bool) (*climate.Service, error)

func defaultServiceFactory(log zerolog.Logger, offline bool) (*climate.Service, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if offline {
		return climate.NewService(climate.ServiceConfig{
			Fallback:    climate.NewSeededFallback(cfg.FallbackSeed, cfg.FallbackSamples),
			Logger:      log,
			WindowYears: cfg.WindowYears,
		}), nil
	}
	return cfg.NewClimateService(config.ServiceDeps{
		Logger:   log,
		Registry: resilience.NewRegistry(),
	}), nil
}

func newRootCmd(factory serviceFactory) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "weatherodds",
		Short: "weatherodds - historical weather probability analysis",
		Long: `weatherodds estimates how likely weather conditions are on a given
calendar date at a location, based on NASA POWER daily climatology.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log provider activity to stderr")

	logger := func(w io.Writer) zerolog.Logger {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
			Level(level).
			With().
			Timestamp().
			Logger()
	}

	root.AddCommand(
		newAnalyzeCmd(func(cmd *cobra.Command, offline bool) (*climate.Service, error) {
			return factory(logger(cmd.ErrOrStderr()), offline)
		}),
		newParametersCmd(),
	)
	return root
}
