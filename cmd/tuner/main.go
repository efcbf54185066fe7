// The tuner evolves evaluation weights without the shell and writes the best
// set it finds to tuner-output.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bastion-go/bastion/config"
	"github.com/bastion-go/bastion/eval"
	"github.com/bastion-go/bastion/tuner"
)

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := zerolog.InfoLevel
	if cfg.GetBool(config.ConfigDebug) {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	params, err := tuner.ParamsFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("bad tuner settings")
	}
	log.Info().Str("seed", tuner.FormatSeed(params.Seed)).
		Int("population", params.Population).
		Int("generations", params.Generations).
		Int("games", params.Games).
		Int("depth", params.Depth).
		Int("threads", params.Threads).
		Msg("tuner-starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	t := tuner.New(params)
	t.SetReport(os.Stdout)
	best, err := t.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("tuner stopped early")
		if best.Fitness == 0 {
			os.Exit(1)
		}
	}

	out := cfg.GetString(config.ConfigTunerOutput)
	if err := eval.SaveWeights(out, best.Weights); err != nil {
		log.Fatal().Err(err).Msg("could not save weights")
	}
	log.Info().Float64("fitness", best.Fitness).Str("weights", best.Weights.String()).
		Str("path", out).Msg("tuner-done")
}
