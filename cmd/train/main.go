// Command train fits a classifier to the recorded training session in the
// working directory and saves it next to the data. It takes no arguments;
// see internal/cfg for the environment and config file settings.
package main

import (
	"os"

	"bci-trainer/internal/cfg"
	"bci-trainer/internal/training"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	res, err := training.NewEngine(c, nil).Run()
	if err != nil {
		log.Fatal().Err(err).Msg("training failed")
	}

	reporter := training.NewReporter(res)
	reporter.LogSummary()
	reporter.PrintSummary(os.Stdout)
}
