// Command gendata writes a synthetic training session in any of the dataset
// formats the trainer reads.
package main

import (
	"os"

	"bci-trainer/internal/common"
	"bci-trainer/internal/dataset"

	"github.com/alexflint/go-arg"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type args struct {
	Dir      string  `arg:"--dir" help:"output directory"`
	Name     string  `arg:"--name" help:"dataset name, without extension"`
	Format   string  `arg:"--format" help:"bolt, level or mat"`
	Channels int     `arg:"--channels"`
	Samples  int     `arg:"--samples" help:"samples per trial"`
	Trials   int     `arg:"--trials"`
	FSample  float64 `arg:"--fsample" help:"sample rate in Hz"`
	Flat     []int   `arg:"--flat" help:"indices of dead channels"`
	ClassHz  float64 `arg:"--class-hz" help:"frequency of the rhythm added to true trials"`
	Noise    float64 `arg:"--noise"`
	Seed     int64   `arg:"--seed"`
}

func (args) Description() string {
	return "Generate a synthetic BCI training session"
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	o := dataset.DefaultSynthOptions()
	a := args{
		Dir:      common.DefaultDataDir,
		Name:     common.DefaultDatasetName,
		Format:   "mat",
		Channels: o.Channels,
		Samples:  o.Samples,
		Trials:   o.Trials,
		FSample:  o.FSample,
		Flat:     o.FlatChannels,
		ClassHz:  o.ClassFreq,
		Noise:    o.NoiseLevel,
		Seed:     o.Seed,
	}
	arg.MustParse(&a)

	o.Channels, o.Samples, o.Trials = a.Channels, a.Samples, a.Trials
	o.FSample, o.FlatChannels = a.FSample, a.Flat
	o.ClassFreq, o.NoiseLevel, o.Seed = a.ClassHz, a.Noise, a.Seed

	backend, err := dataset.ByName(a.Format)
	if err != nil {
		log.Fatal().Err(err).Msg("unknown format")
	}

	ds, err := dataset.Synthesize(o)
	if err != nil {
		log.Fatal().Err(err).Msg("synthesize failed")
	}

	path, err := dataset.Save(backend, a.Dir, a.Name, ds)
	if err != nil {
		log.Fatal().Err(err).Msg("save failed")
	}

	ev := log.Info().
		Str("path", path).
		Str("format", backend.Name()).
		Int("channels", o.Channels).
		Int("samples", o.Samples).
		Int("trials", o.Trials)
	if size, err := diskUsage(path); err == nil {
		ev = ev.Str("size", humanize.Bytes(size))
	}
	ev.Msg("Wrote synthetic session")
}

// diskUsage sums file sizes under path, which may be a directory.
func diskUsage(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return uint64(info.Size()), nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, e := range entries {
		if fi, err := e.Info(); err == nil && !fi.IsDir() {
			total += uint64(fi.Size())
		}
	}
	return total, nil
}
