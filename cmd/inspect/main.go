// Command inspect prints a saved classifier artifact and, given the session it
// was trained on, checks that the persisted parameters reproduce its accuracy.
package main

import (
	"fmt"
	"os"
	"strings"

	"bci-trainer/internal/common"
	"bci-trainer/internal/dataset"
	"bci-trainer/internal/features"
	"bci-trainer/internal/ml"
	"bci-trainer/internal/preproc"
	"bci-trainer/internal/storage"
	"bci-trainer/internal/tensor"

	"github.com/alexflint/go-arg"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type args struct {
	Dir      string `arg:"--dir" help:"directory holding the model store"`
	Model    string `arg:"--model" help:"model name"`
	Format   string `arg:"--format" help:"json or bolt"`
	Dataset  string `arg:"--dataset" help:"replay the artifact on this session"`
	Versions bool   `arg:"--versions" help:"list recorded model versions"`
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	a := args{
		Dir:    common.DefaultDataDir,
		Model:  common.DefaultModelName,
		Format: common.DefaultModelFormat,
	}
	arg.MustParse(&a)

	store, err := storage.Open(a.Format, a.Dir)
	if err != nil {
		log.Fatal().Err(err).Msg("open model store failed")
	}
	defer store.Close()

	artifact, err := store.Load(a.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("load model failed")
	}
	if err := artifact.Validate(); err != nil {
		log.Error().Err(err).Msg("artifact is inconsistent")
	}

	printArtifact(a.Model, artifact)

	if a.Versions {
		printVersions(ml.NewModelManager(a.Dir).ListVersions())
	}

	if a.Dataset != "" {
		if err := replay(a.Dir, a.Dataset, artifact); err != nil {
			log.Fatal().Err(err).Msg("replay failed")
		}
	}
}

func printArtifact(name string, a *storage.Artifact) {
	fmt.Printf("=== %s ===\n", name)
	fmt.Printf("Created: %s (%s)\n", a.Created.Format("2006-01-02 15:04:05"), humanize.Time(a.Created))
	fmt.Printf("Sample rate: %g Hz\n", a.FSample)
	fmt.Printf("Good channels: %v %s\n", a.GoodCh, strings.Join(a.Channels, " "))
	fmt.Printf("Frequency bands: %v\n", a.FreqBands)
	fmt.Printf("Features: %s\n", humanize.Comma(int64(a.NFeatures)))
	fmt.Printf("Bias: %.6g\n", a.Classifier.Bias)
	fmt.Printf("Weights: %.4g\n", a.Classifier.Weights)
}

func printVersions(versions []ml.ModelVersion) {
	fmt.Println("\n=== Versions ===")
	for _, v := range versions {
		active := " "
		if v.IsActive {
			active = "*"
		}
		fmt.Printf("%s %s  %-30s acc=%.2f trials=%d (%s)\n",
			active, v.Version, v.Location, v.Metrics.TrainingAccuracy, v.Metrics.TrainingSamples, humanize.Time(v.CreatedAt))
	}
}

func replay(dir, name string, a *storage.Artifact) error {
	loaded, err := dataset.Load(dir, name)
	if err != nil {
		return err
	}
	ds := loaded.Dataset

	labels, err := features.ExtractLabels(ds.Events, common.LabelPolicyDrop)
	if err != nil {
		return err
	}
	x, err := ds.Data.Select(tensor.AxisTrial, labels.Kept)
	if err != nil {
		return err
	}

	out, err := preproc.Apply(x, a.Replay())
	if err != nil {
		return err
	}
	X, y, err := features.Assemble(out, labels.Labels)
	if err != nil {
		return err
	}
	acc, err := a.Classifier.Accuracy(X, y)
	if err != nil {
		return err
	}

	fmt.Printf("\nReplayed on %s (%s): %d trials, accuracy %.2f%%\n", loaded.Path, loaded.Backend, len(y), acc*100)
	return nil
}
