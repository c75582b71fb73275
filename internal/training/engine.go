// Package training runs one offline training session end to end: load the
// recorded dataset, derive labels, preprocess, assemble features, fit the
// classifier and persist the artifact.
package training

import (
	"fmt"
	"time"

	"bci-trainer/internal/cfg"
	"bci-trainer/internal/dataset"
	"bci-trainer/internal/features"
	"bci-trainer/internal/metrics"
	"bci-trainer/internal/ml"
	"bci-trainer/internal/preproc"
	"bci-trainer/internal/storage"
	"bci-trainer/internal/tensor"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

// Engine is a single-use training run.
type Engine struct {
	config   cfg.Settings
	backends []dataset.Backend
	metrics  *metrics.Metrics
	wrapper  *metrics.MetricsWrapper
}

// Results collects everything a run decided, for reporting.
type Results struct {
	StartTime time.Time
	EndTime   time.Time

	Backend  string
	DataPath string
	RawDims  [3]int // channels, samples, trials

	UnknownLabels []int
	DroppedTrials []int // trials left out for an unknown label

	State         *preproc.State
	FeatureRows   int
	FeatureCols   int
	ClassMeanDiff []float64

	Classifier *ml.LinearClassifier
	Model      ml.ModelMetrics

	ArtifactLocation string
	ArtifactBytes    int
	Version          string
}

// NewEngine creates an engine. A nil m gets a private registry.
func NewEngine(config cfg.Settings, m *metrics.Metrics) *Engine {
	if m == nil {
		m = metrics.New()
	}
	return &Engine{
		config:   config,
		backends: dataset.DefaultBackends(),
		metrics:  m,
		wrapper:  metrics.NewWrapper(m),
	}
}

// WithBackends replaces the dataset formats tried on load, in rank order.
func (e *Engine) WithBackends(backends ...dataset.Backend) *Engine {
	e.backends = backends
	return e
}

// Run executes the session. The artifact is written only after every earlier
// stage succeeded.
func (e *Engine) Run() (res *Results, err error) {
	res = &Results{StartTime: time.Now()}
	e.wrapper.RunsInc()

	defer func() {
		res.EndTime = time.Now()
		if err != nil {
			e.wrapper.ErrorsInc()
		}
		if e.config.MetricsFile != "" {
			if werr := e.metrics.WriteTextfile(e.config.MetricsFile); werr != nil {
				log.Warn().Err(werr).Msg("Failed to write metrics file")
			}
		}
	}()

	log.Info().
		Str("dir", e.config.DataDir).
		Str("dataset", e.config.DatasetName).
		Floats64("freq_bands", e.config.FreqBands).
		Msg("Starting training run")

	loaded, err := dataset.Load(e.config.DataDir, e.config.DatasetName, e.backends...)
	if err != nil {
		return res, err
	}
	ds := loaded.Dataset
	res.Backend, res.DataPath = loaded.Backend, loaded.Path
	ch, ns, tr := ds.Data.Dims()
	res.RawDims = [3]int{ch, ns, tr}

	log.Info().
		Str("backend", loaded.Backend).
		Str("path", loaded.Path).
		Int("channels", ch).
		Int("samples", ns).
		Int("trials", tr).
		Float64("fsample", ds.Header.FSample).
		Msg("Loaded dataset")
	log.Debug().Interface("header", ds.Header).Msg("Dataset header")

	labels, err := features.ExtractLabels(ds.Events, e.config.UnknownLabelPolicy)
	if err != nil {
		return res, fmt.Errorf("extract labels: %w", err)
	}
	res.UnknownLabels = labels.Unknown
	e.wrapper.UnknownLabelsAdd(len(labels.Unknown))
	if len(labels.Unknown) > 0 {
		log.Warn().
			Ints("trials", labels.Unknown).
			Str("policy", e.config.UnknownLabelPolicy).
			Msg("Events with unrecognised labels")
	}

	x := ds.Data
	if len(labels.Kept) != tr {
		res.DroppedTrials = labels.Unknown
		if x, err = x.Select(tensor.AxisTrial, labels.Kept); err != nil {
			return res, fmt.Errorf("drop unlabelled trials: %w", err)
		}
	}

	pipe := preproc.New(preproc.Params{
		FSample:         ds.Header.FSample,
		FreqBands:       e.config.FreqBands,
		ChannelOutliers: preproc.OutlierOptions{
			Method:    e.config.OutlierMethod,
			Threshold: e.config.ChannelThreshold,
			MaxIter:   e.config.OutlierMaxIter,
		},
		TrialOutliers: preproc.OutlierOptions{
			Method:    e.config.OutlierMethod,
			Threshold: e.config.TrialThreshold,
			MaxIter:   e.config.OutlierMaxIter,
		},
	}, e.wrapper)

	processed, st, err := pipe.Run(x, labels.Labels)
	if err != nil {
		return res, fmt.Errorf("preprocess: %w", err)
	}
	res.State = st
	e.wrapper.ChannelsSet(len(st.GoodChannels), len(st.BadChannels))
	e.wrapper.TrialsSet(len(st.GoodTrials), len(st.BadTrials))

	log.Info().
		Ints("good_channels", st.GoodChannels).
		Strs("channel_names", ds.Header.ChannelLabels(st.GoodChannels)).
		Ints("bad_channels", st.BadChannels).
		Ints("bad_trials", st.BadTrials).
		Floats64("band_centres", st.Freqs).
		Msg("Preprocessing complete")

	X, y, err := features.Assemble(processed, st.Labels)
	if err != nil {
		return res, fmt.Errorf("assemble features: %w", err)
	}
	res.FeatureRows, res.FeatureCols = X.Dims()

	if diff, derr := features.ClassMeanDiff(X, st.Labels); derr == nil {
		res.ClassMeanDiff = diff
		log.Debug().Floats64("class_mean_diff", diff).Msg("Per-feature class mean difference")
	}

	trained, err := ml.NewTrainer(ml.FitOptions{Regularization: e.config.Regularization}, e.wrapper).Train(X, y)
	if err != nil {
		return res, err
	}
	res.Classifier = trained.Classifier
	res.Model = trained.Metrics
	res.Model.GoodChannels = len(st.GoodChannels)
	res.Model.RejectedTrials = len(st.BadTrials)

	artifact, err := storage.NewArtifact(trained.Classifier, st, ds.Header)
	if err != nil {
		return res, fmt.Errorf("build artifact: %w", err)
	}

	if err := e.persist(res, artifact); err != nil {
		return res, err
	}
	return res, nil
}

func (e *Engine) persist(res *Results, artifact *storage.Artifact) error {
	store, err := storage.Open(e.config.ModelFormat, e.config.DataDir)
	if err != nil {
		return fmt.Errorf("open model store: %w", err)
	}
	defer store.Close()

	loc, size, err := store.Save(e.config.ModelName, artifact)
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	res.ArtifactLocation, res.ArtifactBytes = loc, size
	e.wrapper.ArtifactBytesSet(size)

	log.Info().
		Str("location", loc).
		Str("size", humanize.Bytes(uint64(size))).
		Int("features", artifact.NFeatures).
		Msg("Saved classifier")

	v, err := ml.NewModelManager(e.config.DataDir).AddVersion(e.config.ModelName, loc, e.config.ModelFormat, res.Model)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to record model version")
		return nil
	}
	res.Version = v.Version
	return nil
}
