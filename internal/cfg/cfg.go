package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"bci-trainer/internal/common"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	DataDir            string
	DatasetName        string
	ModelName          string
	ModelFormat        string
	FreqBands          []float64
	ChannelThreshold   float64
	TrialThreshold     float64
	OutlierMaxIter     int
	OutlierMethod      string
	UnknownLabelPolicy string
	Regularization     float64
	MetricsFile        string
	LogLevel           string
}

type ConfigFile struct {
	Data struct {
		Dir     string `yaml:"dir"`
		Dataset string `yaml:"dataset"`
	} `yaml:"data"`

	Preproc struct {
		FreqBands        []float64 `yaml:"freqBands"`
		ChannelThreshold float64   `yaml:"channelThreshold"`
		TrialThreshold   float64   `yaml:"trialThreshold"`
		OutlierMaxIter   int       `yaml:"outlierMaxIter"`
		OutlierMethod    string    `yaml:"outlierMethod"`
	} `yaml:"preproc"`

	Labels struct {
		UnknownPolicy string `yaml:"unknownPolicy"`
	} `yaml:"labels"`

	Model struct {
		Name           string  `yaml:"name"`
		Format         string  `yaml:"format"`
		Regularization float64 `yaml:"regularization"`
	} `yaml:"model"`

	System struct {
		MetricsFile string `yaml:"metricsFile"`
		LogLevel    string `yaml:"logLevel"`
	} `yaml:"system"`
}

// Load reads settings from .env, then CONFIG_FILE (YAML) when set, else the
// environment. Environment variables always win over YAML values.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("failed to load .env: %w", err)
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	bands, err := getFloatsFromEnvOrConfig(common.EnvFreqBands, config.Preproc.FreqBands)
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		DataDir:            getEnvOrDefault(common.EnvDataDir, orDefault(config.Data.Dir, common.DefaultDataDir)),
		DatasetName:        getEnvOrDefault(common.EnvDatasetName, orDefault(config.Data.Dataset, common.DefaultDatasetName)),
		ModelName:          getEnvOrDefault(common.EnvModelName, orDefault(config.Model.Name, common.DefaultModelName)),
		ModelFormat:        getEnvOrDefault(common.EnvModelFormat, orDefault(config.Model.Format, common.DefaultModelFormat)),
		FreqBands:          bands,
		ChannelThreshold:   getFloatFromEnvOrConfig(common.EnvChannelThreshold, config.Preproc.ChannelThreshold, common.DefaultChannelThreshold),
		TrialThreshold:     getFloatFromEnvOrConfig(common.EnvTrialThreshold, config.Preproc.TrialThreshold, common.DefaultTrialThreshold),
		OutlierMaxIter:     getIntFromEnvOrConfig(common.EnvOutlierMaxIter, config.Preproc.OutlierMaxIter, common.DefaultOutlierMaxIter),
		OutlierMethod:      getEnvOrDefault(common.EnvOutlierMethod, orDefault(config.Preproc.OutlierMethod, common.DefaultOutlierMethod)),
		UnknownLabelPolicy: getEnvOrDefault(common.EnvUnknownLabelPolicy, orDefault(config.Labels.UnknownPolicy, common.DefaultUnknownLabelPolicy)),
		Regularization:     getFloatFromEnvOrConfig(common.EnvRegularization, config.Model.Regularization, common.DefaultRegularization),
		MetricsFile:        getEnvOrDefault(common.EnvMetricsFile, config.System.MetricsFile),
		LogLevel:           getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	bands, err := getFloatsFromEnvOrConfig(common.EnvFreqBands, nil)
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		DataDir:            getEnvOrDefault(common.EnvDataDir, common.DefaultDataDir),
		DatasetName:        getEnvOrDefault(common.EnvDatasetName, common.DefaultDatasetName),
		ModelName:          getEnvOrDefault(common.EnvModelName, common.DefaultModelName),
		ModelFormat:        getEnvOrDefault(common.EnvModelFormat, common.DefaultModelFormat),
		FreqBands:          bands,
		ChannelThreshold:   getFloatOrDefault(common.EnvChannelThreshold, common.DefaultChannelThreshold),
		TrialThreshold:     getFloatOrDefault(common.EnvTrialThreshold, common.DefaultTrialThreshold),
		OutlierMaxIter:     getIntOrDefault(common.EnvOutlierMaxIter, common.DefaultOutlierMaxIter),
		OutlierMethod:      getEnvOrDefault(common.EnvOutlierMethod, common.DefaultOutlierMethod),
		UnknownLabelPolicy: getEnvOrDefault(common.EnvUnknownLabelPolicy, common.DefaultUnknownLabelPolicy),
		Regularization:     getFloatOrDefault(common.EnvRegularization, common.DefaultRegularization),
		MetricsFile:        os.Getenv(common.EnvMetricsFile), // optional
		LogLevel:           getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// Default returns the settings a bare invocation runs with.
func Default() Settings {
	return Settings{
		DataDir:            common.DefaultDataDir,
		DatasetName:        common.DefaultDatasetName,
		ModelName:          common.DefaultModelName,
		ModelFormat:        common.DefaultModelFormat,
		FreqBands:          defaultFreqBands(),
		ChannelThreshold:   common.DefaultChannelThreshold,
		TrialThreshold:     common.DefaultTrialThreshold,
		OutlierMaxIter:     common.DefaultOutlierMaxIter,
		OutlierMethod:      common.DefaultOutlierMethod,
		UnknownLabelPolicy: common.DefaultUnknownLabelPolicy,
		Regularization:     common.DefaultRegularization,
		LogLevel:           common.DefaultLogLevel,
	}
}

// validateSettings checks every value the training run depends on
func validateSettings(settings *Settings) error {
	if settings.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}
	if settings.DatasetName == "" {
		return fmt.Errorf("dataset name cannot be empty")
	}
	if settings.ModelName == "" {
		return fmt.Errorf("model name cannot be empty")
	}

	switch settings.ModelFormat {
	case common.ModelFormatJSON, common.ModelFormatBolt:
	default:
		return fmt.Errorf("model format must be %q or %q, got %q", common.ModelFormatJSON, common.ModelFormatBolt, settings.ModelFormat)
	}

	switch settings.OutlierMethod {
	case common.OutlierMethodStd, common.OutlierMethodMAD:
	default:
		return fmt.Errorf("outlier method must be %q or %q, got %q", common.OutlierMethodStd, common.OutlierMethodMAD, settings.OutlierMethod)
	}

	switch settings.UnknownLabelPolicy {
	case common.LabelPolicyFalse, common.LabelPolicyDrop:
	default:
		return fmt.Errorf("unknown label policy must be %q or %q, got %q", common.LabelPolicyFalse, common.LabelPolicyDrop, settings.UnknownLabelPolicy)
	}

	if len(settings.FreqBands) < common.MinFreqBandEdges {
		return fmt.Errorf("at least %d frequency band edges are required, got %d", common.MinFreqBandEdges, len(settings.FreqBands))
	}
	for _, f := range settings.FreqBands {
		if f < 0 {
			return fmt.Errorf("frequency band edges must be non-negative, got %v", f)
		}
	}

	if settings.ChannelThreshold <= 0 {
		return fmt.Errorf("channel threshold must be positive, got %f", settings.ChannelThreshold)
	}
	if settings.TrialThreshold <= 0 {
		return fmt.Errorf("trial threshold must be positive, got %f", settings.TrialThreshold)
	}
	if settings.OutlierMaxIter < common.MinOutlierMaxIter || settings.OutlierMaxIter > common.MaxOutlierMaxIter {
		return fmt.Errorf("outlier max iterations must be between %d and %d, got %d", common.MinOutlierMaxIter, common.MaxOutlierMaxIter, settings.OutlierMaxIter)
	}
	if settings.Regularization < 0 {
		return fmt.Errorf("regularization cannot be negative, got %g", settings.Regularization)
	}

	return nil
}
