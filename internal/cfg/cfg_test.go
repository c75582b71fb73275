package cfg

import (
	"os"
	"path/filepath"
	"testing"

	"bci-trainer/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name:    "defaults match the fixed tutorial filenames",
			envVars: map[string]string{},
			validate: func(t *testing.T, settings Settings) {
				assert.Equal(t, ".", settings.DataDir)
				assert.Equal(t, "training_data", settings.DatasetName)
				assert.Equal(t, "clsfr", settings.ModelName)
				assert.Equal(t, common.ModelFormatJSON, settings.ModelFormat)
				assert.Equal(t, []float64{20, 10, 30, 60}, settings.FreqBands)
				assert.Equal(t, common.LabelPolicyFalse, settings.UnknownLabelPolicy)
				assert.Equal(t, 3, settings.OutlierMaxIter)
				assert.Equal(t, common.OutlierMethodStd, settings.OutlierMethod)
				assert.Empty(t, settings.MetricsFile)
			},
		},
		{
			name: "custom settings",
			envVars: map[string]string{
				common.EnvDataDir:            "/tmp/session",
				common.EnvDatasetName:        "calib",
				common.EnvModelName:          "model",
				common.EnvModelFormat:        "bolt",
				common.EnvFreqBands:          "8, 12, 30",
				common.EnvChannelThreshold:   "2.5",
				common.EnvTrialThreshold:     "4",
				common.EnvOutlierMaxIter:     "5",
				common.EnvOutlierMethod:      "mad",
				common.EnvUnknownLabelPolicy: "drop",
				common.EnvRegularization:     "0.01",
				common.EnvMetricsFile:        "/tmp/train.prom",
				common.EnvLogLevel:           "debug",
			},
			validate: func(t *testing.T, settings Settings) {
				assert.Equal(t, "/tmp/session", settings.DataDir)
				assert.Equal(t, "calib", settings.DatasetName)
				assert.Equal(t, "model", settings.ModelName)
				assert.Equal(t, common.ModelFormatBolt, settings.ModelFormat)
				assert.Equal(t, []float64{8, 12, 30}, settings.FreqBands)
				assert.Equal(t, 2.5, settings.ChannelThreshold)
				assert.Equal(t, 4.0, settings.TrialThreshold)
				assert.Equal(t, 5, settings.OutlierMaxIter)
				assert.Equal(t, common.OutlierMethodMAD, settings.OutlierMethod)
				assert.Equal(t, common.LabelPolicyDrop, settings.UnknownLabelPolicy)
				assert.Equal(t, 0.01, settings.Regularization)
				assert.Equal(t, "/tmp/train.prom", settings.MetricsFile)
				assert.Equal(t, "debug", settings.LogLevel)
			},
		},
		{
			name:    "malformed band list",
			envVars: map[string]string{common.EnvFreqBands: "10,abc"},
			wantErr: true,
		},
		{
			name:    "single band edge",
			envVars: map[string]string{common.EnvFreqBands: "10"},
			wantErr: true,
		},
		{
			name:    "unknown model format",
			envVars: map[string]string{common.EnvModelFormat: "pickle"},
			wantErr: true,
		},
		{
			name:    "unknown label policy",
			envVars: map[string]string{common.EnvUnknownLabelPolicy: "guess"},
			wantErr: true,
		},
		{
			name:    "unknown outlier method",
			envVars: map[string]string{common.EnvOutlierMethod: "iqr"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			settings, err := loadFromEnv()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	configContent := `
data:
  dir: /data/session1
  dataset: calibration
preproc:
  freqBands: [8, 12, 16, 24]
  channelThreshold: 2.0
  outlierMaxIter: 4
  outlierMethod: mad
labels:
  unknownPolicy: drop
model:
  name: imagery
  format: bolt
system:
  metricsFile: /tmp/bci.prom
  logLevel: warn
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configContent), 0o600))

	settings, err := loadFromYAML(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/session1", settings.DataDir)
	assert.Equal(t, "calibration", settings.DatasetName)
	assert.Equal(t, []float64{8, 12, 16, 24}, settings.FreqBands)
	assert.Equal(t, 2.0, settings.ChannelThreshold)
	assert.Equal(t, common.DefaultTrialThreshold, settings.TrialThreshold)
	assert.Equal(t, 4, settings.OutlierMaxIter)
	assert.Equal(t, common.OutlierMethodMAD, settings.OutlierMethod)
	assert.Equal(t, common.LabelPolicyDrop, settings.UnknownLabelPolicy)
	assert.Equal(t, "imagery", settings.ModelName)
	assert.Equal(t, common.ModelFormatBolt, settings.ModelFormat)
	assert.Equal(t, common.DefaultRegularization, settings.Regularization)
	assert.Equal(t, "/tmp/bci.prom", settings.MetricsFile)
	assert.Equal(t, "warn", settings.LogLevel)
}

func TestLoadFromYAML_EnvOverrides(t *testing.T) {
	configContent := `
model:
  name: fromfile
preproc:
  freqBands: [8, 12]
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configContent), 0o600))

	t.Setenv(common.EnvModelName, "fromenv")
	t.Setenv(common.EnvFreqBands, "1,2,3")

	settings, err := loadFromYAML(path)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", settings.ModelName)
	assert.Equal(t, []float64{1, 2, 3}, settings.FreqBands)
}

func TestLoadFromYAML_Errors(t *testing.T) {
	_, err := loadFromYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data: [unclosed"), 0o600))
	_, err = loadFromYAML(path)
	assert.Error(t, err)
}

func TestLoad_UsesConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  name: viaenvpath\n"), 0o600))
	t.Setenv(common.EnvConfigFile, path)

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "viaenvpath", settings.ModelName)
}

func TestDefault(t *testing.T) {
	settings := Default()
	require.NoError(t, validateSettings(&settings))

	// Callers may mutate the returned bands without touching the package default.
	settings.FreqBands[0] = 99
	assert.Equal(t, 20.0, common.DefaultFreqBands[0])
}
