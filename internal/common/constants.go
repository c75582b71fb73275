package common

// Environment variable keys
const (
	EnvConfigFile         = "CONFIG_FILE"
	EnvDataDir            = "BCI_DATA_DIR"
	EnvDatasetName        = "BCI_DATASET"
	EnvModelName          = "BCI_MODEL_NAME"
	EnvModelFormat        = "BCI_MODEL_FORMAT"
	EnvFreqBands          = "BCI_FREQ_BANDS"
	EnvChannelThreshold   = "BCI_CHANNEL_THRESHOLD"
	EnvTrialThreshold     = "BCI_TRIAL_THRESHOLD"
	EnvOutlierMaxIter     = "BCI_OUTLIER_MAX_ITER"
	EnvOutlierMethod      = "BCI_OUTLIER_METHOD"
	EnvUnknownLabelPolicy = "BCI_UNKNOWN_LABELS"
	EnvRegularization     = "BCI_REGULARIZATION"
	EnvMetricsFile        = "BCI_METRICS_FILE"
	EnvLogLevel           = "LOG_LEVEL"
)

// Configuration defaults
const (
	DefaultDataDir            = "."
	DefaultDatasetName        = "training_data"
	DefaultModelName          = "clsfr"
	DefaultModelFormat        = ModelFormatJSON
	DefaultChannelThreshold   = 3.0 // std devs
	DefaultTrialThreshold     = 3.0 // std devs
	DefaultOutlierMaxIter     = 3
	DefaultOutlierMethod      = OutlierMethodStd
	DefaultUnknownLabelPolicy = LabelPolicyFalse
	DefaultRegularization     = 1e-6
	DefaultLogLevel           = "info"
)

// DefaultFreqBands are the band edges used by the tutorial session.
var DefaultFreqBands = []float64{20, 10, 30, 60}

// Model artifact formats
const (
	ModelFormatJSON = "json"
	ModelFormatBolt = "bolt"
)

// Outlier scoring methods
const (
	OutlierMethodStd = "std" // distance from the mean in population std devs
	OutlierMethodMAD = "mad" // distance from the median in scaled median absolute deviations
)

// Unknown label policies
const (
	LabelPolicyFalse = "false" // unrecognised event values become false
	LabelPolicyDrop  = "drop"  // trials with unrecognised event values are dropped
)

// Label sentinels matched against the end of an event value
const (
	LabelSuffixTrue  = "True"
	LabelSuffixFalse = "False"
)

// Validation constants
const (
	MinFreqBandEdges  = 2
	MinOutlierMaxIter = 1
	MaxOutlierMaxIter = 20
)
