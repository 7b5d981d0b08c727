// Package known holds constants shared across meteoflow packages.
package known

// Pipeline run states.
const (
	RunPending    = "Pending"
	RunExtracting = "Extracting"
	RunValidating = "Validating"
	RunStaging    = "Staging"
	RunLoading    = "Loading"
	RunNotifying  = "Notifying"

	// Terminal states.
	RunSucceeded       = "Succeeded"
	RunPartiallyFailed = "PartiallyFailed"
	RunFailed          = "Failed"
)

// Pipeline run events.
const (
	RunEventStart     = "Start"
	RunEventExtracted = "Extracted"
	RunEventValidated = "Validated"
	RunEventStaged    = "Staged"
	RunEventLoaded    = "Loaded"
	RunEventSucceed   = "Succeed"
	RunEventDegrade   = "Degrade"
	RunEventFail      = "Fail"
)

// Task names registered with the runner.
const (
	TaskExtract  = "extract"
	TaskValidate = "validate"
	TaskStage    = "stage"
	TaskLoad     = "load"
	TaskNotify   = "notify"
)

// Artifact kinds carried in staged payloads.
const (
	ArtifactKindHourly = "hourly"
	ArtifactKindDaily  = "daily"
)

// Object-store layout.
const (
	// StagingBucket holds validated batch artifacts.
	StagingBucket = "weather-staging"
	// RawBucket holds untouched extraction payloads.
	RawBucket = "weather-raw"
	// RawPrefix namespaces raw payload objects inside a shared bucket.
	RawPrefix = "raw"
)

// Defaults for the run retry budget. These mirror the production task
// configuration: three attempts, ten seconds between them.
const (
	DefaultMaxAttempts   = 3
	DefaultBaseDelaySecs = 10
	DefaultMaxWorkers    = 4
)

// DefaultPipelineName is the registered flow name.
const DefaultPipelineName = "weather-etl"
