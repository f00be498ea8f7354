// Package config handles lintwatch project configuration.
package config

const (
	// FileName is the name of the settings file within the project root.
	FileName = "lintwatch.yml"

	// CurrentVersion is the current settings schema version.
	CurrentVersion = 1

	// DefaultManifest is the dependency manifest watched for restarts.
	DefaultManifest = "elm.json"
	// DefaultReadme is the project readme fed to the analysis engine.
	DefaultReadme = "README.md"
	// DefaultReviewDir is the lint configuration directory.
	DefaultReviewDir = "review"
	// DefaultSuppressionDir holds the engine's suppressed-error files.
	DefaultSuppressionDir = "review/suppressed"
	// DefaultDebounce is the quiescence window as a duration string.
	DefaultDebounce = "300ms"
	// DefaultReport is the report format used when none is configured.
	DefaultReport = "human"
)

// Default slice values for a new project (slices cannot be const).
var (
	DefaultSourceDirs = []string{"src"}

	DefaultExtensions = []string{".elm"}

	DefaultCommand = []string{"elm-review"}

	// ReportFormats are the accepted report settings.
	ReportFormats = []string{"human", "json"}
)
