// Package output handles formatting CLI output as human-readable text or JSON.
package output

import (
	"os"
)

// Format represents an output format.
type Format int

const (
	// FormatAuto uses the default format (human).
	FormatAuto Format = iota
	// FormatJSON outputs structured JSON.
	FormatJSON
	// FormatHuman outputs styled human-readable text.
	FormatHuman
)

// Detect returns the appropriate format based on flags, configuration,
// and environment. Default is human when nothing explicit is set.
func Detect(jsonFlag bool, configured string) Format {
	if jsonFlag {
		return FormatJSON
	}

	switch os.Getenv("LINTWATCH_OUTPUT") {
	case "json":
		return FormatJSON
	case "human":
		return FormatHuman
	}

	if configured == "json" {
		return FormatJSON
	}
	return FormatHuman
}
