// Package cmd implements the lintwatch CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/henriquecbuss/lintwatch/internal/clierr"
	"github.com/henriquecbuss/lintwatch/internal/config"
	"github.com/henriquecbuss/lintwatch/internal/output"
)

// version is set at build time via ldflags.
var version = "dev"

// Global flags.
var (
	flagJSON    bool
	flagDir     string
	flagDebug   bool
	flagNoColor bool
	flagNoClear bool
)

var rootCmd = &cobra.Command{
	Use:   "lintwatch",
	Short: "Re-run a project linter on file change",
	Long: `lintwatch keeps a linter running against your project. It watches the
manifest, lint configuration, README, and source tree, re-runs the lint
command on relevant changes, and rebuilds its watchers when the manifest
or lint configuration changes.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runWatch,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if flagNoColor || os.Getenv("NO_COLOR") != "" {
			output.DisableColor()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "path to the project root")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "write watch diagnostics to the event log")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable color output")
	rootCmd.Flags().BoolVar(&flagNoClear, "no-clear", false, "do not clear the screen on restart")

	// Accept the unhyphenated spellings too.
	normalize := func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		switch name {
		case "nocolor":
			name = "no-color"
		case "noclear":
			name = "no-clear"
		}
		return pflag.NormalizedName(name)
	}
	rootCmd.PersistentFlags().SetNormalizeFunc(normalize)
	rootCmd.Flags().SetNormalizeFunc(normalize)
}

// Execute runs the root command.
func Execute() {
	_, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}

	// Handle SilentError — exit with code, no output.
	var silent *clierr.SilentError
	if errors.As(err, &silent) {
		os.Exit(silent.Code)
	}

	// Determine if JSON mode is active.
	jsonMode := flagJSON
	if !jsonMode {
		jsonMode = os.Getenv("LINTWATCH_OUTPUT") == "json"
	}

	if jsonMode {
		var cliErr *clierr.Error
		if errors.As(err, &cliErr) {
			output.JSONError(os.Stdout, cliErr.Code, cliErr.Message, cliErr.Details)
			os.Exit(cliErr.ExitCode())
		}
		// Unknown error — wrap as INTERNAL_ERROR.
		output.JSONError(os.Stdout, clierr.InternalError, err.Error(), nil)
		os.Exit(2) //nolint:mnd // exit code 2 for internal errors
	}

	// Non-JSON mode: print to stderr.
	fmt.Fprintln(os.Stderr, err)
	var cliErr *clierr.Error
	if errors.As(err, &cliErr) {
		os.Exit(cliErr.ExitCode())
	}
	os.Exit(1)
}

// resolveDir returns the absolute path to the project root.
func resolveDir() (string, error) {
	if flagDir != "" {
		info, err := os.Stat(flagDir)
		if err != nil || !info.IsDir() {
			return "", clierr.New(clierr.InvalidInput, "--dir "+flagDir+" is not a directory")
		}
		return flagDir, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return config.FindDir(cwd)
}

// loadConfig finds and loads the project settings. A project with a
// manifest but no settings file runs with defaults.
func loadConfig() (*config.Config, error) {
	dir, err := resolveDir()
	if err != nil {
		return nil, err
	}
	return loadConfigIn(dir)
}

func loadConfigIn(dir string) (*config.Config, error) {
	cfg, err := config.Load(dir)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, config.ErrNotFound) {
		absDir, absErr := filepath.Abs(dir)
		if absErr != nil {
			return nil, fmt.Errorf("resolving path: %w", absErr)
		}
		cfg = config.NewDefault()
		cfg.SetDir(absDir)
		return cfg, nil
	}
	if errors.Is(err, config.ErrInvalid) {
		return nil, clierr.New(clierr.ConfigInvalid, err.Error())
	}
	return nil, err
}
