package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/henriquecbuss/lintwatch/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective watch configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if output.Detect(flagJSON, cfg.Report) == output.FormatJSON {
		return output.JSON(os.Stdout, cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprintf(os.Stdout, "# project: %s\n%s", cfg.Dir(), data)
	return nil
}
