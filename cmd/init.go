package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/henriquecbuss/lintwatch/internal/config"
	"github.com/henriquecbuss/lintwatch/internal/output"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default " + config.FileName + " into the project",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	dir := flagDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		dir = cwd
	}

	cfg, err := config.Init(dir)
	if err != nil {
		return err
	}

	if output.Detect(flagJSON, "") == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{"created": cfg.ConfigPath()})
	}
	fmt.Fprintln(os.Stdout, "Created "+cfg.ConfigPath())
	return nil
}
