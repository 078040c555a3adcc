package main

import (
	"fmt"
	"os"

	"todolist/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configForce bool

// configCmd groups configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the todo configuration file",
}

// configInitCmd writes the default configuration
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

// versionCmd prints the build version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("todo %s\n", version)
	},
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath(resolveDataDir())
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		fmt.Printf("Config already exists at %s (use --force to overwrite)\n", path)
		return nil
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	logger.Info("config written", zap.String("path", path))
	fmt.Printf("Wrote %s\n", path)
	return nil
}
