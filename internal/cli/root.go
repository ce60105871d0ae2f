// Package cli exposes the decisionengine binary's cobra commands: decide,
// validate, serve, reload, health, version (SPEC_FULL.md §4.12), adapted
// from the teacher's root command + persistent-flag pattern.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/riskline/decisionengine/internal/config"
	"github.com/riskline/decisionengine/internal/obslog"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "decisionengine",
	Short: "decisionengine - rule-based risk/fraud decisioning engine",
	Long: `decisionengine compiles a YAML rule DSL into a stack-machine IR and
evaluates it per incoming event, producing an action, score, triggered
rules, and an optional execution trace.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		l, err := obslog.New(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level logging")
}

func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
