package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/riskline/decisionengine/internal/obslog"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the engine and block, reloading the DSL root on SIGHUP",
	Long: `serve compiles the configured dsl_root once and then blocks, holding
the engine ready for whatever transport embeds it. Sending SIGHUP
recompiles the DSL root and swaps the program set atomically; SIGINT/SIGTERM
shut it down. Exposing a request transport (HTTP/gRPC) is out of scope —
this command exists to exercise hot reload and collaborator lifetime.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "serve: %v\n", err)
		os.Exit(2)
	}

	e, closed, err := buildEngine(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "serve: %v\n", err)
		os.Exit(2)
	}
	defer closed.Close()

	logger.Info("serve: engine ready", obslog.ProgramCount(e.Health().ProgramCount))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	for sig := range sigCh {
		switch sig {
		case syscall.SIGHUP:
			result := e.ReloadRepository()
			if len(result.Errors) > 0 {
				for _, ce := range result.Errors {
					logger.Error("serve: reload failed", zap.Error(ce))
				}
				continue
			}
			logger.Info("serve: reloaded", obslog.ProgramCount(e.Health().ProgramCount))
		case syscall.SIGINT, syscall.SIGTERM:
			logger.Info("serve: shutting down")
			return nil
		}
	}
	return nil
}
