package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Recompile the configured DSL root and report the result",
	Long: `reload builds a fresh engine against the configured dsl_root and runs
the same ReloadRepository path a running server would on SIGHUP, without
needing an admin RPC surface.`,
	RunE: runReload,
}

func init() {
	rootCmd.AddCommand(reloadCmd)
}

func runReload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "reload: %v\n", err)
		os.Exit(2)
	}

	e, closed, err := buildEngine(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reload: %v\n", err)
		os.Exit(2)
	}
	defer closed.Close()

	result := e.ReloadRepository()
	if len(result.Errors) > 0 {
		for _, ce := range result.Errors {
			fmt.Fprintf(os.Stderr, "reload: %s\n", ce.Error())
		}
		os.Exit(2)
	}

	fmt.Printf("reloaded: %d program(s)\n", result.LoadedPrograms)
	return nil
}
