package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report the compiled program count and engine status",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "health: %v\n", err)
		os.Exit(2)
	}

	e, closed, err := buildEngine(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "health: %v\n", err)
		os.Exit(2)
	}
	defer closed.Close()

	status := e.Health()
	fmt.Printf("status: %s\nprograms: %d\n", status.Status, status.ProgramCount)
	if status.Status != "ok" {
		os.Exit(3)
	}
	return nil
}
