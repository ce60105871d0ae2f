package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/riskline/decisionengine/internal/repository"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compile the configured DSL root without serving",
	Long: `validate loads and compiles the rule tree rooted at the configured
dsl_root, reporting every compile error without starting the engine.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "validate: %v\n", err)
		os.Exit(2)
	}

	ps, errs := repository.Load(cfg.DSLRoot)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "validate: %s\n", e.Error())
		}
		os.Exit(2)
	}

	fmt.Printf("ok: %d rule(s), %d ruleset(s), %d pipeline(s), %d feature(s)\n",
		len(ps.Rules), len(ps.Rulesets), len(ps.Pipelines), len(ps.Features))
	return nil
}
