package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/riskline/decisionengine/internal/approval"
	"github.com/riskline/decisionengine/internal/audit"
	"github.com/riskline/decisionengine/internal/engine"
	"github.com/riskline/decisionengine/internal/value"
)

var reviewEventPath string

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Decide an event and, if it resolves to action=review, prompt for a verdict",
	Long: `review runs the same Decide path as decide, but when the resulting
action is "review" it additionally blocks for an operator's approve/deny
verdict (spec.md §3's review action), recording the verdict in the audit
log alongside the decision it resolves.`,
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewEventPath, "event", "", "Path to a JSON event payload (required)")
	_ = reviewCmd.MarkFlagRequired("event")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "review: %v\n", err)
		os.Exit(2)
	}

	raw, err := os.ReadFile(reviewEventPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "review: read event file: %v\n", err)
		os.Exit(2)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		fmt.Fprintf(os.Stderr, "review: parse event JSON: %v\n", err)
		os.Exit(2)
	}
	event := make(map[string]value.Value, len(decoded))
	for k, v := range decoded {
		event[k] = value.FromRaw(v)
	}

	e, closed, err := buildEngine(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "review: %v\n", err)
		os.Exit(2)
	}
	defer closed.Close()

	resp, runErr := e.Decide(context.Background(), engine.Request{
		Event:     event,
		RequestID: requestIDOrGenerate(event),
		Options:   engine.Options{DeadlineMs: cfg.DefaultDeadlineMs},
	})
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "review: %v\n", runErr)
		os.Exit(3)
	}

	digest := audit.Digest(event)

	if resp.Result.Action != "review" {
		fmt.Printf("action: %s (no review needed)\n", resp.Result.Action)
		return nil
	}

	verdict := approval.Ask(approval.Prompt{
		RequestID:      resp.RequestID,
		EventDigest:    digest,
		Score:          resp.Result.Score,
		TriggeredRules: resp.Result.TriggeredRules,
		Signals:        resp.Result.Signals,
	})

	auditLogger, err := audit.New(cfg.AuditPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "review: open audit log: %v\n", err)
		os.Exit(2)
	}
	defer auditLogger.Close()

	rec := audit.FromResponse(time.Now(), digest, resp, nil)
	rec.Action = verdictAction(verdict)
	if err := auditLogger.Record(rec); err != nil {
		fmt.Fprintf(os.Stderr, "review: warning: audit record failed: %v\n", err)
	}

	fmt.Printf("verdict: %s\n", verdict.UserAction)
	if !verdict.Approved {
		os.Exit(3)
	}
	return nil
}

func verdictAction(v approval.Result) string {
	if v.Approved {
		return "approve"
	}
	return "block"
}
