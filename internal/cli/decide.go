package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/riskline/decisionengine/internal/audit"
	"github.com/riskline/decisionengine/internal/engine"
	"github.com/riskline/decisionengine/internal/value"
)

var (
	decideEventPath    string
	decideIncludeTrace bool
	decideDeadlineMs   uint32
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Evaluate a single event against the compiled rule set",
	Long: `decide loads an event payload from --event (a JSON object), runs it
through the engine's registry-resolved pipeline, and prints the resulting
decision as JSON.`,
	RunE: runDecide,
}

func init() {
	decideCmd.Flags().StringVar(&decideEventPath, "event", "", "Path to a JSON event payload (required)")
	decideCmd.Flags().BoolVar(&decideIncludeTrace, "trace", false, "Include the per-step execution trace in the response")
	decideCmd.Flags().Uint32Var(&decideDeadlineMs, "deadline-ms", 0, "Override the configured default deadline")
	_ = decideCmd.MarkFlagRequired("event")
	rootCmd.AddCommand(decideCmd)
}

func runDecide(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "decide: %v\n", err)
		os.Exit(2)
	}

	raw, err := os.ReadFile(decideEventPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decide: read event file: %v\n", err)
		os.Exit(2)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		fmt.Fprintf(os.Stderr, "decide: parse event JSON: %v\n", err)
		os.Exit(2)
	}
	event := make(map[string]value.Value, len(decoded))
	for k, v := range decoded {
		event[k] = value.FromRaw(v)
	}

	e, closed, err := buildEngine(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decide: %v\n", err)
		os.Exit(2)
	}
	defer closed.Close()

	deadline := decideDeadlineMs
	if deadline == 0 {
		deadline = cfg.DefaultDeadlineMs
	}

	auditLogger, err := audit.New(cfg.AuditPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decide: open audit log: %v\n", err)
		os.Exit(2)
	}
	defer auditLogger.Close()

	startedAt := time.Now()
	resp, runErr := e.Decide(context.Background(), engine.Request{
		Event:     event,
		RequestID: requestIDOrGenerate(event),
		Options: engine.Options{
			IncludeTrace: decideIncludeTrace,
			DeadlineMs:   deadline,
		},
	})

	digest := audit.Digest(event)
	if resp != nil {
		rec := audit.FromResponse(startedAt, digest, resp, runErr)
		if err := auditLogger.Record(rec); err != nil {
			fmt.Fprintf(os.Stderr, "decide: warning: audit record failed: %v\n", err)
		}
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "decide: %v\n", runErr)
		os.Exit(3)
	}

	out, err := json.MarshalIndent(toDecideOutput(resp), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	fmt.Println(string(out))

	if resp.Result.DeadlineHit {
		os.Exit(4)
	}
	return nil
}

type decideOutput struct {
	RequestID        string   `json:"request_id"`
	Action           string   `json:"action"`
	Score            float64  `json:"score"`
	TriggeredRules   []string `json:"triggered_rules"`
	Signals          []string `json:"signals"`
	DeadlineHit      bool     `json:"deadline_hit"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	Trace            any      `json:"trace,omitempty"`
}

func toDecideOutput(resp *engine.Response) decideOutput {
	out := decideOutput{
		RequestID:        resp.RequestID,
		Action:           resp.Result.Action,
		Score:            resp.Result.Score,
		TriggeredRules:   resp.Result.TriggeredRules,
		Signals:          resp.Result.Signals,
		DeadlineHit:      resp.Result.DeadlineHit,
		ProcessingTimeMs: resp.ProcessingTimeMs,
	}
	if len(resp.Trace) > 0 {
		out.Trace = resp.Trace
	}
	return out
}

// requestIDOrGenerate reads a caller-supplied request id off the event's
// system-adjacent "request_id" field, falling back to a digest-derived id
// so repeated CLI invocations over the same payload stay correlatable.
func requestIDOrGenerate(event map[string]value.Value) string {
	if v, ok := event["request_id"]; ok && v.Kind() == value.KindString {
		return v.String()
	}
	return audit.Digest(event)[:16]
}
