// Package approval prompts an operator for a manual verdict on a decision
// the engine returned with action "review" (spec.md §3's "review" terminal
// action, §4.3's DeadlineExceeded/RuntimeError fallback to action=review).
// Adapted from the teacher's interactive command-approval prompt.
package approval

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// Result is an operator's verdict on a reviewed decision.
type Result struct {
	Approved   bool
	UserAction string
}

// Prompt describes the decision an operator is being asked to resolve.
type Prompt struct {
	RequestID      string
	EventDigest    string
	Score          float64
	TriggeredRules []string
	Signals        []string
}

// IsInteractive reports whether stdin is a terminal an operator can answer
// from; a non-interactive run (cron, CI, piped stdin) auto-denies instead
// of blocking forever.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Ask prints p and blocks for an operator's approve/deny verdict, per
// spec.md's "review" action requiring resolution before a decision is acted
// on. Non-interactive sessions resolve immediately to a denial so automated
// pipelines never hang waiting for a human.
func Ask(p Prompt) Result {
	if !IsInteractive() {
		return Result{Approved: false, UserAction: "auto_deny_non_interactive"}
	}

	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(os.Stderr, "║              ⚠️  MANUAL REVIEW REQUIRED                       ║")
	fmt.Fprintln(os.Stderr, "╚══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintf(os.Stderr, "Request:  %s\n", p.RequestID)
	fmt.Fprintf(os.Stderr, "Event:    %s\n", p.EventDigest)
	fmt.Fprintf(os.Stderr, "Score:    %.2f\n", p.Score)
	fmt.Fprintln(os.Stderr, "")

	if len(p.TriggeredRules) > 0 {
		fmt.Fprintf(os.Stderr, "Triggered rules: %s\n", strings.Join(p.TriggeredRules, ", "))
	}
	if len(p.Signals) > 0 {
		fmt.Fprintf(os.Stderr, "Signals: %s\n", strings.Join(p.Signals, ", "))
	}

	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Options:")
	fmt.Fprintln(os.Stderr, "  [a] Approve - clear this event")
	fmt.Fprintln(os.Stderr, "  [d] Deny - block this event")
	fmt.Fprintln(os.Stderr, "")

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Fprint(os.Stderr, "Your verdict [a/d]: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return Result{Approved: false, UserAction: "error_reading_input"}
		}

		switch strings.TrimSpace(strings.ToLower(input)) {
		case "a", "approve", "yes", "y":
			return Result{Approved: true, UserAction: "approve"}
		case "d", "deny", "no", "n":
			return Result{Approved: false, UserAction: "deny"}
		default:
			fmt.Fprintln(os.Stderr, "Invalid input. Please enter 'a' to approve or 'd' to deny.")
		}
	}
}
