// Package audit persists one decision record per decision as
// newline-delimited JSON, adapted from the teacher's rotating audit
// logger (SPEC_FULL.md §4.11). It writes no per-rule execution records;
// each decision record carries the triggered rule ids instead.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/riskline/decisionengine/internal/engine"
	"github.com/riskline/decisionengine/internal/redact"
	"github.com/riskline/decisionengine/internal/value"
)

// defaultMaxLogBytes is the file size at which the log is rotated (10 MB),
// the same threshold the teacher's AuditLogger uses.
const defaultMaxLogBytes = 10 * 1024 * 1024

// DecisionRecord is one persisted row: a request's digest, outcome, and
// timing, plus the triggered rule ids (SPEC_FULL.md §4.11).
type DecisionRecord struct {
	RequestID        string   `json:"request_id"`
	EventDigest      string   `json:"event_digest"`
	Action           string   `json:"action"`
	Score            float64  `json:"score"`
	TriggeredRules   []string `json:"triggered_rules,omitempty"`
	StartedAt        string   `json:"started_at"`
	DurationMs       int64    `json:"duration_ms"`
	DeadlineHit      bool     `json:"deadline_hit,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// Logger persists DecisionRecords as newline-delimited JSON, rotating the
// backing file at defaultMaxLogBytes (adapted from the teacher's
// AuditLogger.rotateIfNeeded).
type Logger struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func New(path string) (*Logger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &Logger{path: path, file: file}, nil
}

func (l *Logger) rotateIfNeeded() error {
	info, err := l.file.Stat()
	if err != nil {
		return fmt.Errorf("audit: stat log file: %w", err)
	}
	if info.Size() < defaultMaxLogBytes {
		return nil
	}

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("audit: close log before rotation: %w", err)
	}

	rotated := l.path + ".1"
	_ = os.Remove(rotated)
	if err := os.Rename(l.path, rotated); err != nil {
		return fmt.Errorf("audit: rotate log: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("audit: open fresh log after rotation: %w", err)
	}
	l.file = f
	return nil
}

// Record persists one decision's outcome. req's event digest is taken by
// the caller (see Digest) so the log never carries the raw event payload,
// which may contain account numbers or other sensitive fields.
func (l *Logger) Record(rec DecisionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rotateIfNeeded(); err != nil {
		fmt.Fprintf(os.Stderr, "audit: warning: log rotation failed: %v\n", err)
	}

	rec.Error = redact.Redact(rec.Error)

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Digest produces a stable, content-addressed fingerprint of an event
// payload for the audit trail, so incident investigation can correlate
// repeated submissions of the same event without the log ever storing the
// raw (possibly sensitive) payload.
func Digest(event map[string]value.Value) string {
	keys := value.SortedKeys(event)
	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(event[k].String()))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FromResponse builds a DecisionRecord from a completed Decide call,
// stamping StartedAt from the caller-supplied time since the engine
// itself only tracks elapsed duration, not wall-clock start.
func FromResponse(startedAt time.Time, digest string, resp *engine.Response, runErr error) DecisionRecord {
	rec := DecisionRecord{
		RequestID:      resp.RequestID,
		EventDigest:    digest,
		Action:         resp.Result.Action,
		Score:          resp.Result.Score,
		TriggeredRules: resp.Result.TriggeredRules,
		StartedAt:      startedAt.UTC().Format(time.RFC3339Nano),
		DurationMs:     resp.ProcessingTimeMs,
		DeadlineHit:    resp.Result.DeadlineHit,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	return rec
}
