package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/riskline/decisionengine/internal/engine"
	"github.com/riskline/decisionengine/internal/value"
)

func TestRecordWritesNDJSONLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	l, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer l.Close()

	if err := l.Record(DecisionRecord{RequestID: "r1", Action: "approve", Score: 12.5}); err != nil {
		t.Fatalf("record: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatalf("expected at least one line")
	}
	var rec DecisionRecord
	if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.RequestID != "r1" || rec.Action != "approve" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestRecordRedactsErrorField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	l, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer l.Close()

	if err := l.Record(DecisionRecord{RequestID: "r1", Error: "api_key=abcdefghijklmnop1234567890"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) == "" {
		t.Fatalf("expected content")
	}
	var rec DecisionRecord
	if err := json.Unmarshal(data[:len(data)-1], &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.Error == "api_key=abcdefghijklmnop1234567890" {
		t.Fatalf("expected error field to be redacted, got %q", rec.Error)
	}
}

func TestDigestIsStableAcrossKeyOrder(t *testing.T) {
	a := map[string]value.Value{"amount": value.Number(10), "subject_id": value.String("u1")}
	b := map[string]value.Value{"subject_id": value.String("u1"), "amount": value.Number(10)}
	if Digest(a) != Digest(b) {
		t.Fatalf("expected digest to be independent of map iteration order")
	}
}

func TestDigestDiffersOnDifferentPayloads(t *testing.T) {
	a := map[string]value.Value{"amount": value.Number(10)}
	b := map[string]value.Value{"amount": value.Number(11)}
	if Digest(a) == Digest(b) {
		t.Fatalf("expected different payloads to produce different digests")
	}
}

func TestFromResponseStampsFields(t *testing.T) {
	resp := &engine.Response{
		RequestID:        "r2",
		Result:           engine.DecisionResult{Action: "block", Score: 50},
		ProcessingTimeMs: 7,
	}
	rec := FromResponse(time.Unix(0, 0), "digest123", resp, nil)
	if rec.RequestID != "r2" || rec.Action != "block" || rec.DurationMs != 7 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}
