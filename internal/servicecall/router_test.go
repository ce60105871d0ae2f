package servicecall

import (
	"context"
	"testing"

	"github.com/riskline/decisionengine/internal/value"
)

type stubCaller struct {
	gotService string
	resp       map[string]value.Value
}

func (s *stubCaller) Call(ctx context.Context, service string, params map[string]value.Value, deadlineMs int) (map[string]value.Value, error) {
	s.gotService = service
	return s.resp, nil
}

func TestRouterDispatchesByPrefix(t *testing.T) {
	stub := &stubCaller{resp: map[string]value.Value{"result": value.Bool(true)}}
	r := NewRouter().Register("list", stub)

	out, err := r.Call(context.Background(), "list.contains", map[string]value.Value{}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.gotService != "list.contains" {
		t.Fatalf("expected stub to receive full service name, got %q", stub.gotService)
	}
	if !out["result"].Bool() {
		t.Fatalf("expected result true")
	}
}

func TestRouterUnknownPrefixErrors(t *testing.T) {
	r := NewRouter()
	if _, err := r.Call(context.Background(), "unknown.op", nil, 0); err == nil {
		t.Fatalf("expected error for unregistered prefix")
	}
}

func TestRouterRejectsServiceWithoutPrefix(t *testing.T) {
	r := NewRouter()
	if _, err := r.Call(context.Background(), "noprefix", nil, 0); err == nil {
		t.Fatalf("expected error for service name without a prefix")
	}
}
