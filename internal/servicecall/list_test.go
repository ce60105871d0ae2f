package servicecall

import (
	"context"
	"testing"

	"github.com/riskline/decisionengine/internal/listsvc"
	"github.com/riskline/decisionengine/internal/value"
)

func TestListCallerContainsAddRemove(t *testing.T) {
	svc := listsvc.New(listsvc.NewMemoryBackend())
	caller := NewListCaller(svc)
	ctx := context.Background()

	out, err := caller.Call(ctx, "list.contains", map[string]value.Value{
		"list_id": value.String("blocklist"), "value": value.String("u1"),
	}, 0)
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if out["result"].Bool() {
		t.Fatalf("expected absent value to be false")
	}

	if _, err := caller.Call(ctx, "list.add", map[string]value.Value{
		"list_id": value.String("blocklist"), "value": value.String("u1"),
	}, 0); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err = caller.Call(ctx, "list.contains", map[string]value.Value{
		"list_id": value.String("blocklist"), "value": value.String("u1"),
	}, 0)
	if err != nil {
		t.Fatalf("contains after add: %v", err)
	}
	if !out["result"].Bool() {
		t.Fatalf("expected value to be present after add")
	}
}

func TestListCallerUnknownOperationErrors(t *testing.T) {
	svc := listsvc.New(listsvc.NewMemoryBackend())
	caller := NewListCaller(svc)

	if _, err := caller.Call(context.Background(), "list.bogus", map[string]value.Value{}, 0); err == nil {
		t.Fatalf("expected error for unknown list operation")
	}
}
