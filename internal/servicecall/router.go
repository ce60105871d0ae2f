// Package servicecall implements the pipeline.ServiceCaller collaborator
// that service_call and llm_call steps dispatch through (spec §4.5, §4.8's
// "Collaborators" row). Router composes several named sub-callers keyed by
// a service-name prefix, mirroring the teacher's constructor-pattern
// collaborators rather than a single monolithic implementation.
package servicecall

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskline/decisionengine/internal/value"
)

// Caller is the per-prefix sub-dispatcher Router holds; distinct from
// pipeline.ServiceCaller only in that Router does the prefix matching
// before delegating.
type Caller interface {
	Call(ctx context.Context, service string, params map[string]value.Value, deadlineMs int) (map[string]value.Value, error)
}

// Router dispatches a step's `service:` name to the sub-caller registered
// for its "<prefix>." segment (e.g. "list.contains" -> the "list" caller,
// "llm.chat" -> the "llm" caller). Unregistered prefixes fail closed.
type Router struct {
	callers map[string]Caller
}

func NewRouter() *Router {
	return &Router{callers: map[string]Caller{}}
}

// Register wires a sub-caller under prefix (without the trailing dot).
func (r *Router) Register(prefix string, c Caller) *Router {
	r.callers[prefix] = c
	return r
}

func (r *Router) Call(ctx context.Context, service string, params map[string]value.Value, deadlineMs int) (map[string]value.Value, error) {
	prefix, _, found := strings.Cut(service, ".")
	if !found {
		return nil, fmt.Errorf("servicecall: %q is not of the form <prefix>.<name>", service)
	}
	caller, ok := r.callers[prefix]
	if !ok {
		return nil, fmt.Errorf("servicecall: no caller registered for prefix %q", prefix)
	}
	return caller.Call(ctx, service, params, deadlineMs)
}
