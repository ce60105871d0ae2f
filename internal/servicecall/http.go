package servicecall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/riskline/decisionengine/internal/value"
)

// HTTPCaller implements "service.*" calls as a JSON POST against a
// configured base URL, named the same as the teacher's outbound-request
// pattern: construct the request with ctx, apply a deadline, decode JSON.
// No ecosystem HTTP client in the retrieved example pack offers more than
// net/http already provides for a single unauthenticated JSON round trip,
// so this collaborator is built on the standard library.
type HTTPCaller struct {
	baseURL string
	client  *http.Client
}

func NewHTTPCaller(baseURL string) *HTTPCaller {
	return &HTTPCaller{baseURL: baseURL, client: &http.Client{}}
}

func (c *HTTPCaller) Call(ctx context.Context, service string, params map[string]value.Value, deadlineMs int) (map[string]value.Value, error) {
	if deadlineMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(deadlineMs)*time.Millisecond)
		defer cancel()
	}

	body := make(map[string]any, len(params))
	for k, v := range params {
		body[k] = v.Raw()
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("servicecall: encode request for %q: %w", service, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+service, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("servicecall: build request for %q: %w", service, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("servicecall: call %q: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("servicecall: %q returned status %d", service, resp.StatusCode)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("servicecall: decode response for %q: %w", service, err)
	}

	out := make(map[string]value.Value, len(raw))
	for k, v := range raw {
		out[k] = value.FromRaw(v)
	}
	return out, nil
}
