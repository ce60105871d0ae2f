package servicecall

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/riskline/decisionengine/internal/value"
)

// LLMCaller implements "llm.*" calls by sending the step's `prompt`
// parameter as a single user message to an OpenAI-compatible chat
// completions endpoint, adapted from the teacher pack's go-openai client
// wrapper (llm_call steps, spec §3's step kind list).
type LLMCaller struct {
	client *openai.Client
	model  string
}

func NewLLMCaller(apiKey, baseURL, model string) *LLMCaller {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &LLMCaller{client: openai.NewClientWithConfig(cfg), model: model}
}

func (c *LLMCaller) Call(ctx context.Context, service string, params map[string]value.Value, deadlineMs int) (map[string]value.Value, error) {
	if deadlineMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(deadlineMs)*time.Millisecond)
		defer cancel()
	}

	prompt := params["prompt"].String()
	if prompt == "" {
		return nil, fmt.Errorf("servicecall: llm call %q requires a non-empty prompt parameter", service)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("servicecall: llm call %q failed: %w", service, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("servicecall: llm call %q returned no choices", service)
	}

	return map[string]value.Value{"response": value.String(resp.Choices[0].Message.Content)}, nil
}
