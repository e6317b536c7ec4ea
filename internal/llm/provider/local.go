package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/aixgo-dev/reviewmesh/internal/llm/inference"
)

// LocalProvider adapts a self-hosted inference.InferenceService (Ollama,
// or the in-memory Mock used for local development) to the Provider
// interface so department analyzers can run against self-hosted models
// without going through a hosted API.
type LocalProvider struct {
	svc  inference.InferenceService
	name string
}

// NewLocalProvider wraps svc, reporting name as the provider's Name().
func NewLocalProvider(svc inference.InferenceService, name string) *LocalProvider {
	return &LocalProvider{svc: svc, name: name}
}

func (p *LocalProvider) Name() string { return p.name }

func (p *LocalProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	resp, err := p.svc.Generate(ctx, inference.GenerateRequest{
		Model:       req.Model,
		Prompt:      joinMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, NewProviderError(p.name, ErrorCodeServerError, err.Error(), err)
	}
	return &CompletionResponse{Content: resp.Text, FinishReason: resp.FinishReason}, nil
}

func (p *LocalProvider) CreateStreaming(context.Context, CompletionRequest) (Stream, error) {
	return nil, fmt.Errorf("%s: streaming not supported by self-hosted inference backends", p.name)
}

// CreateStructured appends a JSON-only instruction to the prompt and
// uses the brace-delimited part of the generated text (see
// extractJSONObject) as the structured payload. Self-hosted
// backends have no native structured-output mode, so this is the
// lowest-common-denominator approach every local model can satisfy.
func (p *LocalProvider) CreateStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error) {
	prompt := joinMessages(req.Messages) + "\n\nRespond with a single JSON object only, matching this schema:\n" + string(req.ResponseSchema)

	resp, err := p.svc.Generate(ctx, inference.GenerateRequest{
		Model:       req.Model,
		Prompt:      prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, NewProviderError(p.name, ErrorCodeServerError, err.Error(), err)
	}

	return &StructuredResponse{
		Data:               []byte(extractJSONObject(resp.Text)),
		CompletionResponse: CompletionResponse{Content: resp.Text, FinishReason: resp.FinishReason},
	}, nil
}

func joinMessages(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s] %s\n", m.Role, m.Content)
	}
	return b.String()
}

// extractJSONObject trims any leading/trailing prose a local model
// emits around its JSON object, returning the substring from the
// first '{' to the last '}'. Returns the input unchanged if no braces
// are found; the caller's JSON decode then fails over to the normal
// fallback-record path.
func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}
