package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aixgo-dev/reviewmesh/internal/a2a"
	"github.com/aixgo-dev/reviewmesh/internal/sentiment"
	"github.com/aixgo-dev/reviewmesh/pkg/security"
)

// AgentClient calls one remote Agent Service over A2A JSON-RPC. Calls
// are guarded by a circuit breaker per endpoint so a department
// service that is down doesn't eat a full per-call timeout on every
// discussion round once it has already failed a few times in a row.
type AgentClient struct {
	Endpoint   string
	HTTPClient *http.Client
	breaker    *security.CircuitBreaker
}

// NewAgentClient builds a client with the given per-call timeout. The
// circuit opens after 3 consecutive failures and stays open for 30s.
func NewAgentClient(endpoint string, timeout time.Duration) *AgentClient {
	return &AgentClient{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: timeout},
		breaker:    security.NewCircuitBreaker(3, 30*time.Second),
	}
}

// Analyze sends review as a tasks/send A2A request and decodes the
// returned artifact text as an AnalysisRecord. Any failure — transport,
// non-200 status, RPC-level error, or malformed payload — is reported
// as a Go error so the caller can apply the same fallback-on-failure
// policy used by in-process analyzers.
func (c *AgentClient) Analyze(ctx context.Context, review string, metadata map[string]interface{}) (sentiment.AnalysisRecord, error) {
	taskID := uuid.New().String()
	req := a2a.RpcRequest{
		JSONRPC: "2.0",
		ID:      taskID,
		Method:  a2a.MethodTasksSend,
		Params: a2a.RequestParams{
			ID: taskID,
			Message: a2a.Message{
				Role:  "coordinator",
				Parts: []a2a.Part{{Type: "text", Text: mustMarshalText(review)}},
			},
			Metadata: metadata,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return sentiment.AnalysisRecord{}, fmt.Errorf("marshal a2a request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return sentiment.AnalysisRecord{}, fmt.Errorf("build a2a request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var rpcResp a2a.RpcResponse
	breakerErr := c.breaker.Execute(func() error {
		resp, err := c.HTTPClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("a2a call to %s: %w", c.Endpoint, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("a2a call to %s: HTTP %d", c.Endpoint, resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
			return fmt.Errorf("decode a2a response: %w", err)
		}
		if rpcResp.Error != nil {
			return fmt.Errorf("agent error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
		}
		return nil
	})
	if breakerErr != nil {
		return sentiment.AnalysisRecord{}, breakerErr
	}

	outputText, ok := a2a.ExtractOutputText(rpcResp)
	if !ok {
		return sentiment.AnalysisRecord{}, fmt.Errorf("a2a response from %s carried no artifact text", c.Endpoint)
	}

	var record sentiment.AnalysisRecord
	if err := json.Unmarshal([]byte(outputText), &record); err != nil {
		return sentiment.AnalysisRecord{}, fmt.Errorf("decode analysis record: %w", err)
	}
	return record.Normalize(), nil
}

func mustMarshalText(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}
