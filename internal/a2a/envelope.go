// Package a2a implements the agent-to-agent JSON-RPC 2.0 envelope and
// artifact model shared by every HTTP service in the mesh: Agent
// Services and the Coordinator Service alike.
package a2a

import "encoding/json"

// Error codes used across the mesh.
const (
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

const MethodTasksSend = "tasks/send"

// RpcRequest is a JSON-RPC 2.0 request envelope.
type RpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  RequestParams   `json:"params"`
}

// RequestParams is the params object of a tasks/send request.
type RequestParams struct {
	ID       string                 `json:"id,omitempty"`
	Message  Message                `json:"message"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Message is an A2A message: a role tag plus an ordered list of parts.
type Message struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is one piece of a Message. Type is almost always "text"; Text may
// be a raw JSON string or a {"raw": "..."} object — both forms decode
// into the same Go string via TextValue.
type Part struct {
	Type string          `json:"type"`
	Text json.RawMessage `json:"text"`
}

// TextValue extracts the string content of a text part regardless of
// which of the two wire forms it was encoded in.
func (p Part) TextValue() (string, bool) {
	var asString string
	if err := json.Unmarshal(p.Text, &asString); err == nil {
		return asString, true
	}
	var wrapped struct {
		Raw string `json:"raw"`
	}
	if err := json.Unmarshal(p.Text, &wrapped); err == nil {
		return wrapped.Raw, true
	}
	return "", false
}

// RpcResponse is a JSON-RPC 2.0 response envelope; exactly one of Result
// or Error is set.
type RpcResponse struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      string     `json:"id"`
	Result  *A2AResult `json:"result,omitempty"`
	Error   *RpcError  `json:"error,omitempty"`
}

// RpcError is the error object of an RpcResponse.
type RpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// A2AResult is the result object of a successful tasks/send response.
type A2AResult struct {
	ID        string                 `json:"id,omitempty"`
	SessionID string                 `json:"sessionId,omitempty"`
	Status    Status                 `json:"status"`
	Artifacts []Artifact             `json:"artifacts"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Status carries the A2A task state. This system only ever produces
// "completed" results; it does not stream partial states.
type Status struct {
	State string `json:"state"`
}

// Artifact carries one or more parts; this system always emits exactly
// one text part containing a JSON-encoded payload.
type Artifact struct {
	Parts     []OutputPart `json:"parts"`
	Index     int          `json:"index"`
	Append    bool         `json:"append"`
	LastChunk bool         `json:"lastChunk"`
}

// OutputPart is the outbound counterpart of Part: Text is always the
// {"raw": "..."} wire form.
type OutputPart struct {
	Type string      `json:"type"`
	Text RawTextWrap `json:"text"`
}

// RawTextWrap is the {"raw": "..."} wire form of a text part.
type RawTextWrap struct {
	Raw string `json:"raw"`
}

// NewA2AResponse wraps outputText as the single text-part artifact
// required by the wire protocol, with status "completed".
func NewA2AResponse(requestID, taskID, outputText, sessionID string, metadata map[string]interface{}) RpcResponse {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return RpcResponse{
		JSONRPC: "2.0",
		ID:      requestID,
		Result: &A2AResult{
			ID:        taskID,
			SessionID: sessionID,
			Status:    Status{State: "completed"},
			Artifacts: []Artifact{{
				Parts:     []OutputPart{{Type: "text", Text: RawTextWrap{Raw: outputText}}},
				Index:     0,
				Append:    false,
				LastChunk: true,
			}},
			Metadata: metadata,
		},
	}
}

// NewErrorResponse builds a JSON-RPC error response.
func NewErrorResponse(requestID string, code int, message string) RpcResponse {
	return RpcResponse{
		JSONRPC: "2.0",
		ID:      requestID,
		Error:   &RpcError{Code: code, Message: message},
	}
}

// ExtractText returns the content of the first text part in msg. The
// second return value is false if no text part is present.
func ExtractText(msg Message) (string, bool) {
	for _, part := range msg.Parts {
		if part.Type != "text" {
			continue
		}
		if text, ok := part.TextValue(); ok {
			return text, true
		}
	}
	return "", false
}

// ExtractOutputText is the inverse of NewA2AResponse: given a response
// built by it, recover the original output text. Used to verify the
// envelope layer's round-trip idempotence (spec §8 invariant 7).
func ExtractOutputText(resp RpcResponse) (string, bool) {
	if resp.Result == nil || len(resp.Result.Artifacts) == 0 {
		return "", false
	}
	parts := resp.Result.Artifacts[0].Parts
	if len(parts) == 0 {
		return "", false
	}
	return parts[0].Text.Raw, true
}

// Validate checks req against the single recognized method and the
// presence of a text part, returning an error response iff invalid.
// Mirrors the three checks of spec §4.2: wrong method (-32601), missing
// message — expressed here as "no text part found", since RequestParams
// always decodes a Message value — and no text part (-32602).
func Validate(req RpcRequest) *RpcResponse {
	if req.Method != MethodTasksSend {
		resp := NewErrorResponse(req.ID, CodeMethodNotFound, "Method not found")
		return &resp
	}
	if _, ok := ExtractText(req.Params.Message); !ok {
		resp := NewErrorResponse(req.ID, CodeInvalidParams, "Invalid message format: no text content found in message parts")
		return &resp
	}
	return nil
}
