package a2a

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textPart(t *testing.T, raw string, wrapped bool) Part {
	t.Helper()
	var data []byte
	var err error
	if wrapped {
		data, err = json.Marshal(map[string]string{"raw": raw})
	} else {
		data, err = json.Marshal(raw)
	}
	require.NoError(t, err)
	return Part{Type: "text", Text: data}
}

func TestExtractText_RawString(t *testing.T) {
	msg := Message{Role: "user", Parts: []Part{textPart(t, "hello world", false)}}
	text, ok := ExtractText(msg)
	assert.True(t, ok)
	assert.Equal(t, "hello world", text)
}

func TestExtractText_WrappedRaw(t *testing.T) {
	msg := Message{Role: "user", Parts: []Part{textPart(t, "hello world", true)}}
	text, ok := ExtractText(msg)
	assert.True(t, ok)
	assert.Equal(t, "hello world", text)
}

func TestExtractText_NoTextPart(t *testing.T) {
	msg := Message{Role: "user", Parts: []Part{{Type: "image", Text: json.RawMessage(`""`)}}}
	_, ok := ExtractText(msg)
	assert.False(t, ok)
}

func TestValidate_WrongMethod(t *testing.T) {
	req := RpcRequest{ID: "1", Method: "tasks/cancel", Params: RequestParams{Message: Message{Parts: []Part{textPart(t, "x", false)}}}}
	resp := Validate(req)
	require.NotNil(t, resp)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestValidate_NoTextPart(t *testing.T) {
	req := RpcRequest{ID: "1", Method: MethodTasksSend, Params: RequestParams{Message: Message{}}}
	resp := Validate(req)
	require.NotNil(t, resp)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestValidate_Valid(t *testing.T) {
	req := RpcRequest{ID: "1", Method: MethodTasksSend, Params: RequestParams{Message: Message{Parts: []Part{textPart(t, "x", false)}}}}
	assert.Nil(t, Validate(req))
}

func TestNewA2AResponse_RoundTrip(t *testing.T) {
	resp := NewA2AResponse("req-1", "task-1", `{"sentiment":"positive"}`, "session-1", map[string]interface{}{"k": "v"})
	out, ok := ExtractOutputText(resp)
	require.True(t, ok)
	assert.Equal(t, `{"sentiment":"positive"}`, out)
	assert.Equal(t, "completed", resp.Result.Status.State)
	assert.Equal(t, "session-1", resp.Result.SessionID)
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("req-1", CodeInternalError, "boom")
	assert.Nil(t, resp.Result)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInternalError, resp.Error.Code)
	assert.Equal(t, "boom", resp.Error.Message)
}

func TestRpcResponse_MarshalsWireShape(t *testing.T) {
	resp := NewA2AResponse("req-1", "task-1", "hello", "", nil)
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	result := raw["result"].(map[string]interface{})
	artifacts := result["artifacts"].([]interface{})
	part := artifacts[0].(map[string]interface{})["parts"].([]interface{})[0].(map[string]interface{})
	text := part["text"].(map[string]interface{})
	assert.Equal(t, "hello", text["raw"])
}
