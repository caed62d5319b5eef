package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameTypeConstants(t *testing.T) {
	assert.Equal(t, "req", FrameTypeRequest)
	assert.Equal(t, "res", FrameTypeResponse)
	assert.Equal(t, "event", FrameTypeEvent)
	assert.Equal(t, 1, ProtocolVersion)
}

func TestNewRequest_WithParams(t *testing.T) {
	frame, err := NewRequest("req-2", "agents.get", map[string]string{"id": "a-1"})
	require.NoError(t, err)

	assert.Equal(t, FrameTypeRequest, frame.Type)
	assert.Equal(t, "req-2", frame.ID)
	assert.Equal(t, "agents.get", frame.Method)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(frame.Params, &decoded))
	assert.Equal(t, "a-1", decoded["id"])
}

func TestNewResponse(t *testing.T) {
	frame, err := NewResponse("req-1", map[string]string{"status": "ok"})
	require.NoError(t, err)

	assert.Equal(t, FrameTypeResponse, frame.Type)
	assert.Equal(t, "req-1", frame.ID)
	require.NotNil(t, frame.OK)
	assert.True(t, *frame.OK)
	assert.Nil(t, frame.Error)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	assert.Equal(t, "ok", payload["status"])
}

func TestNewErrorResponse(t *testing.T) {
	frame := NewErrorResponse("req-1", ErrorShape{
		Code:      CodeProvider,
		Message:   "upstream timed out",
		Retryable: true,
		Details:   map[string]string{"provider": "anthropic"},
	})

	data, err := json.Marshal(frame)
	require.NoError(t, err)

	var decoded Frame
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotNil(t, decoded.OK)
	assert.False(t, *decoded.OK)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, CodeProvider, decoded.Error.Code)
	assert.True(t, decoded.Error.Retryable)
	assert.Empty(t, decoded.Payload)
}

func TestNewEvent(t *testing.T) {
	frame, err := NewEvent(EventChatMessage, map[string]string{"conversationId": "c-1"}, 42)
	require.NoError(t, err)

	assert.Equal(t, FrameTypeEvent, frame.Type)
	assert.Equal(t, EventChatMessage, frame.Event)
	assert.Equal(t, int64(42), frame.Seq)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	assert.Equal(t, "c-1", payload["conversationId"])
}

func TestConnectParams_Marshal(t *testing.T) {
	params := ConnectParams{
		MinProtocol: 1,
		MaxProtocol: 1,
		Client:      ClientInfo{ID: "cli", DisplayName: "Terminal", Version: "1.0.0", Platform: "linux"},
		Auth:        &ConnectAuth{Password: "secret"},
	}

	data, err := json.Marshal(params)
	require.NoError(t, err)

	var decoded ConnectParams
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Terminal", decoded.Client.DisplayName)
	require.NotNil(t, decoded.Auth)
	assert.Equal(t, "secret", decoded.Auth.Password)

	params.Auth = nil
	data, err = json.Marshal(params)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"auth"`)
}

func TestErrorShape_OmitsEmpty(t *testing.T) {
	data, err := json.Marshal(ErrorShape{Code: CodeInvalidParams, Message: "missing params"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "details")
	assert.NotContains(t, string(data), "retryable")
	assert.NotContains(t, string(data), "retryAfterMs")
}

func TestEventsAdvertised(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"catalog.changed", "chat.message", "chat.error", "intelligence.update"},
		Events)
}
