package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientMessageWireShape(t *testing.T) {
	msg := ClientMessage{
		RealtimeInput: &RealtimeInput{
			MediaChunks: []Blob{{MIMEType: AudioInMIMEType, Data: "AAAA"}},
		},
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "realtimeInput")
	assert.NotContains(t, raw, "setup")
	assert.NotContains(t, raw, "toolResponse")

	input := raw["realtimeInput"].(map[string]any)
	chunks := input["mediaChunks"].([]any)
	require.Len(t, chunks, 1)
	chunk := chunks[0].(map[string]any)
	assert.Equal(t, "audio/pcm;rate=16000", chunk["mimeType"])
	assert.Equal(t, "AAAA", chunk["data"])
}

func TestToolResponseWireShape(t *testing.T) {
	msg := ClientMessage{
		ToolResponse: &ToolResponse{
			FunctionResponses: []FunctionResponse{SuccessResponse("call-1", "update_workspace")},
		},
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	responses := raw["toolResponse"].(map[string]any)["functionResponses"].([]any)
	require.Len(t, responses, 1)
	resp := responses[0].(map[string]any)
	assert.Equal(t, "call-1", resp["id"])
	assert.Equal(t, "update_workspace", resp["name"])
	assert.Equal(t, map[string]any{"result": "Success"}, resp["response"])
}

func TestDecodeAudioFrame(t *testing.T) {
	frame := `{
		"serverContent": {
			"modelTurn": {
				"parts": [
					{"inlineData": {"mimeType": "audio/pcm;rate=24000", "data": "UEND"}},
					{"text": "caption"},
					{"inlineData": {"mimeType": "audio/pcm;rate=24000", "data": "QVVE"}}
				]
			}
		}
	}`
	msg, err := Decode([]byte(frame))
	require.NoError(t, err)
	assert.Equal(t, []string{"UEND", "QVVE"}, msg.AudioData())
	assert.False(t, msg.Interrupted())
	assert.False(t, msg.TurnComplete())
}

func TestDecodeControlFlags(t *testing.T) {
	msg, err := Decode([]byte(`{"serverContent": {"interrupted": true}}`))
	require.NoError(t, err)
	assert.True(t, msg.Interrupted())
	assert.Empty(t, msg.AudioData())

	msg, err = Decode([]byte(`{"serverContent": {"turnComplete": true}}`))
	require.NoError(t, err)
	assert.True(t, msg.TurnComplete())
}

func TestDecodeToolCall(t *testing.T) {
	frame := `{
		"toolCall": {
			"functionCalls": [
				{"id": "fc-1", "name": "update_workspace", "args": {"files": []}}
			]
		}
	}`
	msg, err := Decode([]byte(frame))
	require.NoError(t, err)
	require.NotNil(t, msg.ToolCall)
	require.Len(t, msg.ToolCall.FunctionCalls, 1)
	call := msg.ToolCall.FunctionCalls[0]
	assert.Equal(t, "fc-1", call.ID)
	assert.Equal(t, WorkspaceToolName, call.Name)
	assert.JSONEq(t, `{"files": []}`, string(call.Args))
}

func TestDecodeSetupComplete(t *testing.T) {
	msg, err := Decode([]byte(`{"setupComplete": {}}`))
	require.NoError(t, err)
	assert.NotNil(t, msg.SetupComplete)
	assert.Nil(t, msg.ServerContent)
}

func TestDecodeRejectsMalformedFrame(t *testing.T) {
	_, err := Decode([]byte(`{"serverContent":`))
	assert.Error(t, err)
}

func TestToolDeclarationsAreSeparateEntries(t *testing.T) {
	workspace := WorkspaceTool()
	search := SearchTool()

	require.Len(t, workspace.FunctionDeclarations, 1)
	assert.Equal(t, WorkspaceToolName, workspace.FunctionDeclarations[0].Name)
	assert.Nil(t, workspace.GoogleSearch)

	assert.NotNil(t, search.GoogleSearch)
	assert.Empty(t, search.FunctionDeclarations)
}
