// Package protocol defines the JSON frames exchanged with the realtime
// voice endpoint. Client frames wrap exactly one of setup, realtime
// input, or tool response; server frames arrive as a union decoded by
// key presence. Setup substructures reuse the endpoint's own schema
// types from google.golang.org/genai.
package protocol

import (
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// MIME types for outbound media chunks. Input audio is always 16 kHz
// mono s16le; video frames are JPEG stills.
const (
	AudioInMIMEType = "audio/pcm;rate=16000"
	VideoMIMEType   = "image/jpeg"
)

// WorkspaceToolName is the function the model calls to publish files
// into the host workspace.
const WorkspaceToolName = "update_workspace"

// Blob is a base64 media payload with its MIME type.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GenerationConfig selects output modality and voice for the session.
type GenerationConfig struct {
	ResponseModalities []string            `json:"responseModalities"`
	SpeechConfig       *genai.SpeechConfig `json:"speechConfig,omitempty"`
}

// Setup is the first frame sent after the socket opens.
type Setup struct {
	Model             string           `json:"model"`
	GenerationConfig  GenerationConfig `json:"generationConfig"`
	SystemInstruction *genai.Content   `json:"systemInstruction,omitempty"`
	Tools             []*genai.Tool    `json:"tools,omitempty"`
}

// RealtimeInput streams media chunks or text into the live session.
type RealtimeInput struct {
	MediaChunks []Blob `json:"mediaChunks,omitempty"`
	Text        string `json:"text,omitempty"`
}

// FunctionResponse acknowledges one function call.
type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// ToolResponse carries acknowledgements for a toolCall frame.
type ToolResponse struct {
	FunctionResponses []FunctionResponse `json:"functionResponses"`
}

// ClientMessage is the outbound frame envelope. Exactly one field is set.
type ClientMessage struct {
	Setup         *Setup         `json:"setup,omitempty"`
	RealtimeInput *RealtimeInput `json:"realtimeInput,omitempty"`
	ToolResponse  *ToolResponse  `json:"toolResponse,omitempty"`
}

// Part is one element of a model turn.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// ModelTurn is the model's in-progress response content.
type ModelTurn struct {
	Parts []Part `json:"parts"`
}

// ServerContent carries model output and turn-boundary flags.
type ServerContent struct {
	ModelTurn    *ModelTurn `json:"modelTurn,omitempty"`
	Interrupted  bool       `json:"interrupted,omitempty"`
	TurnComplete bool       `json:"turnComplete,omitempty"`
}

// FunctionCall is one model-initiated tool invocation.
type FunctionCall struct {
	ID   string          `json:"id,omitempty"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// ToolCall groups the function calls of one toolCall frame.
type ToolCall struct {
	FunctionCalls []FunctionCall `json:"functionCalls"`
}

// SetupComplete confirms the setup frame was accepted.
type SetupComplete struct{}

// ServerMessage is the inbound frame union.
type ServerMessage struct {
	SetupComplete *SetupComplete `json:"setupComplete,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
	ToolCall      *ToolCall      `json:"toolCall,omitempty"`
}

// Decode parses a raw server frame.
func Decode(data []byte) (*ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode server frame: %w", err)
	}
	return &msg, nil
}

// AudioData returns the base64 payloads of all inline audio parts in
// the message, in order.
func (m *ServerMessage) AudioData() []string {
	if m == nil || m.ServerContent == nil || m.ServerContent.ModelTurn == nil {
		return nil
	}
	var chunks []string
	for _, part := range m.ServerContent.ModelTurn.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			chunks = append(chunks, part.InlineData.Data)
		}
	}
	return chunks
}

// Interrupted reports whether the frame signals a user barge-in.
func (m *ServerMessage) Interrupted() bool {
	return m != nil && m.ServerContent != nil && m.ServerContent.Interrupted
}

// TurnComplete reports whether the frame closes the model's turn.
func (m *ServerMessage) TurnComplete() bool {
	return m != nil && m.ServerContent != nil && m.ServerContent.TurnComplete
}

// WorkspaceTool declares the update_workspace function.
func WorkspaceTool() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name: WorkspaceToolName,
				Description: "Create or update files in the user's workspace. " +
					"Use this whenever the user asks for code, documents, or any written artifact.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"files": {
							Type: genai.TypeArray,
							Items: &genai.Schema{
								Type: genai.TypeObject,
								Properties: map[string]*genai.Schema{
									"name": {
										Type:        genai.TypeString,
										Description: "File name including extension.",
									},
									"language": {
										Type:        genai.TypeString,
										Description: "Language or format of the content.",
									},
									"content": {
										Type:        genai.TypeString,
										Description: "Full file content.",
									},
								},
								Required: []string{"name", "content"},
							},
						},
					},
					Required: []string{"files"},
				},
			},
		},
	}
}

// SearchTool declares the built-in search grounding tool. It must be a
// separate tool entry; the endpoint rejects mixing it with function
// declarations.
func SearchTool() *genai.Tool {
	return &genai.Tool{GoogleSearch: &genai.GoogleSearch{}}
}

// SuccessResponse builds the standard acknowledgement for a function call.
func SuccessResponse(id, name string) FunctionResponse {
	return FunctionResponse{
		ID:       id,
		Name:     name,
		Response: map[string]any{"result": "Success"},
	}
}
