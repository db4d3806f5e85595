package live

import (
	"encoding/json"

	"github.com/gtistudio/voicelive/pkg/core/live/protocol"
	"github.com/gtistudio/voicelive/pkg/core/types"
)

// Dispatcher routes model tool calls into the host application.
// Every function call is acknowledged with a success response whether
// or not its arguments validated; the model treats a missing ack as a
// stalled call and hangs the turn.
type Dispatcher struct {
	onFiles func(files []types.VirtualFile)
}

// NewDispatcher creates a dispatcher delivering validated workspace
// files to the given callback.
func NewDispatcher(onFiles func(files []types.VirtualFile)) *Dispatcher {
	return &Dispatcher{onFiles: onFiles}
}

// Dispatch handles one toolCall frame and returns the acknowledgements
// to send back, one per function call in order.
func (d *Dispatcher) Dispatch(call *protocol.ToolCall) []protocol.FunctionResponse {
	if call == nil {
		return nil
	}
	responses := make([]protocol.FunctionResponse, 0, len(call.FunctionCalls))
	for _, fc := range call.FunctionCalls {
		if fc.Name == protocol.WorkspaceToolName {
			files := ValidateWorkspaceFiles(fc.Args)
			if len(files) > 0 && d.onFiles != nil {
				d.onFiles(files)
			}
		}
		responses = append(responses, protocol.SuccessResponse(fc.ID, fc.Name))
	}
	return responses
}

// ValidateWorkspaceFiles extracts well-formed files from raw
// update_workspace arguments. Entries are validated individually so
// one malformed file does not discard the batch: a file needs a
// non-empty string name and string content, and a missing language
// defaults to "text".
func ValidateWorkspaceFiles(args json.RawMessage) []types.VirtualFile {
	var payload struct {
		Files []json.RawMessage `json:"files"`
	}
	if err := json.Unmarshal(args, &payload); err != nil {
		return nil
	}

	var files []types.VirtualFile
	for _, raw := range payload.Files {
		var entry struct {
			Name     *string `json:"name"`
			Language *string `json:"language"`
			Content  *string `json:"content"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if entry.Name == nil || *entry.Name == "" || entry.Content == nil {
			continue
		}
		language := "text"
		if entry.Language != nil && *entry.Language != "" {
			language = *entry.Language
		}
		files = append(files, types.VirtualFile{
			Name:     *entry.Name,
			Language: language,
			Content:  *entry.Content,
		})
	}
	return files
}
