package ai

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a structured request the model makes for an external capability.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Turn is one role-tagged utterance exchanged with the gateway. A tool-result
// turn carries the ToolCallID of the call it answers.
type Turn struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// HasToolCall reports whether the turn invokes the given call id.
func (t Turn) HasToolCall(callID string) bool {
	for _, call := range t.ToolCalls {
		if call.ID == callID {
			return true
		}
	}
	return false
}
