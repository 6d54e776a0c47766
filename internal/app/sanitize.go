package app

import "datacopilot/internal/ai"

// sanitizeResponseTurns strips incomplete tool invocations from a generated
// response before it is persisted. A tool call with no matching tool result is
// removed; an assistant turn left with neither text nor calls is removed; a
// tool result whose originating call is gone is removed. The function is pure
// and idempotent.
func sanitizeResponseTurns(turns []ai.Turn) []ai.Turn {
	callIDs := make(map[string]bool)
	for _, turn := range turns {
		if turn.Role != ai.RoleAssistant {
			continue
		}
		for _, call := range turn.ToolCalls {
			callIDs[call.ID] = true
		}
	}

	resolved := make(map[string]bool)
	for _, turn := range turns {
		if turn.Role == ai.RoleTool && callIDs[turn.ToolCallID] {
			resolved[turn.ToolCallID] = true
		}
	}

	out := make([]ai.Turn, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case ai.RoleAssistant:
			kept := make([]ai.ToolCall, 0, len(turn.ToolCalls))
			for _, call := range turn.ToolCalls {
				if resolved[call.ID] {
					kept = append(kept, call)
				}
			}
			turn.ToolCalls = kept
			if turn.Content == "" && len(kept) == 0 {
				continue
			}
			out = append(out, turn)
		case ai.RoleTool:
			if !resolved[turn.ToolCallID] {
				continue
			}
			out = append(out, turn)
		default:
			out = append(out, turn)
		}
	}
	return out
}
