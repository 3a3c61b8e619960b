package conversation

import "fmt"

// ValidationError points at the first message that breaks the log's invariants
type ValidationError struct {
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid message at index %d: %s", e.Index, e.Reason)
}

// Validate checks that a message log is well formed:
//   - every tool message answers a call issued by the nearest preceding assistant message,
//   - each call is answered exactly once before the conversation moves on,
//   - assistant messages carry content, tool calls, or both.
func Validate(history []Message) error {
	var (
		pending  map[string]bool
		issuedAt int
	)

	unanswered := func() string {
		for id, answered := range pending {
			if !answered {
				return id
			}
		}
		return ""
	}

	for i, m := range history {
		if m.Role != RoleTool && pending != nil {
			if id := unanswered(); id != "" {
				return &ValidationError{Index: issuedAt, Reason: fmt.Sprintf("tool call %q was never answered", id)}
			}
			pending = nil
		}

		switch m.Role {
		case RoleSystem, RoleUser:
			if m.HasToolCalls() || m.ToolCallID != "" {
				return &ValidationError{Index: i, Reason: fmt.Sprintf("%s message cannot carry tool fields", m.Role)}
			}
		case RoleAssistant:
			if m.ToolCallID != "" {
				return &ValidationError{Index: i, Reason: "assistant message cannot carry tool_call_id"}
			}
			if !m.HasToolCalls() {
				if len(m.Content) == 0 {
					return &ValidationError{Index: i, Reason: "assistant message has neither content nor tool calls"}
				}
				continue
			}
			pending = make(map[string]bool, len(m.ToolCalls))
			issuedAt = i
			for _, call := range m.ToolCalls {
				if call.ID == "" {
					return &ValidationError{Index: i, Reason: "tool call without id"}
				}
				if call.Function.Name == "" {
					return &ValidationError{Index: i, Reason: fmt.Sprintf("tool call %q without function name", call.ID)}
				}
				if _, dup := pending[call.ID]; dup {
					return &ValidationError{Index: i, Reason: fmt.Sprintf("duplicate tool call id %q", call.ID)}
				}
				pending[call.ID] = false
			}
		case RoleTool:
			if m.ToolCallID == "" {
				return &ValidationError{Index: i, Reason: ErrMissingToolCallID.Error()}
			}
			answered, known := pending[m.ToolCallID]
			if !known {
				return &ValidationError{Index: i, Reason: fmt.Sprintf("tool_call_id %q does not match the preceding assistant message", m.ToolCallID)}
			}
			if answered {
				return &ValidationError{Index: i, Reason: fmt.Sprintf("tool call %q answered twice", m.ToolCallID)}
			}
			pending[m.ToolCallID] = true
		default:
			return &ValidationError{Index: i, Reason: fmt.Sprintf("unknown role %q", m.Role)}
		}
	}

	if id := unanswered(); id != "" {
		return &ValidationError{Index: issuedAt, Reason: fmt.Sprintf("tool call %q was never answered", id)}
	}
	return nil
}
