package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/Tchaikovic/NeuroGym/backend/internal/conversation"
	"github.com/Tchaikovic/NeuroGym/backend/internal/tools"
)

// executeToolCalls runs every requested call in order and returns exactly one
// tool message per call, correlated by call id.
func (o *Orchestrator) executeToolCalls(ctx context.Context, log *zap.Logger, execCtx *tools.ExecutionContext, calls []conversation.ToolCall) []conversation.Message {
	messages := make([]conversation.Message, 0, len(calls))

	for _, call := range calls {
		if !o.toolExecutor.Has(call.Function.Name) {
			log.Warn("Skipping unknown tool",
				zap.String("tool", call.Function.Name),
				zap.String("call_id", call.ID),
			)
		}

		result := o.toolExecutor.Execute(ctx, execCtx, call)
		if result == nil {
			result = &tools.ToolResult{Status: tools.StatusError, Message: "Tool returned no result"}
		}
		if !result.Success() {
			log.Info("Tool reported failure",
				zap.String("tool", call.Function.Name),
				zap.String("message", result.Message),
			)
		}

		messages = append(messages, toolMessage(log, call.ID, result))
	}

	return messages
}

// toolMessage serializes a result, degrading to a bare error result when the
// payload cannot be encoded.
func toolMessage(log *zap.Logger, callID string, result *tools.ToolResult) conversation.Message {
	msg, err := conversation.NewToolMessage(callID, result)
	if err == nil {
		return msg
	}

	log.Warn("Failed to encode tool result", zap.String("call_id", callID), zap.Error(err))
	msg, _ = conversation.NewToolMessage(callID, &tools.ToolResult{
		Status:  tools.StatusError,
		Message: result.Message,
	})
	return msg
}
