package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Tchaikovic/NeuroGym/backend/internal/models"
)

// ============================================================================
// Topic Tool Implementations
// ============================================================================

type startTopicArgs struct {
	TopicName string `json:"topic_name"`
}

func (e *Executor) executeStartNewTopic(ctx context.Context, execCtx *ExecutionContext, raw json.RawMessage) *ToolResult {
	if res := requireUser(execCtx); res != nil {
		return res
	}

	var args startTopicArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure("Error starting topic: %v", err)
	}

	res, err := e.resolver.Resolve(ctx, args.TopicName, execCtx.UserEmail)
	if err != nil {
		return failure("Error starting topic: %v", err)
	}

	message := fmt.Sprintf("Welcome back to '%s'! Let's continue where we left off. What would you like to work on?", res.CanonicalName)
	if res.IsNew {
		message = fmt.Sprintf("Great! I've started a new topic: '%s'. What specific aspect would you like to explore first?", res.CanonicalName)
	}

	return success(message, map[string]interface{}{
		"topic_id":     res.TopicID,
		"topic_name":   res.CanonicalName,
		"is_new_topic": res.IsNew,
	})
}

func (e *Executor) executeGetLearningTopics(ctx context.Context, execCtx *ExecutionContext, _ json.RawMessage) *ToolResult {
	if res := requireUser(execCtx); res != nil {
		return res
	}

	userTopics, err := e.topics.GetUserTopics(ctx, execCtx.UserEmail)
	if err != nil {
		return failure("Error retrieving topics: %v", err)
	}

	list := make([]models.TopicProgress, 0, len(userTopics))
	for _, ut := range userTopics {
		list = append(list, models.TopicProgress{Topic: ut.TopicName, StartedDate: ut.StartedAt})
	}

	if len(list) == 0 {
		return success("You haven't started any topics yet. What would you like to learn about?", map[string]interface{}{
			"topics": list,
		})
	}
	return success(fmt.Sprintf("You've worked on %d topics so far!", len(list)), map[string]interface{}{
		"topics": list,
	})
}
