package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ============================================================================
// Statistics Tool Implementations
// ============================================================================

func (e *Executor) executeShowStatistics(ctx context.Context, execCtx *ExecutionContext, _ json.RawMessage) *ToolResult {
	if res := requireUser(execCtx); res != nil {
		return res
	}

	stats, err := e.stats.UserStatistics(ctx, execCtx.UserEmail)
	if err != nil {
		return failure("Error retrieving statistics: %v", err)
	}

	return success(
		fmt.Sprintf("You've worked on %d topics and taken %d quizzes!", stats.TopicsCount, stats.QuizzesTaken),
		map[string]interface{}{"statistics": stats},
	)
}

type topicStatisticsArgs struct {
	Topic string `json:"topic"`
}

func (e *Executor) executeGetTopicStatistics(ctx context.Context, _ *ExecutionContext, raw json.RawMessage) *ToolResult {
	var args topicStatisticsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure("Error retrieving topic statistics: %v", err)
	}
	topicName := strings.TrimSpace(args.Topic)
	if topicName == "" {
		return failure("Error retrieving topic statistics: topic is required")
	}

	stats, err := e.stats.TopicQuizStatistics(ctx, topicName)
	if err != nil {
		return failure("Error retrieving topic statistics: %v", err)
	}

	return success(
		fmt.Sprintf("Found %d quizzes on '%s', %d with scored attempts.", stats.TotalQuizzes, topicName, len(stats.QuizStats)),
		map[string]interface{}{"statistics": stats},
	)
}
