package tools

import (
	"github.com/Tchaikovic/NeuroGym/backend/internal/adapter"
)

// GetStatisticsTools returns performance reporting tools
func GetStatisticsTools() []adapter.Tool {
	return []adapter.Tool{
		{
			Type: "function",
			Function: adapter.FunctionDefinition{
				Name:        ToolShowQuizLeaderboard,
				Description: "Display quiz performance statistics and achievements. Only use this when the student asks about their scores, performance, or wants to see statistics.",
				Parameters:  objectSchema(map[string]interface{}{}),
			},
		},
		{
			Type: "function",
			Function: adapter.FunctionDefinition{
				Name:        ToolGetTopicStatistics,
				Description: "Summarize how students scored on every quiz of a topic.",
				Parameters: objectSchema(map[string]interface{}{
					"topic": map[string]interface{}{
						"type":        "string",
						"description": "The topic name as stored on its quizzes",
					},
				}, "topic"),
			},
		},
	}
}
