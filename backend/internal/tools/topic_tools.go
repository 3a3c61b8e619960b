package tools

import (
	"github.com/Tchaikovic/NeuroGym/backend/internal/adapter"
)

// GetTopicTools returns topic management tools
func GetTopicTools() []adapter.Tool {
	return []adapter.Tool{
		{
			Type: "function",
			Function: adapter.FunctionDefinition{
				Name:        ToolStartNewTopic,
				Description: "Start a new learning topic when the student expresses interest in learning about a specific subject. Only use this when the student mentions wanting to learn about a new topic.",
				Parameters: objectSchema(map[string]interface{}{
					"topic_name": map[string]interface{}{
						"type":        "string",
						"description": "The specific topic name the student wants to learn (e.g., 'Python Programming', 'Algebra', 'World History')",
					},
				}, "topic_name"),
			},
		},
		{
			Type: "function",
			Function: adapter.FunctionDefinition{
				Name:        ToolGetLearningTopics,
				Description: "Retrieve the topics that the student has worked on. Only use this when the student asks what topics they've studied or wants to see their learning history.",
				Parameters:  objectSchema(map[string]interface{}{}),
			},
		},
	}
}
