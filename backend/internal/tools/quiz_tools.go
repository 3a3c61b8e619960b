package tools

import (
	"github.com/Tchaikovic/NeuroGym/backend/internal/adapter"
	"github.com/Tchaikovic/NeuroGym/backend/internal/models"
)

// GetQuizTools returns quiz creation and ranking tools
func GetQuizTools() []adapter.Tool {
	return []adapter.Tool{
		{
			Type: "function",
			Function: adapter.FunctionDefinition{
				Name:        ToolCreateQuiz,
				Description: "Creates a quiz with a title, topic, difficulty, and a list of questions. Only use this when the student explicitly asks for a quiz or test on a specific topic.",
				Parameters: objectSchema(map[string]interface{}{
					"title": map[string]interface{}{
						"type":        "string",
						"description": "A clear, descriptive title for the quiz (e.g., 'Python Basics Quiz', 'Math Algebra Test')",
					},
					"questions": map[string]interface{}{
						"type":        "array",
						"description": "Array of 3-5 multiple choice questions",
						"minItems":    3,
						"maxItems":    5,
						"items": objectSchema(map[string]interface{}{
							"question": map[string]interface{}{
								"type":        "string",
								"description": "The question text",
							},
							"choices": map[string]interface{}{
								"type":        "array",
								"items":       map[string]interface{}{"type": "string"},
								"description": "Array of 3-4 multiple choice options",
								"minItems":    3,
								"maxItems":    4,
							},
							"answer": map[string]interface{}{
								"type":        "string",
								"description": "The correct answer - must be exactly one of the choices",
							},
						}, "question", "choices", "answer"),
					},
					"difficulty": map[string]interface{}{
						"type":        "string",
						"enum":        models.Difficulties,
						"description": "The difficulty level of the quiz",
					},
					"topic": map[string]interface{}{
						"type":        "string",
						"description": "The specific topic or subject area for this quiz",
					},
				}, "title", "questions", "difficulty", "topic"),
			},
		},
		{
			Type: "function",
			Function: adapter.FunctionDefinition{
				Name:        ToolGetQuizLeaderboard,
				Description: "Show the best scores on one quiz. Use this when the student asks how others did on a quiz they took.",
				Parameters: objectSchema(map[string]interface{}{
					"quiz_id": map[string]interface{}{
						"type":        "string",
						"description": "The id of the quiz",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "How many entries to return (default: 10)",
					},
				}, "quiz_id"),
			},
		},
	}
}
