package tools

import (
	"github.com/Tchaikovic/NeuroGym/backend/internal/adapter"
)

// Tool names - Quiz Tools
const (
	ToolCreateQuiz         = "create_quiz"
	ToolGetQuizLeaderboard = "get_quiz_leaderboard"
)

// Tool names - Topic Tools
const (
	ToolStartNewTopic     = "start_new_topic"
	ToolGetLearningTopics = "get_learning_topics"
)

// Tool names - Statistics Tools
const (
	// ToolShowQuizLeaderboard keeps its historical name; it reports the learner's own statistics
	ToolShowQuizLeaderboard = "show_quiz_leaderboard"
	ToolGetTopicStatistics  = "get_topic_statistics"
)

// GetAllTools returns every tool schema offered to the model, in registration order
func GetAllTools() []adapter.Tool {
	var all []adapter.Tool
	all = append(all, GetQuizTools()...)
	all = append(all, GetTopicTools()...)
	all = append(all, GetStatisticsTools()...)
	return all
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	if required == nil {
		required = []string{}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
