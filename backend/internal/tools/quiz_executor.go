package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Tchaikovic/NeuroGym/backend/internal/models"
	"github.com/Tchaikovic/NeuroGym/backend/internal/store"
)

// ErrNoValidQuestions is reported when every question of a quiz was malformed
var ErrNoValidQuestions = errors.New("quiz has no valid questions")

// ============================================================================
// Quiz Tool Implementations
// ============================================================================

type createQuizArgs struct {
	Title      string            `json:"title"`
	Questions  []json.RawMessage `json:"questions"`
	Difficulty string            `json:"difficulty"`
	Topic      string            `json:"topic"`
}

// decodeQuestions decodes each question on its own so one badly shaped entry
// is dropped instead of failing the whole call
func decodeQuestions(raw []json.RawMessage) (valid []models.Question, dropped int) {
	decoded := make([]models.Question, 0, len(raw))
	for _, item := range raw {
		var q models.Question
		if err := json.Unmarshal(item, &q); err != nil {
			dropped++
			continue
		}
		decoded = append(decoded, q)
	}
	valid, invalid := models.SplitQuestions(decoded)
	return valid, dropped + invalid
}

func normalizeDifficulty(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	for _, known := range models.Difficulties {
		if d == known {
			return d
		}
	}
	return models.DifficultyMedium
}

func (e *Executor) executeCreateQuiz(ctx context.Context, execCtx *ExecutionContext, raw json.RawMessage) *ToolResult {
	if res := requireUser(execCtx); res != nil {
		return res
	}

	var args createQuizArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure("Error creating quiz: %v", err)
	}

	title := strings.TrimSpace(args.Title)
	if title == "" {
		return failure("Error creating quiz: title is required")
	}

	questions, dropped := decodeQuestions(args.Questions)
	if dropped > 0 {
		e.logger.Warn("Dropped malformed quiz questions",
			zap.String("title", title),
			zap.Int("dropped", dropped),
			zap.Int("kept", len(questions)),
		)
	}
	if len(questions) == 0 {
		return failure("Error creating quiz: %v (each answer must be one of its choices)", ErrNoValidQuestions)
	}

	quiz := models.Quiz{
		Title:      title,
		Questions:  questions,
		Difficulty: normalizeDifficulty(args.Difficulty),
		Topic:      strings.TrimSpace(args.Topic),
		CreatedBy:  execCtx.UserEmail,
	}

	if quiz.Topic != "" {
		res, err := e.resolver.Resolve(ctx, quiz.Topic, execCtx.UserEmail)
		if err != nil {
			return failure("Error creating quiz: %v", err)
		}
		quiz.Topic = res.CanonicalName
		quiz.TopicID = res.TopicID
	}

	created, err := e.quizzes.CreateQuiz(ctx, quiz)
	if err != nil {
		return failure("Error creating quiz: %v", err)
	}

	return success(fmt.Sprintf("Quiz '%s' created successfully!", created.Title), map[string]interface{}{
		"quiz_id":           created.ID,
		"title":             created.Title,
		"topic":             created.Topic,
		"question_count":    len(created.Questions),
		"dropped_questions": dropped,
		"difficulty":        created.Difficulty,
	})
}

type quizLeaderboardArgs struct {
	QuizID string `json:"quiz_id"`
	Limit  int    `json:"limit"`
}

func (e *Executor) executeGetQuizLeaderboard(ctx context.Context, execCtx *ExecutionContext, raw json.RawMessage) *ToolResult {
	var args quizLeaderboardArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure("Error retrieving leaderboard: %v", err)
	}
	if args.QuizID == "" {
		return failure("Error retrieving leaderboard: quiz_id is required")
	}

	entries, err := e.stats.QuizLeaderboard(ctx, args.QuizID, args.Limit)
	if errors.Is(err, store.ErrNotFound) {
		return failure("Quiz %s was not found", args.QuizID)
	}
	if err != nil {
		return failure("Error retrieving leaderboard: %v", err)
	}

	message := fmt.Sprintf("Top %d results for this quiz.", len(entries))
	if len(entries) == 0 {
		message = "Nobody has a scored attempt on this quiz yet."
	}
	return success(message, map[string]interface{}{
		"quiz_id":     args.QuizID,
		"leaderboard": entries,
	})
}
