package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tchaikovic/NeuroGym/backend/internal/conversation"
	"github.com/Tchaikovic/NeuroGym/backend/internal/models"
)

// These tests require a running MongoDB instance reachable at MONGODB_TEST_URI.
// Each test uses a throwaway database that is dropped afterwards.
func newTestStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx := context.Background()
	s, err := Connect(ctx, uri, "neurogym_test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.db.Drop(ctx)
		_ = s.Close(ctx)
	})

	require.NoError(t, s.EnsureIndexes(ctx))
	return s, ctx
}

func sampleHistory(t *testing.T) []conversation.Message {
	t.Helper()
	toolMsg, err := conversation.NewToolMessage("call_1", map[string]interface{}{"status": "success", "is_new_topic": true})
	require.NoError(t, err)

	return []conversation.Message{
		conversation.NewSystemMessage("You are a tutor."),
		conversation.NewUserMessage("I want to learn about Python"),
		conversation.NewAssistantToolCalls(nil, []conversation.ToolCall{{
			ID:       "call_1",
			Type:     conversation.ToolCallTypeFunction,
			Function: conversation.FunctionCall{Name: "start_new_topic", Arguments: `{"topic_name":"Python Programming"}`},
		}}),
		toolMsg,
		conversation.NewAssistantMessage("Great, let's start!"),
	}
}

func TestConversation_RoundTrip(t *testing.T) {
	s, ctx := newTestStore(t)
	email := "roundtrip@example.com"

	empty, err := s.LoadConversation(ctx, email)
	require.NoError(t, err)
	assert.Empty(t, empty)

	history := sampleHistory(t)
	require.NoError(t, s.SaveConversation(ctx, email, history))
	// Saving the same history twice is a full overwrite
	require.NoError(t, s.SaveConversation(ctx, email, history))

	loaded, err := s.LoadConversation(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, history, loaded)

	require.NoError(t, s.ClearConversation(ctx, email))
	loaded, err = s.LoadConversation(ctx, email)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestQuiz_CreateAndGet(t *testing.T) {
	s, ctx := newTestStore(t)

	created, err := s.CreateQuiz(ctx, models.Quiz{
		Title:      "Python Basics Quiz",
		Questions:  []models.Question{{Question: "Q1", Choices: []string{"A", "B"}, Answer: "A"}},
		Difficulty: models.DifficultyEasy,
		Topic:      "Python Programming",
		CreatedBy:  "a@example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := s.GetQuiz(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, created.Questions, got.Questions)

	_, err = s.GetQuiz(ctx, "not-an-object-id")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetQuiz(ctx, "64b7f0f0f0f0f0f0f0f0f0f0")
	assert.ErrorIs(t, err, ErrNotFound)

	byTopic, err := s.ListQuizzesByTopic(ctx, "Python Programming")
	require.NoError(t, err)
	assert.Len(t, byTopic, 1)
}

func TestAnswers_UpsertAndLeaderboard(t *testing.T) {
	s, ctx := newTestStore(t)
	score := func(v float64) *float64 { return &v }
	base := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, s.SaveAnswers(ctx, models.QuizAnswerRecord{UserEmail: "a@example.com", QuizID: "q1", Answers: []string{"A"}, Score: score(50), CompletedAt: base}))
	require.NoError(t, s.SaveAnswers(ctx, models.QuizAnswerRecord{UserEmail: "a@example.com", QuizID: "q1", Answers: []string{"B"}, Score: score(100), CompletedAt: base.Add(time.Minute)}))
	require.NoError(t, s.SaveAnswers(ctx, models.QuizAnswerRecord{UserEmail: "b@example.com", QuizID: "q1", Answers: []string{"B"}, Score: score(100), CompletedAt: base.Add(2 * time.Minute)}))
	require.NoError(t, s.SaveAnswers(ctx, models.QuizAnswerRecord{UserEmail: "c@example.com", QuizID: "q1", Answers: []string{"C"}}))

	byUser, err := s.ListAnswersByUser(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, byUser, 1, "answers are upserted per (user, quiz)")
	assert.Equal(t, []string{"B"}, byUser[0].Answers)

	board, err := s.Leaderboard(ctx, "q1", 0)
	require.NoError(t, err)
	require.Len(t, board, 2, "unscored submissions are excluded")
	assert.Equal(t, "a@example.com", board[0].UserEmail)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, "b@example.com", board[1].UserEmail)

	byQuiz, err := s.ListAnswersByQuiz(ctx, "q1")
	require.NoError(t, err)
	assert.Len(t, byQuiz, 3)

	require.NoError(t, s.SaveAnswers(ctx, models.QuizAnswerRecord{UserEmail: "b@example.com", QuizID: "q1", Answers: []string{"D"}, CompletedAt: base.Add(time.Hour)}))
	byUser, err = s.ListAnswersByUser(ctx, "b@example.com")
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Nil(t, byUser[0].Score, "an unscored resubmission clears the old score")

	board, err = s.Leaderboard(ctx, "q1", 0)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, "a@example.com", board[0].UserEmail)
}
