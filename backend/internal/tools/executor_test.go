package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tchaikovic/NeuroGym/backend/internal/conversation"
	"github.com/Tchaikovic/NeuroGym/backend/internal/memstore"
	"github.com/Tchaikovic/NeuroGym/backend/internal/models"
	"github.com/Tchaikovic/NeuroGym/backend/internal/stats"
	"github.com/Tchaikovic/NeuroGym/backend/internal/topic"
)

type fixture struct {
	store    *memstore.Store
	executor *Executor
	execCtx  *ExecutionContext
}

func newFixture() *fixture {
	s := memstore.New()
	resolver := topic.NewResolver(s, topic.NewLexical(0.8))
	return &fixture{
		store:    s,
		executor: NewExecutor(resolver, s, s, stats.NewService(s, s, s)),
		execCtx:  &ExecutionContext{UserEmail: "learner@example.com", Name: "Ada", Age: 14},
	}
}

func call(name, args string) conversation.ToolCall {
	return conversation.ToolCall{
		ID:       "call_" + name,
		Type:     conversation.ToolCallTypeFunction,
		Function: conversation.FunctionCall{Name: name, Arguments: args},
	}
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestRegistry_DefinitionsMatchHandlers(t *testing.T) {
	f := newFixture()
	defs := f.executor.Definitions()

	names := make([]string, 0, len(defs))
	for _, def := range defs {
		assert.Equal(t, "function", def.Type)
		assert.NotEmpty(t, def.Function.Description)
		assert.Equal(t, "object", def.Function.Parameters["type"])
		handler, ok := f.executor.Registry().Lookup(def.Function.Name)
		assert.True(t, ok)
		assert.NotNil(t, handler, def.Function.Name)
		names = append(names, def.Function.Name)
	}

	assert.Equal(t, []string{
		ToolCreateQuiz, ToolGetQuizLeaderboard,
		ToolStartNewTopic, ToolGetLearningTopics,
		ToolShowQuizLeaderboard, ToolGetTopicStatistics,
	}, names)
	assert.Equal(t, names, f.executor.Registry().Names())
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	def := GetTopicTools()[0]
	r.Register(def, nil)
	assert.Panics(t, func() { r.Register(def, nil) })
}

func TestExecute_UnknownTool(t *testing.T) {
	f := newFixture()
	res := f.executor.Execute(context.Background(), f.execCtx, call("teleport", "{}"))

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Message, "teleport")
	assert.False(t, f.executor.Has("teleport"))
}

func TestExecute_MalformedArguments(t *testing.T) {
	f := newFixture()

	for _, args := range []string{`{"topic_name":`, `[1,2]`, `"Python"`} {
		res := f.executor.Execute(context.Background(), f.execCtx, call(ToolStartNewTopic, args))
		assert.Equal(t, StatusError, res.Status, args)
		assert.Contains(t, res.Message, "malformed arguments")
	}

	topics, _ := f.store.ListTopics(context.Background())
	assert.Empty(t, topics)
}

func TestCreateQuiz_AllQuestionsInvalid(t *testing.T) {
	f := newFixture()
	args := mustJSON(t, map[string]interface{}{
		"title":      "Broken",
		"difficulty": "easy",
		"topic":      "Letters",
		"questions": []map[string]interface{}{
			{"question": "Q1", "choices": []string{"A", "B"}, "answer": "C"},
		},
	})

	res := f.executor.Execute(context.Background(), f.execCtx, call(ToolCreateQuiz, args))
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Message, ErrNoValidQuestions.Error())

	quizzes, _ := f.store.ListQuizzesByTopic(context.Background(), "Letters")
	assert.Empty(t, quizzes, "no quiz is persisted")
	topics, _ := f.store.ListTopics(context.Background())
	assert.Empty(t, topics, "no topic is created for a rejected quiz")
}

func TestCreateQuiz_DropsMalformedQuestions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.executor.resolver.Resolve(ctx, "Python Programming", "someone@example.com")
	require.NoError(t, err)

	args := mustJSON(t, map[string]interface{}{
		"title":      "Python Basics Quiz",
		"difficulty": "HARD",
		"topic":      "python",
		"questions": []interface{}{
			map[string]interface{}{"question": "Q1", "choices": []string{"A", "B"}, "answer": "C"},
			map[string]interface{}{"question": "Q2", "choices": []string{"print", "echo"}, "answer": "print"},
			map[string]interface{}{"question": "Q3", "choices": "not-a-list", "answer": "x"},
		},
	})

	res := f.executor.Execute(ctx, f.execCtx, call(ToolCreateQuiz, args))
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Equal(t, "Quiz 'Python Basics Quiz' created successfully!", res.Message)
	assert.Equal(t, 1, res.Data["question_count"])
	assert.Equal(t, 2, res.Data["dropped_questions"])
	assert.Equal(t, models.DifficultyHard, res.Data["difficulty"])
	assert.Equal(t, "Python Programming", res.Data["topic"], "topic is resolved to its canonical name")

	quizzes, err := f.store.ListQuizzesByTopic(ctx, "Python Programming")
	require.NoError(t, err)
	require.Len(t, quizzes, 1)
	assert.Equal(t, "learner@example.com", quizzes[0].CreatedBy)
	assert.NotEmpty(t, quizzes[0].TopicID)

	userTopics, _ := f.store.GetUserTopics(ctx, "learner@example.com")
	assert.Len(t, userTopics, 1)
}

func TestCreateQuiz_UnknownDifficultyDefaultsToMedium(t *testing.T) {
	f := newFixture()
	args := mustJSON(t, map[string]interface{}{
		"title":      "Quiz",
		"difficulty": "legendary",
		"questions":  []map[string]interface{}{{"question": "Q", "choices": []string{"A"}, "answer": "A"}},
	})

	res := f.executor.Execute(context.Background(), f.execCtx, call(ToolCreateQuiz, args))
	require.True(t, res.Success(), res.Message)
	assert.Equal(t, models.DifficultyMedium, res.Data["difficulty"])
}

func TestStartNewTopic_NewThenExisting(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first := f.executor.Execute(ctx, f.execCtx, call(ToolStartNewTopic, `{"topic_name":"Python Programming"}`))
	require.True(t, first.Success(), first.Message)
	assert.Equal(t, true, first.Data["is_new_topic"])
	assert.Equal(t, "Great! I've started a new topic: 'Python Programming'. What specific aspect would you like to explore first?", first.Message)

	second := f.executor.Execute(ctx, f.execCtx, call(ToolStartNewTopic, `{"topic_name":"Python"}`))
	require.True(t, second.Success(), second.Message)
	assert.Equal(t, false, second.Data["is_new_topic"])
	assert.Equal(t, first.Data["topic_id"], second.Data["topic_id"])
	assert.Equal(t, "Welcome back to 'Python Programming'! Let's continue where we left off. What would you like to work on?", second.Message)
}

func TestStartNewTopic_EmptyName(t *testing.T) {
	f := newFixture()
	res := f.executor.Execute(context.Background(), f.execCtx, call(ToolStartNewTopic, `{"topic_name":"  "}`))
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Message, topic.ErrEmptyName.Error())
}

func TestStartNewTopic_RequiresUser(t *testing.T) {
	f := newFixture()
	res := f.executor.Execute(context.Background(), &ExecutionContext{}, call(ToolStartNewTopic, `{"topic_name":"Math"}`))
	assert.Equal(t, StatusError, res.Status)
}

func TestGetLearningTopics(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	empty := f.executor.Execute(ctx, f.execCtx, call(ToolGetLearningTopics, ""))
	require.True(t, empty.Success())
	assert.Equal(t, "You haven't started any topics yet. What would you like to learn about?", empty.Message)

	f.executor.Execute(ctx, f.execCtx, call(ToolStartNewTopic, `{"topic_name":"Math"}`))
	f.executor.Execute(ctx, f.execCtx, call(ToolStartNewTopic, `{"topic_name":"History"}`))

	res := f.executor.Execute(ctx, f.execCtx, call(ToolGetLearningTopics, "{}"))
	require.True(t, res.Success())
	assert.Equal(t, "You've worked on 2 topics so far!", res.Message)
	topics := res.Data["topics"].([]models.TopicProgress)
	assert.Equal(t, "Math", topics[0].Topic)
}

func TestShowStatisticsAndLeaderboards(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	score := 100.0

	quiz, err := f.store.CreateQuiz(ctx, models.Quiz{
		Title:     "Math quiz",
		Topic:     "Math",
		Questions: []models.Question{{Question: "1+1", Choices: []string{"2", "3"}, Answer: "2"}},
	})
	require.NoError(t, err)
	require.NoError(t, f.store.SaveAnswers(ctx, models.QuizAnswerRecord{
		UserEmail: f.execCtx.UserEmail, QuizID: quiz.ID, Answers: []string{"2"}, Score: &score,
	}))

	res := f.executor.Execute(ctx, f.execCtx, call(ToolShowQuizLeaderboard, "{}"))
	require.True(t, res.Success(), res.Message)
	assert.Equal(t, "You've worked on 0 topics and taken 1 quizzes!", res.Message)
	st := res.Data["statistics"].(*models.UserStatistics)
	assert.Equal(t, 1, st.CorrectAnswers)

	board := f.executor.Execute(ctx, f.execCtx, call(ToolGetQuizLeaderboard, mustJSON(t, map[string]string{"quiz_id": quiz.ID})))
	require.True(t, board.Success(), board.Message)
	assert.Len(t, board.Data["leaderboard"], 1)

	missing := f.executor.Execute(ctx, f.execCtx, call(ToolGetQuizLeaderboard, "{}"))
	assert.Equal(t, StatusError, missing.Status)

	unknown := f.executor.Execute(ctx, f.execCtx, call(ToolGetQuizLeaderboard, `{"quiz_id":"nope"}`))
	assert.Equal(t, StatusError, unknown.Status)
	assert.Equal(t, "Quiz nope was not found", unknown.Message)

	topicStats := f.executor.Execute(ctx, f.execCtx, call(ToolGetTopicStatistics, `{"topic":"Math"}`))
	require.True(t, topicStats.Success(), topicStats.Message)
	assert.Equal(t, "Found 1 quizzes on 'Math', 1 with scored attempts.", topicStats.Message)
}

type panickingStats struct{ *stats.Service }

func (panickingStats) UserStatistics(context.Context, string) (*models.UserStatistics, error) {
	panic("boom")
}

type failingStats struct{ *stats.Service }

func (failingStats) UserStatistics(context.Context, string) (*models.UserStatistics, error) {
	return nil, errors.New("answers collection unavailable")
}

func TestExecute_HandlerFailuresBecomeResults(t *testing.T) {
	s := memstore.New()
	resolver := topic.NewResolver(s, topic.NewLexical(0.8))
	execCtx := &ExecutionContext{UserEmail: "a@example.com"}

	panicky := NewExecutor(resolver, s, s, panickingStats{})
	res := panicky.Execute(context.Background(), execCtx, call(ToolShowQuizLeaderboard, "{}"))
	assert.Equal(t, StatusError, res.Status)

	failing := NewExecutor(resolver, s, s, failingStats{})
	res = failing.Execute(context.Background(), execCtx, call(ToolShowQuizLeaderboard, "{}"))
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Message, "answers collection unavailable")
}

func TestToolResult_JSONShape(t *testing.T) {
	res := success("ok", map[string]interface{}{"topic_id": "t1"})
	assert.JSONEq(t, `{"status":"success","message":"ok","data":{"topic_id":"t1"}}`, mustJSON(t, res))

	assert.JSONEq(t, `{"status":"error","message":"nope"}`, mustJSON(t, failure("nope")))
}
