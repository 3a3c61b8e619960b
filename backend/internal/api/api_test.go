package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tchaikovic/NeuroGym/backend/internal/agent"
	"github.com/Tchaikovic/NeuroGym/backend/internal/conversation"
	"github.com/Tchaikovic/NeuroGym/backend/internal/memstore"
	"github.com/Tchaikovic/NeuroGym/backend/internal/models"
	"github.com/Tchaikovic/NeuroGym/backend/internal/stats"
)

type fakeRunner struct {
	run func(ctx context.Context, session agent.Session, message string) (*agent.TurnResult, error)
}

func (f *fakeRunner) RunTurn(ctx context.Context, session agent.Session, message string) (*agent.TurnResult, error) {
	return f.run(ctx, session, message)
}

type testServer struct {
	store  *memstore.Store
	runner *fakeRunner
	router *gin.Engine
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	s := memstore.New()
	runner := &fakeRunner{run: func(_ context.Context, _ agent.Session, message string) (*agent.TurnResult, error) {
		return &agent.TurnResult{Content: "echo: " + message, ToolCalls: []conversation.ToolCall{}}, nil
	}}
	h := NewHandler(Deps{
		Turns:         runner,
		Conversations: s,
		Quizzes:       s,
		Topics:        s,
		Stats:         stats.NewService(s, s, s),
	})
	return &testServer{store: s, runner: runner, router: NewRouter(h, zap.NewNop())}
}

func (ts *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (ts *testServer) seedQuiz(t *testing.T) *models.Quiz {
	t.Helper()
	quiz, err := ts.store.CreateQuiz(context.Background(), models.Quiz{
		Title:      "Fractions",
		Topic:      "Math",
		Difficulty: models.DifficultyEasy,
		Questions: []models.Question{
			{Question: "1/2 + 1/2?", Choices: []string{"1", "2"}, Answer: "1"},
			{Question: "1/4 of 8?", Choices: []string{"2", "4"}, Answer: "2"},
		},
	})
	require.NoError(t, err)
	return quiz
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer()
	w := ts.do(http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer()
	w := ts.do(http.MethodOptions, "/api/chat", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestChatEndpoint_InvalidRequest(t *testing.T) {
	ts := newTestServer()
	w := ts.do(http.MethodPost, "/api/chat", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatEndpoint_RunsTurn(t *testing.T) {
	ts := newTestServer()
	var got agent.Session
	ts.runner.run = func(_ context.Context, session agent.Session, message string) (*agent.TurnResult, error) {
		got = session
		return &agent.TurnResult{Content: "Hi " + session.Name, Degraded: true, ToolCalls: []conversation.ToolCall{}}, nil
	}

	w := ts.do(http.MethodPost, "/api/chat", map[string]interface{}{
		"user_email": "  Ada@Example.com ",
		"message":    "hello",
		"name":       "Ada",
		"age":        12,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Hi Ada", body["content"])
	assert.Equal(t, true, body["degraded"])
	assert.Equal(t, []interface{}{}, body["tool_calls"])
	assert.Equal(t, agent.Session{UserEmail: "ada@example.com", Name: "Ada", Age: 12}, got)
}

func TestChatEndpoint_TurnOutlivesClientDisconnect(t *testing.T) {
	ts := newTestServer()
	var turnErr error
	ts.runner.run = func(ctx context.Context, _ agent.Session, _ string) (*agent.TurnResult, error) {
		turnErr = ctx.Err()
		return &agent.TurnResult{Content: "stored anyway"}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	body := bytes.NewBufferString(`{"user_email":"ada@example.com","message":"hello"}`)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, "/api/chat", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, turnErr)
}

func TestChatEndpoint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty message", agent.ErrEmptyMessage, http.StatusBadRequest},
		{"cancelled", context.Canceled, http.StatusRequestTimeout},
		{"store down", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.runner.run = func(context.Context, agent.Session, string) (*agent.TurnResult, error) {
				return nil, tt.err
			}
			w := ts.do(http.MethodPost, "/api/chat", map[string]string{"user_email": "a@example.com", "message": "x"})
			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestChatEndpoint_RejectsConcurrentTurnForSameUser(t *testing.T) {
	ts := newTestServer()
	started := make(chan struct{})
	unblock := make(chan struct{})
	ts.runner.run = func(_ context.Context, session agent.Session, message string) (*agent.TurnResult, error) {
		if session.UserEmail == "slow@example.com" && message == "one" {
			close(started)
			<-unblock
		}
		return &agent.TurnResult{Content: "done"}, nil
	}

	first := make(chan *httptest.ResponseRecorder)
	go func() {
		first <- ts.do(http.MethodPost, "/api/chat", map[string]string{"user_email": "slow@example.com", "message": "one"})
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first turn never started")
	}

	second := ts.do(http.MethodPost, "/api/chat", map[string]string{"user_email": "slow@example.com", "message": "two"})
	assert.Equal(t, http.StatusConflict, second.Code)

	other := ts.do(http.MethodPost, "/api/chat", map[string]string{"user_email": "other@example.com", "message": "hi"})
	assert.Equal(t, http.StatusOK, other.Code, "other users are not blocked")

	cleared := ts.do(http.MethodDelete, "/api/users/slow@example.com/history", nil)
	assert.Equal(t, http.StatusConflict, cleared.Code)

	close(unblock)
	assert.Equal(t, http.StatusOK, (<-first).Code)

	again := ts.do(http.MethodPost, "/api/chat", map[string]string{"user_email": "slow@example.com", "message": "three"})
	assert.Equal(t, http.StatusOK, again.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	ts := newTestServer()
	ctx := context.Background()
	require.NoError(t, ts.store.SaveConversation(ctx, "a@example.com", []conversation.Message{
		conversation.NewSystemMessage("be kind"),
		conversation.NewUserMessage("hi"),
		conversation.NewAssistantMessage("hello"),
	}))

	w := ts.do(http.MethodGet, "/api/users/a@example.com/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["messages"], 3)
	assert.EqualValues(t, 1, body["user_message_count"])

	w = ts.do(http.MethodDelete, "/api/users/a@example.com/history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/users/a@example.com/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, decode(t, w)["messages"])
}

func TestTopicsAndStatsEndpoints(t *testing.T) {
	ts := newTestServer()
	ctx := context.Background()
	topic, err := ts.store.CreateTopic(ctx, "Biology", "a@example.com")
	require.NoError(t, err)
	_, err = ts.store.LinkUserTopic(ctx, "a@example.com", topic.ID)
	require.NoError(t, err)

	w := ts.do(http.MethodGet, "/api/users/a@example.com/topics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	topics := decode(t, w)["topics"].([]interface{})
	require.Len(t, topics, 1)
	assert.Equal(t, "Biology", topics[0].(map[string]interface{})["topic"])

	w = ts.do(http.MethodGet, "/api/users/a@example.com/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["topics_count"])
	assert.EqualValues(t, 0, body["quizzes_taken"])
}

func TestGetQuiz_HidesAnswers(t *testing.T) {
	ts := newTestServer()
	quiz := ts.seedQuiz(t)

	w := ts.do(http.MethodGet, "/api/quizzes/"+quiz.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Fractions", body["title"])
	questions := body["questions"].([]interface{})
	require.Len(t, questions, 2)
	assert.NotContains(t, questions[0].(map[string]interface{}), "answer")

	missing := ts.do(http.MethodGet, "/api/quizzes/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestSubmitAnswers(t *testing.T) {
	ts := newTestServer()
	ctx := context.Background()
	quiz := ts.seedQuiz(t)
	require.NoError(t, ts.store.SaveConversation(ctx, "a@example.com", []conversation.Message{
		conversation.NewAssistantMessage("welcome"),
	}))

	w := ts.do(http.MethodPost, "/api/quizzes/"+quiz.ID+"/answers", map[string]interface{}{
		"user_email": "a@example.com",
		"answers":    []string{"1"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "answer count must match")

	w = ts.do(http.MethodPost, "/api/quizzes/"+quiz.ID+"/answers", map[string]interface{}{
		"user_email": "a@example.com",
		"answers":    []string{"1", "4"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	review := body["review"].(map[string]interface{})
	assert.EqualValues(t, 1, review["correct"])
	assert.EqualValues(t, 50, review["score"])
	assert.Contains(t, body["feedback"], "You got 1 out of 2 correct.")

	records, err := ts.store.ListAnswersByUser(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Score)
	assert.Equal(t, 50.0, *records[0].Score)

	history, err := ts.store.LoadConversation(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Contains(t, history[1].Text(), "Let's review the questions you missed:")

	missing := ts.do(http.MethodPost, "/api/quizzes/nope/answers", map[string]interface{}{
		"user_email": "a@example.com",
		"answers":    []string{"1"},
	})
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestSubmitAnswers_WithoutConversation(t *testing.T) {
	ts := newTestServer()
	quiz := ts.seedQuiz(t)

	w := ts.do(http.MethodPost, "/api/quizzes/"+quiz.ID+"/answers", map[string]interface{}{
		"user_email": "new@example.com",
		"answers":    []string{"1", "2"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	history, err := ts.store.LoadConversation(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestLeaderboardEndpoint(t *testing.T) {
	ts := newTestServer()
	quiz := ts.seedQuiz(t)

	for _, sub := range []struct {
		email   string
		answers []string
	}{
		{"low@example.com", []string{"2", "4"}},
		{"high@example.com", []string{"1", "2"}},
	} {
		w := ts.do(http.MethodPost, "/api/quizzes/"+quiz.ID+"/answers", map[string]interface{}{
			"user_email": sub.email,
			"answers":    sub.answers,
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := ts.do(http.MethodGet, "/api/quizzes/"+quiz.ID+"/leaderboard?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode(t, w)["leaderboard"].([]interface{})
	require.Len(t, board, 1)
	assert.Equal(t, "high@example.com", board[0].(map[string]interface{})["user_email"])

	bad := ts.do(http.MethodGet, "/api/quizzes/"+quiz.ID+"/leaderboard?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	missing := ts.do(http.MethodGet, "/api/quizzes/nope/leaderboard", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}
