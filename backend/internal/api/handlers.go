package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Tchaikovic/NeuroGym/backend/internal/agent"
	"github.com/Tchaikovic/NeuroGym/backend/internal/conversation"
	"github.com/Tchaikovic/NeuroGym/backend/internal/models"
	"github.com/Tchaikovic/NeuroGym/backend/internal/stats"
	"github.com/Tchaikovic/NeuroGym/backend/internal/store"
	apperrors "github.com/Tchaikovic/NeuroGym/backend/pkg/errors"
	"github.com/Tchaikovic/NeuroGym/backend/pkg/logger"
)

// TurnRunner runs one chat turn
type TurnRunner interface {
	RunTurn(ctx context.Context, session agent.Session, message string) (*agent.TurnResult, error)
}

// ConversationStore reads and rewrites message logs
type ConversationStore interface {
	LoadConversation(ctx context.Context, userEmail string) ([]conversation.Message, error)
	SaveConversation(ctx context.Context, userEmail string, history []conversation.Message) error
	ClearConversation(ctx context.Context, userEmail string) error
}

// QuizStore reads quizzes and records submissions
type QuizStore interface {
	GetQuiz(ctx context.Context, quizID string) (*models.Quiz, error)
	SaveAnswers(ctx context.Context, record models.QuizAnswerRecord) error
}

// TopicLister lists the topics a learner studies
type TopicLister interface {
	GetUserTopics(ctx context.Context, userEmail string) ([]models.UserTopic, error)
}

// StatisticsProvider computes learner and quiz statistics
type StatisticsProvider interface {
	UserStatistics(ctx context.Context, userEmail string) (*models.UserStatistics, error)
	QuizLeaderboard(ctx context.Context, quizID string, limit int) ([]models.LeaderboardEntry, error)
}

// Deps groups what the handlers need
type Deps struct {
	Turns         TurnRunner
	Conversations ConversationStore
	Quizzes       QuizStore
	Topics        TopicLister
	Stats         StatisticsProvider
}

// Handler serves the tutor HTTP API. At most one request that writes a
// learner's conversation runs at a time per learner; others get 409.
type Handler struct {
	deps   Deps
	logger *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewHandler creates the API handler
func NewHandler(deps Deps) *Handler {
	return &Handler{
		deps:     deps,
		logger:   logger.Get(),
		inFlight: make(map[string]struct{}),
	}
}

// Register mounts the API routes on r
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/chat", h.chat)

	users := r.Group("/users/:email")
	users.GET("/history", h.getHistory)
	users.DELETE("/history", h.clearHistory)
	users.GET("/topics", h.getTopics)
	users.GET("/stats", h.getStats)

	quizzes := r.Group("/quizzes/:id")
	quizzes.GET("", h.getQuiz)
	quizzes.POST("/answers", h.submitAnswers)
	quizzes.GET("/leaderboard", h.getLeaderboard)
}

func (h *Handler) acquire(userEmail string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, busy := h.inFlight[userEmail]; busy {
		return false
	}
	h.inFlight[userEmail] = struct{}{}
	return true
}

func (h *Handler) release(userEmail string) {
	h.mu.Lock()
	delete(h.inFlight, userEmail)
	h.mu.Unlock()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ============================================================================
// Chat
// ============================================================================

type chatRequest struct {
	UserEmail string `json:"user_email" binding:"required"`
	Message   string `json:"message" binding:"required"`
	Name      string `json:"name"`
	Age       *int   `json:"age"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := agent.Session{UserEmail: normalizeEmail(req.UserEmail), Name: strings.TrimSpace(req.Name)}
	if req.Age != nil {
		session.Age = *req.Age
	}

	if !h.acquire(session.UserEmail) {
		c.JSON(http.StatusConflict, gin.H{"error": "A previous message is still being processed"})
		return
	}
	defer h.release(session.UserEmail)

	// A client that disconnects mid-turn still gets its reply stored.
	result, err := h.deps.Turns.RunTurn(context.WithoutCancel(c.Request.Context()), session, req.Message)
	if err != nil {
		h.fail(c, "Failed to run turn", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"content":    result.Content,
		"degraded":   result.Degraded,
		"tool_calls": result.ToolCalls,
	})
}

// ============================================================================
// Users
// ============================================================================

func (h *Handler) getHistory(c *gin.Context) {
	email := normalizeEmail(c.Param("email"))
	history, err := h.deps.Conversations.LoadConversation(c.Request.Context(), email)
	if err != nil {
		h.fail(c, "Failed to load history", err)
		return
	}
	if history == nil {
		history = []conversation.Message{}
	}

	c.JSON(http.StatusOK, gin.H{
		"user_email":         email,
		"messages":           history,
		"user_message_count": conversation.CountUserMessages(history),
	})
}

func (h *Handler) clearHistory(c *gin.Context) {
	email := normalizeEmail(c.Param("email"))
	if !h.acquire(email) {
		c.JSON(http.StatusConflict, gin.H{"error": "A message is being processed for this user"})
		return
	}
	defer h.release(email)

	if err := h.deps.Conversations.ClearConversation(c.Request.Context(), email); err != nil {
		h.fail(c, "Failed to clear history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (h *Handler) getTopics(c *gin.Context) {
	email := normalizeEmail(c.Param("email"))
	userTopics, err := h.deps.Topics.GetUserTopics(c.Request.Context(), email)
	if err != nil {
		h.fail(c, "Failed to load topics", err)
		return
	}

	list := make([]models.TopicProgress, 0, len(userTopics))
	for _, ut := range userTopics {
		list = append(list, models.TopicProgress{Topic: ut.TopicName, StartedDate: ut.StartedAt})
	}
	c.JSON(http.StatusOK, gin.H{"topics": list})
}

func (h *Handler) getStats(c *gin.Context) {
	email := normalizeEmail(c.Param("email"))
	st, err := h.deps.Stats.UserStatistics(c.Request.Context(), email)
	if err != nil {
		h.fail(c, "Failed to compute statistics", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// ============================================================================
// Quizzes
// ============================================================================

type questionView struct {
	Question string   `json:"question"`
	Choices  []string `json:"choices"`
}

type quizView struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Topic      string         `json:"topic"`
	Difficulty string         `json:"difficulty"`
	Questions  []questionView `json:"questions"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (h *Handler) getQuiz(c *gin.Context) {
	quiz, err := h.deps.Quizzes.GetQuiz(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to load quiz", err)
		return
	}

	view := quizView{
		ID:         quiz.ID,
		Title:      quiz.Title,
		Topic:      quiz.Topic,
		Difficulty: quiz.Difficulty,
		Questions:  make([]questionView, 0, len(quiz.Questions)),
		CreatedAt:  quiz.CreatedAt,
	}
	for _, q := range quiz.Questions {
		view.Questions = append(view.Questions, questionView{Question: q.Question, Choices: q.Choices})
	}
	c.JSON(http.StatusOK, view)
}

type answersRequest struct {
	UserEmail string   `json:"user_email" binding:"required"`
	Answers   []string `json:"answers" binding:"required"`
}

// submitAnswers grades and stores a submission, then posts the grading as an
// assistant message in the learner's conversation.
func (h *Handler) submitAnswers(c *gin.Context) {
	var req answersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := normalizeEmail(req.UserEmail)
	ctx := c.Request.Context()

	quiz, err := h.deps.Quizzes.GetQuiz(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to load quiz", err)
		return
	}
	if len(req.Answers) != len(quiz.Questions) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "expected " + strconv.Itoa(len(quiz.Questions)) + " answers, got " + strconv.Itoa(len(req.Answers)),
		})
		return
	}

	if !h.acquire(email) {
		c.JSON(http.StatusConflict, gin.H{"error": "A message is being processed for this user"})
		return
	}
	defer h.release(email)

	review := stats.ReviewAnswers(quiz, req.Answers)
	score := review.Score
	record := models.QuizAnswerRecord{
		UserEmail:   email,
		QuizID:      quiz.ID,
		Answers:     req.Answers,
		CompletedAt: time.Now().UTC(),
		Score:       &score,
	}
	if err := h.deps.Quizzes.SaveAnswers(ctx, record); err != nil {
		h.fail(c, "Failed to save answers", err)
		return
	}

	feedback := review.Feedback()
	if err := h.appendFeedback(ctx, email, feedback); err != nil {
		h.logger.Warn("Failed to add quiz feedback to conversation",
			zap.String("user_email", email),
			zap.String("quiz_id", quiz.ID),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{
		"review":   review,
		"feedback": feedback,
	})
}

// appendFeedback adds the grading to an existing conversation. Learners who
// never chatted have no log to append to.
func (h *Handler) appendFeedback(ctx context.Context, email, feedback string) error {
	history, err := h.deps.Conversations.LoadConversation(ctx, email)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return nil
	}
	history = append(history, conversation.NewAssistantMessage(feedback))
	return h.deps.Conversations.SaveConversation(ctx, email, history)
}

func (h *Handler) getLeaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	quizID := c.Param("id")
	entries, err := h.deps.Stats.QuizLeaderboard(c.Request.Context(), quizID, limit)
	if err != nil {
		h.fail(c, "Failed to load leaderboard", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quiz_id": quizID, "leaderboard": entries})
}

// fail maps err to a status code and writes a JSON error body
func (h *Handler) fail(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": message, "detail": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, agent.ErrMissingUser), errors.Is(err, agent.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled),
		apperrors.IsErrorType(err, apperrors.ErrorTypeContext):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
