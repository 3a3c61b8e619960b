package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/Tchaikovic/NeuroGym/backend/internal/adapter"
	"github.com/Tchaikovic/NeuroGym/backend/internal/conversation"
	"github.com/Tchaikovic/NeuroGym/backend/internal/models"
	"github.com/Tchaikovic/NeuroGym/backend/internal/topic"
	apperrors "github.com/Tchaikovic/NeuroGym/backend/pkg/errors"
	"github.com/Tchaikovic/NeuroGym/backend/pkg/logger"
)

// ExecutionContext identifies the learner a tool acts for
type ExecutionContext struct {
	UserEmail string
	Name      string
	Age       int
}

// Result statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ToolResult is the JSON document handed back to the model
type ToolResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Success reports whether the tool did what it was asked
func (r *ToolResult) Success() bool {
	return r.Status == StatusSuccess
}

func success(message string, data map[string]interface{}) *ToolResult {
	return &ToolResult{Status: StatusSuccess, Message: message, Data: data}
}

func failure(format string, args ...interface{}) *ToolResult {
	return &ToolResult{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// TopicResolver resolves free-text topic names to canonical topics
type TopicResolver interface {
	Resolve(ctx context.Context, candidate, actor string) (*topic.Resolution, error)
}

// QuizCreator persists quizzes
type QuizCreator interface {
	CreateQuiz(ctx context.Context, quiz models.Quiz) (*models.Quiz, error)
}

// UserTopicLister lists the topics a learner studies
type UserTopicLister interface {
	GetUserTopics(ctx context.Context, userEmail string) ([]models.UserTopic, error)
}

// StatisticsProvider computes learner and quiz statistics
type StatisticsProvider interface {
	UserStatistics(ctx context.Context, userEmail string) (*models.UserStatistics, error)
	QuizLeaderboard(ctx context.Context, quizID string, limit int) ([]models.LeaderboardEntry, error)
	TopicQuizStatistics(ctx context.Context, topic string) (*models.TopicQuizStatistics, error)
}

// Executor handles tool execution
type Executor struct {
	registry *Registry
	resolver TopicResolver
	quizzes  QuizCreator
	topics   UserTopicLister
	stats    StatisticsProvider
	logger   *zap.Logger
}

// NewExecutor creates a tool executor with every tool registered
func NewExecutor(resolver TopicResolver, quizzes QuizCreator, topics UserTopicLister, stats StatisticsProvider) *Executor {
	e := &Executor{
		registry: NewRegistry(),
		resolver: resolver,
		quizzes:  quizzes,
		topics:   topics,
		stats:    stats,
		logger:   logger.Get(),
	}

	handlers := map[string]Handler{
		ToolCreateQuiz:          e.executeCreateQuiz,
		ToolGetQuizLeaderboard:  e.executeGetQuizLeaderboard,
		ToolStartNewTopic:       e.executeStartNewTopic,
		ToolGetLearningTopics:   e.executeGetLearningTopics,
		ToolShowQuizLeaderboard: e.executeShowStatistics,
		ToolGetTopicStatistics:  e.executeGetTopicStatistics,
	}
	for _, def := range GetAllTools() {
		e.registry.Register(def, handlers[def.Function.Name])
	}

	return e
}

// Registry exposes the tool registry
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Definitions returns the schemas sent to the model
func (e *Executor) Definitions() []adapter.Tool {
	return e.registry.Definitions()
}

// Has reports whether the model may call name
func (e *Executor) Has(name string) bool {
	return e.registry.Has(name)
}

// Execute runs a tool call and returns the result. It never panics and never
// returns nil: unknown tools, malformed arguments and handler failures all
// become error results.
func (e *Executor) Execute(ctx context.Context, execCtx *ExecutionContext, call conversation.ToolCall) (result *ToolResult) {
	if execCtx == nil {
		execCtx = &ExecutionContext{}
	}
	name := call.Function.Name
	e.logger.Debug("Executing tool",
		zap.String("tool", name),
		zap.String("call_id", call.ID),
		zap.String("user_email", execCtx.UserEmail),
	)

	handler, ok := e.registry.Lookup(name)
	if !ok {
		return failure("%s", apperrors.NewToolNotFound(name).Error())
	}

	args, err := parseArguments(call.Function.Arguments)
	if err != nil {
		e.logger.Warn("Malformed tool arguments",
			zap.String("tool", name),
			zap.String("arguments", call.Function.Arguments),
			zap.Error(err),
		)
		return failure("%s", apperrors.NewToolArguments(name, err).Error())
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Tool panicked",
				zap.String("tool", name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			result = failure("Tool %s failed unexpectedly", name)
		}
	}()

	result = handler(ctx, execCtx, args)
	if result == nil {
		result = failure("Tool %s returned no result", name)
	}

	e.logger.Info("Tool executed",
		zap.String("tool", name),
		zap.String("status", result.Status),
	)
	return result
}

// parseArguments checks that the arguments are a JSON object. Empty arguments
// are treated as {}.
func parseArguments(raw string) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 {
		return json.RawMessage("{}"), nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	return json.RawMessage(trimmed), nil
}

func requireUser(execCtx *ExecutionContext) *ToolResult {
	if execCtx == nil || execCtx.UserEmail == "" {
		return failure("No learner is signed in for this conversation")
	}
	return nil
}
