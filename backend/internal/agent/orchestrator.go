package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Tchaikovic/NeuroGym/backend/internal/adapter"
	"github.com/Tchaikovic/NeuroGym/backend/internal/conversation"
	"github.com/Tchaikovic/NeuroGym/backend/internal/tools"
	"github.com/Tchaikovic/NeuroGym/backend/pkg/logger"
)

const (
	// DefaultMaxToolRounds is the number of tool round-trips allowed per turn
	DefaultMaxToolRounds = 1

	// FallbackReply is used when the model answers without any text
	FallbackReply = "I'm here to help! Could you please rephrase your question or provide more details?"

	// ApologyReply is appended when the model cannot be reached at all
	ApologyReply = "I'm having trouble processing your request right now. Could you please try rephrasing your question?"
)

// ErrEmptyMessage is returned for a turn without user text
var ErrEmptyMessage = errors.New("user message is empty")

// LLM is the chat-completion backend used by the orchestrator
type LLM interface {
	Chat(ctx context.Context, messages []conversation.Message, tools []adapter.Tool) (*adapter.Response, error)
}

// ConversationStore persists each learner's full message log
type ConversationStore interface {
	LoadConversation(ctx context.Context, userEmail string) ([]conversation.Message, error)
	SaveConversation(ctx context.Context, userEmail string, history []conversation.Message) error
}

// ToolExecutor runs the tools the model asks for
type ToolExecutor interface {
	Definitions() []adapter.Tool
	Has(name string) bool
	Execute(ctx context.Context, execCtx *tools.ExecutionContext, call conversation.ToolCall) *tools.ToolResult
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithMaxToolRounds bounds the tool round-trips per turn. Values below 1 are ignored.
func WithMaxToolRounds(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.maxToolRounds = n
		}
	}
}

// Orchestrator manages the tutor's reasoning and action loop for one turn
type Orchestrator struct {
	llm           LLM
	store         ConversationStore
	toolExecutor  ToolExecutor
	maxToolRounds int
	logger        *zap.Logger
}

// NewOrchestrator creates a new tutor orchestrator
func NewOrchestrator(llm LLM, store ConversationStore, executor ToolExecutor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		llm:           llm,
		store:         store,
		toolExecutor:  executor,
		maxToolRounds: DefaultMaxToolRounds,
		logger:        logger.Get(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MaxToolRounds returns the configured round-trip bound
func (o *Orchestrator) MaxToolRounds() int {
	return o.maxToolRounds
}

// TurnResult represents the result of a single tutor turn
type TurnResult struct {
	Content   string                  `json:"content"`
	Degraded  bool                    `json:"degraded"`
	ToolCalls []conversation.ToolCall `json:"tool_calls"`
}

// RunTurn executes one user turn: the user message is persisted, the model
// is consulted (with at most maxToolRounds tool round-trips) and the final
// assistant reply is appended and persisted. Model failures never surface as
// errors; they end the turn with an apology marked Degraded, including when
// ctx is cancelled after the user message was saved. Persistence failures are
// returned.
func (o *Orchestrator) RunTurn(ctx context.Context, session Session, message string) (*TurnResult, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	start := time.Now()
	userEmail := strings.TrimSpace(session.UserEmail)
	log := o.logger.With(zap.String("user_email", userEmail))

	// S0: load, seed if new, append and persist the user message
	history, err := o.store.LoadConversation(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if len(history) == 0 {
		log.Debug("Seeding new conversation")
		history = seedHistory(session)
	}
	history = append(history, conversation.NewUserMessage(message))
	if err := o.store.SaveConversation(ctx, userEmail, history); err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	// Once the user message is stored the turn must end with an assistant
	// message, so later writes outlive ctx.
	persistCtx := context.WithoutCancel(ctx)

	result := &TurnResult{ToolCalls: []conversation.ToolCall{}}
	execCtx := session.ExecutionContext()
	defs := o.toolExecutor.Definitions()

	// S1: first model call
	resp, degraded, err := o.complete(ctx, log, history, defs)
	if err != nil {
		return o.finishFailed(persistCtx, log, userEmail, history, result, err)
	}
	result.Degraded = degraded

	// S2 / S1': bounded tool round-trips
	for round := 0; resp.HasToolCalls() && !result.Degraded && round < o.maxToolRounds; round++ {
		history = append(history, conversation.NewAssistantToolCalls(resp.Content, resp.ToolCalls))
		history = append(history, o.executeToolCalls(ctx, log, execCtx, resp.ToolCalls)...)
		result.ToolCalls = append(result.ToolCalls, resp.ToolCalls...)

		resp, degraded, err = o.complete(ctx, log, history, defs)
		if err != nil {
			return o.finishFailed(persistCtx, log, userEmail, history, result, err)
		}
		result.Degraded = result.Degraded || degraded
	}

	if resp.HasToolCalls() {
		log.Warn("Ignoring tool calls beyond the round limit",
			zap.Int("ignored", len(resp.ToolCalls)),
			zap.Int("max_rounds", o.maxToolRounds),
			zap.Bool("degraded", result.Degraded),
		)
	}

	// S3: deliver
	result.Content = finalText(resp)
	history = append(history, conversation.NewAssistantMessage(result.Content))
	if err := o.store.SaveConversation(persistCtx, userEmail, history); err != nil {
		return nil, fmt.Errorf("failed to persist assistant reply: %w", err)
	}

	log.Info("Turn completed",
		zap.Int("tool_calls", len(result.ToolCalls)),
		zap.Bool("degraded", result.Degraded),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// complete calls the model with the tool schemas and, when that fails while
// ctx is still live, retries once without them.
func (o *Orchestrator) complete(ctx context.Context, log *zap.Logger, history []conversation.Message, defs []adapter.Tool) (*adapter.Response, bool, error) {
	resp, err := o.llm.Chat(ctx, history, defs)
	if err == nil {
		return resp, false, nil
	}
	if ctx.Err() != nil {
		return nil, true, err
	}

	log.Warn("Model call failed, retrying without tools", zap.Error(err))
	resp, err = o.llm.Chat(ctx, history, nil)
	if err != nil {
		return nil, true, err
	}
	return resp, true, nil
}

// finishFailed closes a turn whose model call could not be completed. The
// apology keeps the log ending in an assistant message.
func (o *Orchestrator) finishFailed(ctx context.Context, log *zap.Logger, userEmail string, history []conversation.Message, result *TurnResult, cause error) (*TurnResult, error) {
	log.Error("Model unavailable, replying with apology", zap.Error(cause))
	history = append(history, conversation.NewAssistantMessage(ApologyReply))
	if err := o.store.SaveConversation(ctx, userEmail, history); err != nil {
		return nil, fmt.Errorf("failed to persist apology: %w", err)
	}

	result.Content = ApologyReply
	result.Degraded = true
	return result, nil
}
