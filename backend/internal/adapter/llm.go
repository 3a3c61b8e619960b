package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Tchaikovic/NeuroGym/backend/internal/conversation"
	apperrors "github.com/Tchaikovic/NeuroGym/backend/pkg/errors"
	"github.com/Tchaikovic/NeuroGym/backend/pkg/logger"
)

// Options tunes the adapter's request parameters and transport retries
type Options struct {
	Temperature float32
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultOptions returns one attempt at temperature 0.3
func DefaultOptions() Options {
	return Options{
		Temperature: 0.3,
		MaxAttempts: 1,
		Backoff:     time.Second,
	}
}

// LLMAdapter talks to an OpenAI-compatible chat-completion endpoint (LiteLLM, Cohere compat, ...)
type LLMAdapter struct {
	client *openai.Client
	model  string
	mu     sync.RWMutex // Protects model field for concurrent access
	opts   Options
	logger *zap.Logger
}

// NewLLMAdapter creates a new LLM adapter. baseURL must include the API version path.
func NewLLMAdapter(baseURL, apiKey, modelID string, opts Options) *LLMAdapter {
	// Proxies in front of local models accept any key
	if apiKey == "" {
		apiKey = "dummy-key"
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimRight(baseURL, "/")

	return &LLMAdapter{
		client: openai.NewClientWithConfig(config),
		model:  modelID,
		opts:   opts,
		logger: logger.Get(),
	}
}

// SetModel updates the model used by this adapter
func (a *LLMAdapter) SetModel(model string) {
	if model != "" {
		a.mu.Lock()
		a.model = model
		a.mu.Unlock()
		a.logger.Debug("LLM adapter model updated", zap.String("model", model))
	}
}

// GetModel returns the current model
func (a *LLMAdapter) GetModel() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

// Tool represents a function that can be called by the LLM
type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition defines a function that can be called
type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Response is the first choice of a chat completion
type Response struct {
	Content      conversation.Content
	ToolCalls    []conversation.ToolCall
	FinishReason string
}

// Text returns the display text of the response
func (r *Response) Text() string {
	return conversation.ExtractText(r.Content)
}

// HasToolCalls reports whether the model requested tools
func (r *Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// Chat sends the conversation to the model. A nil tools slice omits the tool
// parameter from the request entirely.
func (a *LLMAdapter) Chat(ctx context.Context, messages []conversation.Message, tools []Tool) (*Response, error) {
	currentModel := a.GetModel()

	req := openai.ChatCompletionRequest{
		Model:       currentModel,
		Messages:    toOpenAIMessages(messages),
		Temperature: a.opts.Temperature,
	}
	if tools != nil {
		req.Tools = toOpenAITools(tools)
	}

	var (
		resp openai.ChatCompletionResponse
		err  error
	)
	attempt := 0
	for attempt < a.opts.MaxAttempts {
		if attempt > 0 {
			backoff := time.Duration(attempt) * a.opts.Backoff
			a.logger.Warn("Retrying LLM request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil, apperrors.NewContextCancelled("chat completion", ctx.Err())
			case <-time.After(backoff):
			}
		}
		attempt++

		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}

		a.logger.Error("LLM request failed",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.String("model", currentModel),
			zap.Bool("with_tools", tools != nil),
		)

		if ctx.Err() != nil {
			return nil, apperrors.NewContextCancelled("chat completion", ctx.Err())
		}
		if !isTransient(err) {
			break
		}
	}

	if err != nil {
		return nil, apperrors.NewLLMFailed(currentModel, attempt, isTransient(err), err)
	}

	if len(resp.Choices) == 0 {
		return nil, apperrors.ErrLLMNoChoices
	}

	response := fromOpenAIMessage(resp.Choices[0].Message)
	response.FinishReason = string(resp.Choices[0].FinishReason)

	a.logger.Debug("LLM response generated",
		zap.String("model", currentModel),
		zap.Int("tool_calls", len(response.ToolCalls)),
		zap.Bool("has_content", len(response.Content) > 0),
	)

	return response, nil
}

// isTransient treats rate limits, server errors and transport failures as worth retrying
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	return true
}

func toOpenAITools(tools []Tool) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			},
		})
	}
	return out
}

func toOpenAIMessages(messages []conversation.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			ToolCallID: m.ToolCallID,
		}

		switch m.Role {
		case conversation.RoleTool:
			// Tool results travel as their JSON payload
			msg.Content = strings.Join(m.Content.Documents(), "\n")
		default:
			msg.Content = m.Text()
		}

		for _, call := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Function.Name,
					Arguments: call.Function.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) *Response {
	response := &Response{}

	if len(msg.MultiContent) > 0 {
		for _, part := range msg.MultiContent {
			if part.Type == openai.ChatMessagePartTypeText {
				response.Content = append(response.Content, conversation.TextSegment(part.Text))
				continue
			}
			response.Content = append(response.Content, conversation.Segment{Type: conversation.SegmentType(part.Type)})
		}
	} else {
		response.Content = conversation.Text(msg.Content)
	}

	for i, tc := range msg.ToolCalls {
		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		response.ToolCalls = append(response.ToolCalls, conversation.ToolCall{
			ID:   id,
			Type: conversation.ToolCallTypeFunction,
			Function: conversation.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	return response
}
