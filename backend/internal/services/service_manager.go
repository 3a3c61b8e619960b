package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Tchaikovic/NeuroGym/backend/internal/adapter"
	"github.com/Tchaikovic/NeuroGym/backend/internal/agent"
	"github.com/Tchaikovic/NeuroGym/backend/internal/conversation"
	"github.com/Tchaikovic/NeuroGym/backend/internal/graph"
	"github.com/Tchaikovic/NeuroGym/backend/internal/memstore"
	"github.com/Tchaikovic/NeuroGym/backend/internal/models"
	"github.com/Tchaikovic/NeuroGym/backend/internal/stats"
	"github.com/Tchaikovic/NeuroGym/backend/internal/store"
	"github.com/Tchaikovic/NeuroGym/backend/internal/tools"
	"github.com/Tchaikovic/NeuroGym/backend/internal/topic"
	"github.com/Tchaikovic/NeuroGym/backend/pkg/config"
)

const (
	connectTimeout  = 15 * time.Second
	shutdownTimeout = 5 * time.Second
)

// DocumentStore holds conversations, quizzes and quiz answers
type DocumentStore interface {
	LoadConversation(ctx context.Context, userEmail string) ([]conversation.Message, error)
	SaveConversation(ctx context.Context, userEmail string, history []conversation.Message) error
	ClearConversation(ctx context.Context, userEmail string) error

	CreateQuiz(ctx context.Context, quiz models.Quiz) (*models.Quiz, error)
	GetQuiz(ctx context.Context, quizID string) (*models.Quiz, error)
	ListQuizzesByTopic(ctx context.Context, topic string) ([]models.Quiz, error)

	SaveAnswers(ctx context.Context, record models.QuizAnswerRecord) error
	ListAnswersByUser(ctx context.Context, userEmail string) ([]models.QuizAnswerRecord, error)
	ListAnswersByQuiz(ctx context.Context, quizID string) ([]models.QuizAnswerRecord, error)
	Leaderboard(ctx context.Context, quizID string, limit int) ([]models.LeaderboardEntry, error)
}

// TopicGraph holds the shared topics and which learners study them
type TopicGraph interface {
	ListTopics(ctx context.Context) ([]models.Topic, error)
	CreateTopic(ctx context.Context, name, createdBy string) (*models.Topic, error)
	GetTopic(ctx context.Context, topicID string) (*models.Topic, error)
	LinkUserTopic(ctx context.Context, userEmail, topicID string) (bool, error)
	GetUserTopics(ctx context.Context, userEmail string) ([]models.UserTopic, error)
}

type closer struct {
	name  string
	close func(ctx context.Context) error
}

// ServiceManager connects the configured backends, wires the tutor
// components on top of them and closes everything on shutdown.
type ServiceManager struct {
	Documents    DocumentStore
	Topics       TopicGraph
	LLM          *adapter.LLMAdapter
	Resolver     *topic.Resolver
	Stats        *stats.Service
	Tools        *tools.Executor
	Orchestrator *agent.Orchestrator

	logger  *zap.Logger
	mu      sync.Mutex
	closers []closer
}

// NewServiceManager connects every backend named by cfg. On failure anything
// already opened is closed again.
func NewServiceManager(ctx context.Context, cfg *config.Config, log *zap.Logger) (*ServiceManager, error) {
	sm := &ServiceManager{logger: log}

	if err := sm.connect(ctx, cfg); err != nil {
		sm.StopAll()
		return nil, err
	}
	sm.wire(cfg)
	return sm, nil
}

func (sm *ServiceManager) connect(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var mem *memstore.Store
	inMemory := func() *memstore.Store {
		if mem == nil {
			mem = memstore.New()
		}
		return mem
	}

	switch cfg.StoreBackend {
	case config.BackendMongo:
		docs, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		sm.addCloser("mongodb", docs.Close)
		if err := docs.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("failed to ensure mongodb indexes: %w", err)
		}
		sm.Documents = docs
		sm.logger.Info("Connected to MongoDB", zap.String("database", cfg.MongoDatabase))
	case config.BackendMemory:
		sm.Documents = inMemory()
		sm.logger.Warn("Using in-memory document store; data is lost on restart")
	default:
		return fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	switch cfg.TopicBackend {
	case config.BackendNeo4j:
		repo, err := graph.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			return err
		}
		sm.addCloser("neo4j", repo.Close)
		if err := repo.EnsureConstraints(ctx); err != nil {
			return fmt.Errorf("failed to ensure neo4j constraints: %w", err)
		}
		sm.Topics = repo
		sm.logger.Info("Connected to Neo4j", zap.String("uri", cfg.Neo4jURI))
	case config.BackendMemory:
		sm.Topics = inMemory()
		sm.logger.Warn("Using in-memory topic graph; data is lost on restart")
	default:
		return fmt.Errorf("unknown topic backend %q", cfg.TopicBackend)
	}

	return nil
}

func (sm *ServiceManager) wire(cfg *config.Config) {
	opts := adapter.DefaultOptions()
	opts.Temperature = float32(cfg.LLMTemperature)
	opts.MaxAttempts = cfg.LLMMaxAttempts
	sm.LLM = adapter.NewLLMAdapter(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.ModelID, opts)

	lexical := topic.NewLexical(cfg.TopicSimilarityThreshold)
	var strategy topic.SimilarityStrategy = lexical
	if cfg.TopicSimilarity == config.SimilaritySemantic {
		strategy = topic.NewSemantic(sm.LLM, lexical)
	}
	sm.Resolver = topic.NewResolver(sm.Topics, strategy, topic.WithConcurrency(cfg.TopicMatchConcurrency))

	sm.Stats = stats.NewService(sm.Topics, sm.Documents, sm.Documents)
	sm.Tools = tools.NewExecutor(sm.Resolver, sm.Documents, sm.Topics, sm.Stats)
	sm.Orchestrator = agent.NewOrchestrator(sm.LLM, sm.Documents, sm.Tools, agent.WithMaxToolRounds(cfg.MaxToolRounds))

	sm.logger.Info("Tutor services ready",
		zap.String("model", cfg.ModelID),
		zap.String("similarity", strategy.Name()),
		zap.Int("max_tool_rounds", sm.Orchestrator.MaxToolRounds()),
		zap.Strings("tools", sm.Tools.Registry().Names()),
	)
}

func (sm *ServiceManager) addCloser(name string, fn func(ctx context.Context) error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.closers = append(sm.closers, closer{name: name, close: fn})
}

// StopAll closes backends in reverse order of opening
func (sm *ServiceManager) StopAll() {
	sm.mu.Lock()
	closers := sm.closers
	sm.closers = nil
	sm.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		if err := c.close(ctx); err != nil {
			sm.logger.Warn("Failed to close backend", zap.String("backend", c.name), zap.Error(err))
			continue
		}
		sm.logger.Info("Backend closed", zap.String("backend", c.name))
	}
}
