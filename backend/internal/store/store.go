package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/Tchaikovic/NeuroGym/backend/pkg/logger"
)

// Collection names
const (
	CollectionConversations = "conversations"
	CollectionQuizzes       = "quizzes"
	CollectionAnswers       = "answers"
)

// ErrNotFound distinguishes a missing document from a failed lookup
var ErrNotFound = errors.New("document not found")

// Store is the MongoDB-backed document store for conversations, quizzes and answers
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// New wraps an already connected client
func New(client *mongo.Client, database string) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
		logger: logger.Get(),
	}
}

// Connect dials MongoDB and pings the primary
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return New(client, database), nil
}

// Close disconnects the client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique keys the upsert semantics depend on
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		CollectionConversations: {{
			Keys:    bson.D{{Key: "user_email", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		CollectionAnswers: {
			{
				Keys:    bson.D{{Key: "user_email", Value: 1}, {Key: "quiz_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "quiz_id", Value: 1}, {Key: "score", Value: -1}}},
		},
		CollectionQuizzes: {{Keys: bson.D{{Key: "topic", Value: 1}}}},
	}

	for collection, models := range indexes {
		if _, err := s.db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}

	s.logger.Debug("Mongo indexes ensured", zap.String("database", s.db.Name()))
	return nil
}
