package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/Tchaikovic/NeuroGym/backend/internal/conversation"
	apperrors "github.com/Tchaikovic/NeuroGym/backend/pkg/errors"
)

type conversationDocument struct {
	UserEmail string                 `bson:"user_email"`
	Messages  []conversation.Message `bson:"messages"`
	UpdatedAt time.Time              `bson:"updated_at"`
}

// LoadConversation returns a user's full message log, oldest first.
// A user without a stored conversation gets an empty log.
func (s *Store) LoadConversation(ctx context.Context, userEmail string) ([]conversation.Message, error) {
	var doc conversationDocument
	err := s.db.Collection(CollectionConversations).
		FindOne(ctx, bson.M{"user_email": userEmail}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []conversation.Message{}, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreFailed("load conversation", err)
	}

	if doc.Messages == nil {
		return []conversation.Message{}, nil
	}
	return doc.Messages, nil
}

// SaveConversation overwrites the stored log with history. Saving the same
// history twice leaves the store unchanged apart from updated_at.
func (s *Store) SaveConversation(ctx context.Context, userEmail string, history []conversation.Message) error {
	if history == nil {
		history = []conversation.Message{}
	}

	doc := conversationDocument{
		UserEmail: userEmail,
		Messages:  history,
		UpdatedAt: time.Now().UTC(),
	}

	_, err := s.db.Collection(CollectionConversations).ReplaceOne(
		ctx,
		bson.M{"user_email": userEmail},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return apperrors.NewStoreFailed("save conversation", err)
	}

	s.logger.Debug("Conversation saved",
		zap.String("user_email", userEmail),
		zap.Int("messages", len(history)),
	)
	return nil
}

// ClearConversation deletes a user's log
func (s *Store) ClearConversation(ctx context.Context, userEmail string) error {
	if _, err := s.db.Collection(CollectionConversations).DeleteOne(ctx, bson.M{"user_email": userEmail}); err != nil {
		return apperrors.NewStoreFailed("clear conversation", err)
	}
	return nil
}
