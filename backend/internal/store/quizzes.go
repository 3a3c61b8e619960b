package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/Tchaikovic/NeuroGym/backend/internal/models"
	apperrors "github.com/Tchaikovic/NeuroGym/backend/pkg/errors"
)

type quizDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	models.Quiz `bson:",inline"`
}

func (d quizDocument) toModel() models.Quiz {
	quiz := d.Quiz
	quiz.ID = d.ID.Hex()
	return quiz
}

// CreateQuiz persists a quiz and returns it with its assigned id
func (s *Store) CreateQuiz(ctx context.Context, quiz models.Quiz) (*models.Quiz, error) {
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = time.Now().UTC()
	}

	doc := quizDocument{ID: primitive.NewObjectID(), Quiz: quiz}
	if _, err := s.db.Collection(CollectionQuizzes).InsertOne(ctx, doc); err != nil {
		return nil, apperrors.NewStoreFailed("create quiz", err)
	}

	created := doc.toModel()
	s.logger.Info("Quiz created",
		zap.String("quiz_id", created.ID),
		zap.String("title", created.Title),
		zap.Int("questions", len(created.Questions)),
	)
	return &created, nil
}

// GetQuiz returns ErrNotFound for unknown or malformed ids
func (s *Store) GetQuiz(ctx context.Context, quizID string) (*models.Quiz, error) {
	oid, err := primitive.ObjectIDFromHex(quizID)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc quizDocument
	err = s.db.Collection(CollectionQuizzes).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperrors.NewStoreFailed("get quiz", err)
	}

	quiz := doc.toModel()
	return &quiz, nil
}

// ListQuizzesByTopic returns quizzes created for a topic, oldest first
func (s *Store) ListQuizzesByTopic(ctx context.Context, topic string) ([]models.Quiz, error) {
	cursor, err := s.db.Collection(CollectionQuizzes).Find(
		ctx,
		bson.M{"topic": topic},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, apperrors.NewStoreFailed("list quizzes", err)
	}

	var docs []quizDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperrors.NewStoreFailed("list quizzes", err)
	}

	quizzes := make([]models.Quiz, 0, len(docs))
	for _, doc := range docs {
		quizzes = append(quizzes, doc.toModel())
	}
	return quizzes, nil
}
