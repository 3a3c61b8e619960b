package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Tchaikovic/NeuroGym/backend/internal/models"
	apperrors "github.com/Tchaikovic/NeuroGym/backend/pkg/errors"
)

// DefaultLeaderboardLimit is used when callers pass a non-positive limit
const DefaultLeaderboardLimit = 10

// SaveAnswers upserts the (user, quiz) record; the latest submission wins
func (s *Store) SaveAnswers(ctx context.Context, record models.QuizAnswerRecord) error {
	if record.CompletedAt.IsZero() {
		record.CompletedAt = time.Now().UTC()
	}

	set := bson.M{
		"answers":      record.Answers,
		"completed_at": record.CompletedAt,
	}
	update := bson.M{"$set": set}
	if record.Score != nil {
		set["score"] = *record.Score
	} else {
		update["$unset"] = bson.M{"score": ""}
	}

	_, err := s.db.Collection(CollectionAnswers).UpdateOne(
		ctx,
		bson.M{"user_email": record.UserEmail, "quiz_id": record.QuizID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return apperrors.NewStoreFailed("save answers", err)
	}
	return nil
}

// ListAnswersByUser returns every submission of a user, oldest first
func (s *Store) ListAnswersByUser(ctx context.Context, userEmail string) ([]models.QuizAnswerRecord, error) {
	return s.findAnswers(ctx, "list answers by user",
		bson.M{"user_email": userEmail},
		options.Find().SetSort(bson.D{{Key: "completed_at", Value: 1}}),
	)
}

// ListAnswersByQuiz returns every submission for a quiz, oldest first
func (s *Store) ListAnswersByQuiz(ctx context.Context, quizID string) ([]models.QuizAnswerRecord, error) {
	return s.findAnswers(ctx, "list answers by quiz",
		bson.M{"quiz_id": quizID},
		options.Find().SetSort(bson.D{{Key: "completed_at", Value: 1}}),
	)
}

// Leaderboard returns scored submissions for a quiz, best score first and
// earlier completion breaking ties
func (s *Store) Leaderboard(ctx context.Context, quizID string, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}

	records, err := s.findAnswers(ctx, "leaderboard",
		bson.M{"quiz_id": quizID, "score": bson.M{"$exists": true}},
		options.Find().
			SetSort(bson.D{{Key: "score", Value: -1}, {Key: "completed_at", Value: 1}}).
			SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(records))
	for _, rec := range records {
		if rec.Score == nil {
			continue
		}
		entries = append(entries, models.LeaderboardEntry{
			Rank:        len(entries) + 1,
			UserEmail:   rec.UserEmail,
			Score:       *rec.Score,
			CompletedAt: rec.CompletedAt,
		})
	}
	return entries, nil
}

func (s *Store) findAnswers(ctx context.Context, op string, filter bson.M, opts *options.FindOptions) ([]models.QuizAnswerRecord, error) {
	cursor, err := s.db.Collection(CollectionAnswers).Find(ctx, filter, opts)
	if err != nil {
		return nil, apperrors.NewStoreFailed(op, err)
	}

	records := []models.QuizAnswerRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, apperrors.NewStoreFailed(op, err)
	}
	return records, nil
}
