package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/Tchaikovic/NeuroGym/backend/internal/models"
	apperrors "github.com/Tchaikovic/NeuroGym/backend/pkg/errors"
)

// ============================================================================
// Topic Operations
// ============================================================================

// ListTopics returns every topic in storage order (creation time, then id)
func (r *Repository) ListTopics(ctx context.Context) ([]models.Topic, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (t:Topic)
		RETURN t.id as id, t.name as name, t.created_by as created_by, t.created_at as created_at
		ORDER BY t.created_at ASC, t.id ASC
	`

	result, err := session.Run(ctx, query, nil)
	if err != nil {
		return nil, apperrors.NewStoreFailed("list topics", err)
	}

	topics := []models.Topic{}
	for result.Next(ctx) {
		topics = append(topics, topicFromRecord(result.Record()))
	}
	if err := result.Err(); err != nil {
		return nil, apperrors.NewStoreFailed("list topics", err)
	}

	return topics, nil
}

// CreateTopic inserts a new topic node. Deduplication is the caller's job.
func (r *Repository) CreateTopic(ctx context.Context, name, createdBy string) (*models.Topic, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	topicID := uuid.New().String()
	now := time.Now().UTC()

	query := `
		CREATE (t:Topic {id: $topicID, name: $name, created_by: $createdBy, created_at: datetime($now)})
		RETURN t.id as id, t.name as name, t.created_by as created_by, t.created_at as created_at
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"topicID":   topicID,
		"name":      name,
		"createdBy": createdBy,
		"now":       formatTime(now),
	})
	if err != nil {
		return nil, apperrors.NewStoreFailed("create topic", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return nil, apperrors.NewStoreFailed("create topic", err)
	}

	topic := topicFromRecord(record)
	r.logger.Info("Topic created",
		zap.String("topic_id", topic.ID),
		zap.String("name", topic.Name),
		zap.String("created_by", createdBy),
	)
	return &topic, nil
}

// GetTopic fetches one topic by id
func (r *Repository) GetTopic(ctx context.Context, topicID string) (*models.Topic, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (t:Topic {id: $topicID})
		RETURN t.id as id, t.name as name, t.created_by as created_by, t.created_at as created_at
	`

	result, err := session.Run(ctx, query, map[string]interface{}{"topicID": topicID})
	if err != nil {
		return nil, apperrors.NewStoreFailed("get topic", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, apperrors.NewStoreFailed("get topic", err)
		}
		return nil, ErrTopicNotFound{TopicID: topicID}
	}

	topic := topicFromRecord(result.Record())
	return &topic, nil
}

func topicFromRecord(record *neo4j.Record) models.Topic {
	return models.Topic{
		ID:        getStringFromRecord(record, "id"),
		Name:      getStringFromRecord(record, "name"),
		CreatedBy: getStringFromRecord(record, "created_by"),
		CreatedAt: getTimeFromRecord(record, "created_at"),
	}
}
