package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/Tchaikovic/NeuroGym/backend/internal/models"
	apperrors "github.com/Tchaikovic/NeuroGym/backend/pkg/errors"
)

// ============================================================================
// User Operations
// ============================================================================

// LinkUserTopic records that a user studies a topic. The relation is merged,
// so calling it twice never duplicates it; created reports whether it is new.
func (r *Repository) LinkUserTopic(ctx context.Context, userEmail, topicID string) (bool, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	now := formatTime(time.Now().UTC())

	query := `
		MATCH (t:Topic {id: $topicID})
		MERGE (u:User {email: $email})
		ON CREATE SET u.first_seen = datetime($now)
		MERGE (u)-[s:STUDYING]->(t)
		ON CREATE SET s.started_at = datetime($now), s.is_active = true
		RETURN s.started_at = datetime($now) as created
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"topicID": topicID,
		"email":   userEmail,
		"now":     now,
	})
	if err != nil {
		return false, apperrors.NewStoreFailed("link user topic", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return false, apperrors.NewStoreFailed("link user topic", err)
		}
		return false, ErrTopicNotFound{TopicID: topicID}
	}

	created := getBoolFromRecord(result.Record(), "created", false)
	if created {
		r.logger.Info("User started topic",
			zap.String("user_email", userEmail),
			zap.String("topic_id", topicID),
		)
	}
	return created, nil
}

// GetUserTopics returns the topics a user studies, oldest first
func (r *Repository) GetUserTopics(ctx context.Context, userEmail string) ([]models.UserTopic, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (u:User {email: $email})-[s:STUDYING]->(t:Topic)
		RETURN t.id as topic_id, t.name as topic, s.started_at as started_at, s.is_active as is_active
		ORDER BY s.started_at ASC, t.id ASC
	`

	result, err := session.Run(ctx, query, map[string]interface{}{"email": userEmail})
	if err != nil {
		return nil, apperrors.NewStoreFailed("get user topics", err)
	}

	topics := []models.UserTopic{}
	for result.Next(ctx) {
		record := result.Record()
		topics = append(topics, models.UserTopic{
			UserEmail: userEmail,
			TopicID:   getStringFromRecord(record, "topic_id"),
			TopicName: getStringFromRecord(record, "topic"),
			StartedAt: getTimeFromRecord(record, "started_at"),
			IsActive:  getBoolFromRecord(record, "is_active", true),
		})
	}
	if err := result.Err(); err != nil {
		return nil, apperrors.NewStoreFailed("get user topics", err)
	}

	return topics, nil
}
