package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Tchaikovic/NeuroGym/backend/internal/conversation"
	"github.com/Tchaikovic/NeuroGym/backend/internal/graph"
	"github.com/Tchaikovic/NeuroGym/backend/internal/models"
	"github.com/Tchaikovic/NeuroGym/backend/internal/store"
	"github.com/Tchaikovic/NeuroGym/backend/pkg/logger"
)

type answerKey struct {
	userEmail string
	quizID    string
}

// Store keeps conversations, quizzes, answers and the topic graph in process memory.
// Every read and write copies, so callers never share slices with the store.
type Store struct {
	mu            sync.RWMutex
	conversations map[string][]conversation.Message
	quizzes       map[string]models.Quiz
	quizOrder     []string
	answers       map[answerKey]models.QuizAnswerRecord
	answerOrder   []answerKey
	topics        []models.Topic
	userTopics    map[string][]models.UserTopic
	now           func() time.Time
	logger        *zap.Logger
}

// New creates an empty store
func New() *Store {
	return &Store{
		conversations: make(map[string][]conversation.Message),
		quizzes:       make(map[string]models.Quiz),
		answers:       make(map[answerKey]models.QuizAnswerRecord),
		userTopics:    make(map[string][]models.UserTopic),
		now:           func() time.Time { return time.Now().UTC() },
		logger:        logger.Get(),
	}
}

// Conversations

func (s *Store) LoadConversation(_ context.Context, userEmail string) ([]conversation.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.conversations[userEmail]
	if !ok {
		return []conversation.Message{}, nil
	}
	return conversation.CloneHistory(history), nil
}

func (s *Store) SaveConversation(_ context.Context, userEmail string, history []conversation.Message) error {
	cloned := conversation.CloneHistory(history)
	if cloned == nil {
		cloned = []conversation.Message{}
	}

	s.mu.Lock()
	s.conversations[userEmail] = cloned
	s.mu.Unlock()

	s.logger.Debug("Conversation saved",
		zap.String("user_email", userEmail),
		zap.Int("messages", len(cloned)),
	)
	return nil
}

func (s *Store) ClearConversation(_ context.Context, userEmail string) error {
	s.mu.Lock()
	delete(s.conversations, userEmail)
	s.mu.Unlock()
	return nil
}

// Quizzes

func (s *Store) CreateQuiz(_ context.Context, quiz models.Quiz) (*models.Quiz, error) {
	quiz = cloneQuiz(quiz)
	quiz.ID = uuid.New().String()
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = s.now()
	}

	s.mu.Lock()
	s.quizzes[quiz.ID] = quiz
	s.quizOrder = append(s.quizOrder, quiz.ID)
	s.mu.Unlock()

	created := cloneQuiz(quiz)
	return &created, nil
}

func (s *Store) GetQuiz(_ context.Context, quizID string) (*models.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quiz, ok := s.quizzes[quizID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneQuiz(quiz)
	return &out, nil
}

func (s *Store) ListQuizzesByTopic(_ context.Context, topic string) ([]models.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quizzes := []models.Quiz{}
	for _, id := range s.quizOrder {
		if quiz := s.quizzes[id]; quiz.Topic == topic {
			quizzes = append(quizzes, cloneQuiz(quiz))
		}
	}
	return quizzes, nil
}

// Answers

func (s *Store) SaveAnswers(_ context.Context, record models.QuizAnswerRecord) error {
	if record.CompletedAt.IsZero() {
		record.CompletedAt = s.now()
	}
	record.Answers = append([]string(nil), record.Answers...)
	key := answerKey{userEmail: record.UserEmail, quizID: record.QuizID}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.answers[key]; !ok {
		s.answerOrder = append(s.answerOrder, key)
	}
	if record.Score != nil {
		score := *record.Score
		record.Score = &score
	}
	s.answers[key] = record
	return nil
}

func (s *Store) ListAnswersByUser(_ context.Context, userEmail string) ([]models.QuizAnswerRecord, error) {
	return s.filterAnswers(func(k answerKey) bool { return k.userEmail == userEmail }), nil
}

func (s *Store) ListAnswersByQuiz(_ context.Context, quizID string) ([]models.QuizAnswerRecord, error) {
	return s.filterAnswers(func(k answerKey) bool { return k.quizID == quizID }), nil
}

func (s *Store) Leaderboard(ctx context.Context, quizID string, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = store.DefaultLeaderboardLimit
	}

	records, _ := s.ListAnswersByQuiz(ctx, quizID)
	scored := records[:0]
	for _, rec := range records {
		if rec.Score != nil {
			scored = append(scored, rec)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if *scored[i].Score != *scored[j].Score {
			return *scored[i].Score > *scored[j].Score
		}
		return scored[i].CompletedAt.Before(scored[j].CompletedAt)
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	entries := make([]models.LeaderboardEntry, 0, len(scored))
	for i, rec := range scored {
		entries = append(entries, models.LeaderboardEntry{
			Rank:        i + 1,
			UserEmail:   rec.UserEmail,
			Score:       *rec.Score,
			CompletedAt: rec.CompletedAt,
		})
	}
	return entries, nil
}

func (s *Store) filterAnswers(match func(answerKey) bool) []models.QuizAnswerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := []models.QuizAnswerRecord{}
	for _, key := range s.answerOrder {
		if !match(key) {
			continue
		}
		rec := s.answers[key]
		rec.Answers = append([]string(nil), rec.Answers...)
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CompletedAt.Before(records[j].CompletedAt)
	})
	return records
}

// Topic graph

func (s *Store) ListTopics(_ context.Context) ([]models.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Topic{}, s.topics...), nil
}

func (s *Store) CreateTopic(_ context.Context, name, createdBy string) (*models.Topic, error) {
	topic := models.Topic{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.topics = append(s.topics, topic)
	s.mu.Unlock()

	s.logger.Info("Topic created",
		zap.String("topic_id", topic.ID),
		zap.String("name", name),
		zap.String("created_by", createdBy),
	)
	return &topic, nil
}

func (s *Store) GetTopic(_ context.Context, topicID string) (*models.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, topic := range s.topics {
		if topic.ID == topicID {
			t := topic
			return &t, nil
		}
	}
	return nil, graph.ErrTopicNotFound{TopicID: topicID}
}

func (s *Store) LinkUserTopic(_ context.Context, userEmail, topicID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var topic *models.Topic
	for i := range s.topics {
		if s.topics[i].ID == topicID {
			topic = &s.topics[i]
			break
		}
	}
	if topic == nil {
		return false, graph.ErrTopicNotFound{TopicID: topicID}
	}

	for _, ut := range s.userTopics[userEmail] {
		if ut.TopicID == topicID {
			return false, nil
		}
	}

	s.userTopics[userEmail] = append(s.userTopics[userEmail], models.UserTopic{
		UserEmail: userEmail,
		TopicID:   topicID,
		TopicName: topic.Name,
		StartedAt: s.now(),
		IsActive:  true,
	})
	return true, nil
}

func (s *Store) GetUserTopics(_ context.Context, userEmail string) ([]models.UserTopic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.UserTopic{}, s.userTopics[userEmail]...), nil
}

func cloneQuiz(q models.Quiz) models.Quiz {
	out := q
	out.Questions = make([]models.Question, len(q.Questions))
	for i, question := range q.Questions {
		out.Questions[i] = question
		out.Questions[i].Choices = append([]string(nil), question.Choices...)
	}
	return out
}
