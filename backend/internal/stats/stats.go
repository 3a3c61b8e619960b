package stats

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Tchaikovic/NeuroGym/backend/internal/models"
	"github.com/Tchaikovic/NeuroGym/backend/internal/store"
	"github.com/Tchaikovic/NeuroGym/backend/pkg/logger"
)

// TopicReader lists the topics a user studies
type TopicReader interface {
	GetUserTopics(ctx context.Context, userEmail string) ([]models.UserTopic, error)
}

// QuizReader reads stored quizzes
type QuizReader interface {
	GetQuiz(ctx context.Context, quizID string) (*models.Quiz, error)
	ListQuizzesByTopic(ctx context.Context, topic string) ([]models.Quiz, error)
}

// AnswerReader reads quiz submissions
type AnswerReader interface {
	ListAnswersByUser(ctx context.Context, userEmail string) ([]models.QuizAnswerRecord, error)
	ListAnswersByQuiz(ctx context.Context, quizID string) ([]models.QuizAnswerRecord, error)
	Leaderboard(ctx context.Context, quizID string, limit int) ([]models.LeaderboardEntry, error)
}

// Service computes learner and quiz statistics
type Service struct {
	topics  TopicReader
	quizzes QuizReader
	answers AnswerReader
	logger  *zap.Logger
}

// NewService creates a statistics service
func NewService(topics TopicReader, quizzes QuizReader, answers AnswerReader) *Service {
	return &Service{
		topics:  topics,
		quizzes: quizzes,
		answers: answers,
		logger:  logger.Get(),
	}
}

// UserStatistics aggregates a learner's topics and quiz answers. Answers are
// compared position by position with each question's answer; submissions for
// quizzes that no longer exist are skipped.
func (s *Service) UserStatistics(ctx context.Context, userEmail string) (*models.UserStatistics, error) {
	var (
		userTopics []models.UserTopic
		records    []models.QuizAnswerRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		userTopics, err = s.topics.GetUserTopics(gctx, userEmail)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = s.answers.ListAnswersByUser(gctx, userEmail)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &models.UserStatistics{
		TopicsCount:  len(userTopics),
		TopicsList:   make([]models.TopicProgress, 0, len(userTopics)),
		QuizzesTaken: len(records),
	}
	for _, ut := range userTopics {
		result.TopicsList = append(result.TopicsList, models.TopicProgress{
			Topic:       ut.TopicName,
			StartedDate: ut.StartedAt,
		})
	}

	for _, rec := range records {
		quiz, err := s.quizzes.GetQuiz(ctx, rec.QuizID)
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Debug("Skipping answers for missing quiz",
				zap.String("user_email", userEmail),
				zap.String("quiz_id", rec.QuizID),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		correct, answered := compareAnswers(quiz.Questions, rec.Answers)
		result.TotalQuestions += answered
		result.CorrectAnswers += correct
		result.IncorrectAnswers += answered - correct
	}

	return result, nil
}

// QuizLeaderboard returns the best scored submissions for a quiz. An unknown
// quiz yields store.ErrNotFound.
func (s *Service) QuizLeaderboard(ctx context.Context, quizID string, limit int) ([]models.LeaderboardEntry, error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = store.DefaultLeaderboardLimit
	}
	return s.answers.Leaderboard(ctx, quizID, limit)
}

// TopicQuizStatistics summarizes every quiz created for a topic. Quizzes
// without scored attempts are counted but get no entry.
func (s *Service) TopicQuizStatistics(ctx context.Context, topic string) (*models.TopicQuizStatistics, error) {
	quizzes, err := s.quizzes.ListQuizzesByTopic(ctx, topic)
	if err != nil {
		return nil, err
	}

	result := &models.TopicQuizStatistics{
		Topic:        topic,
		TotalQuizzes: len(quizzes),
		QuizStats:    []models.QuizStatistics{},
	}

	for _, quiz := range quizzes {
		records, err := s.answers.ListAnswersByQuiz(ctx, quiz.ID)
		if err != nil {
			return nil, err
		}

		var scores []float64
		for _, rec := range records {
			if rec.Score != nil {
				scores = append(scores, *rec.Score)
			}
		}
		if len(scores) == 0 {
			continue
		}

		title := quiz.Title
		if title == "" {
			title = "Untitled"
		}
		stat := models.QuizStatistics{
			QuizID:        quiz.ID,
			Title:         title,
			TotalAttempts: len(scores),
			HighestScore:  scores[0],
			LowestScore:   scores[0],
		}
		sum := 0.0
		for _, sc := range scores {
			sum += sc
			stat.HighestScore = math.Max(stat.HighestScore, sc)
			stat.LowestScore = math.Min(stat.LowestScore, sc)
		}
		stat.AverageScore = sum / float64(len(scores))
		result.QuizStats = append(result.QuizStats, stat)
	}

	return result, nil
}

// ScoreAnswers returns the percentage of questions answered correctly, rounded
// to two decimals. Unanswered questions count as wrong.
func ScoreAnswers(quiz *models.Quiz, answers []string) float64 {
	if quiz == nil || len(quiz.Questions) == 0 {
		return 0
	}
	correct, _ := compareAnswers(quiz.Questions, answers)
	pct := float64(correct) / float64(len(quiz.Questions)) * 100
	return math.Round(pct*100) / 100
}

// ReviewAnswers grades a submission and lists every question answered wrongly
// or left unanswered.
func ReviewAnswers(quiz *models.Quiz, answers []string) *models.QuizReview {
	review := &models.QuizReview{Mistakes: []models.Mistake{}}
	if quiz == nil {
		return review
	}

	review.QuizID = quiz.ID
	review.Total = len(quiz.Questions)
	review.Correct, _ = compareAnswers(quiz.Questions, answers)
	review.Score = ScoreAnswers(quiz, answers)

	for i, q := range quiz.Questions {
		given := ""
		if i < len(answers) {
			given = answers[i]
		}
		if given != q.Answer {
			review.Mistakes = append(review.Mistakes, models.Mistake{
				Question:      q.Question,
				YourAnswer:    given,
				CorrectAnswer: q.Answer,
			})
		}
	}
	return review
}

func compareAnswers(questions []models.Question, answers []string) (correct, answered int) {
	for i, q := range questions {
		if i >= len(answers) {
			break
		}
		answered++
		if answers[i] == q.Answer {
			correct++
		}
	}
	return correct, answered
}
