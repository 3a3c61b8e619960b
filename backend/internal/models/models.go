package models

import (
	"fmt"
	"strings"
	"time"
)

// Topic is a canonical subject shared by all learners
type Topic struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"canonical_name" bson:"name"`
	CreatedBy string    `json:"created_by" bson:"created_by"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// UserTopic records that a learner studies a topic
type UserTopic struct {
	UserEmail string    `json:"user_email" bson:"user_email"`
	TopicID   string    `json:"topic_id" bson:"topic_id"`
	TopicName string    `json:"topic" bson:"topic"`
	StartedAt time.Time `json:"started_date" bson:"started_at"`
	IsActive  bool      `json:"is_active" bson:"is_active"`
}

// Quiz difficulty levels offered to the model
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Difficulties lists the accepted difficulty values in schema order
var Difficulties = []string{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Question is one multiple-choice question
type Question struct {
	Question string   `json:"question" bson:"question"`
	Choices  []string `json:"choices" bson:"choices"`
	Answer   string   `json:"answer" bson:"answer"`
}

// Validate checks that the question is answerable from its own choices
func (q Question) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return ErrInvalidQuestion{Reason: "question text is empty"}
	}
	if len(q.Choices) == 0 {
		return ErrInvalidQuestion{Reason: "no choices"}
	}
	for _, c := range q.Choices {
		if c == q.Answer {
			return nil
		}
	}
	return ErrInvalidQuestion{Reason: fmt.Sprintf("answer %q is not one of the choices", q.Answer)}
}

// Quiz is created once by a tool call and immutable afterwards
type Quiz struct {
	ID         string     `json:"id" bson:"-"`
	Title      string     `json:"title" bson:"title"`
	Questions  []Question `json:"questions" bson:"questions"`
	Difficulty string     `json:"difficulty" bson:"difficulty"`
	Topic      string     `json:"topic" bson:"topic"`
	TopicID    string     `json:"topic_id,omitempty" bson:"topic_id,omitempty"`
	CreatedBy  string     `json:"created_by" bson:"created_by"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
}

// SplitQuestions separates well-formed questions from malformed ones, preserving order
func SplitQuestions(questions []Question) (valid []Question, dropped int) {
	valid = make([]Question, 0, len(questions))
	for _, q := range questions {
		if q.Validate() != nil {
			dropped++
			continue
		}
		valid = append(valid, q)
	}
	return valid, dropped
}

// QuizAnswerRecord is a learner's latest submission for a quiz
type QuizAnswerRecord struct {
	UserEmail   string    `json:"user_email" bson:"user_email"`
	QuizID      string    `json:"quiz_id" bson:"quiz_id"`
	Answers     []string  `json:"answers" bson:"answers"`
	CompletedAt time.Time `json:"completed_at" bson:"completed_at"`
	Score       *float64  `json:"score,omitempty" bson:"score,omitempty"`
}

// LeaderboardEntry is one scored submission on a quiz
type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	UserEmail   string    `json:"user_email"`
	Score       float64   `json:"score"`
	CompletedAt time.Time `json:"completed_at"`
}

// TopicProgress is a studied topic with its start date
type TopicProgress struct {
	Topic       string    `json:"topic"`
	StartedDate time.Time `json:"started_date"`
}

// UserStatistics aggregates a learner's topics and quiz answers
type UserStatistics struct {
	TopicsCount      int             `json:"topics_count"`
	TopicsList       []TopicProgress `json:"topics_list"`
	QuizzesTaken     int             `json:"quizzes_taken"`
	TotalQuestions   int             `json:"total_questions"`
	CorrectAnswers   int             `json:"correct_answers"`
	IncorrectAnswers int             `json:"incorrect_answers"`
}

// QuizStatistics summarizes the scored attempts on one quiz
type QuizStatistics struct {
	QuizID        string  `json:"quiz_id"`
	Title         string  `json:"title"`
	TotalAttempts int     `json:"total_attempts"`
	AverageScore  float64 `json:"average_score"`
	HighestScore  float64 `json:"highest_score"`
	LowestScore   float64 `json:"lowest_score"`
}

// TopicQuizStatistics summarizes every quiz created for a topic
type TopicQuizStatistics struct {
	Topic        string           `json:"topic"`
	TotalQuizzes int              `json:"total_quizzes"`
	QuizStats    []QuizStatistics `json:"quiz_stats"`
}

// Mistake is one wrongly answered question in a submission
type Mistake struct {
	Question      string `json:"question"`
	YourAnswer    string `json:"your_answer"`
	CorrectAnswer string `json:"correct_answer"`
}

// QuizReview is the outcome of grading one submission
type QuizReview struct {
	QuizID   string    `json:"quiz_id"`
	Correct  int       `json:"correct"`
	Total    int       `json:"total"`
	Score    float64   `json:"score"`
	Mistakes []Mistake `json:"mistakes"`
}

// Feedback renders the review as the tutor's chat reply
func (r QuizReview) Feedback() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your answers have been recorded! You got %d out of %d correct.", r.Correct, r.Total)
	if len(r.Mistakes) == 0 {
		b.WriteString("\n\nExcellent work! Would you like to try a more challenging quiz, or shall we discuss any of these concepts further?")
		return b.String()
	}

	b.WriteString("\n\nLet's review the questions you missed:")
	for _, m := range r.Mistakes {
		fmt.Fprintf(&b, "\n- **Question:** %s\n  - Your answer: %s\n  - Correct answer: %s", m.Question, m.YourAnswer, m.CorrectAnswer)
	}
	b.WriteString("\n\nWould you like me to explain any of these concepts in more detail, or shall we try another quiz?")
	return b.String()
}

// Errors

type ErrInvalidQuestion struct {
	Reason string
}

func (e ErrInvalidQuestion) Error() string {
	return fmt.Sprintf("invalid question: %s", e.Reason)
}
