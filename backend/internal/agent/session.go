package agent

import (
	"errors"
	"strings"

	"github.com/Tchaikovic/NeuroGym/backend/internal/tools"
)

// ErrMissingUser is returned when a turn is started without a learner identity
var ErrMissingUser = errors.New("session has no user email")

// DefaultAge is assumed when the learner's age is unknown or invalid
const DefaultAge = 16

// Session identifies the learner a turn runs for. Callers build one per
// request; nothing about it is cached between turns.
type Session struct {
	UserEmail string
	Name      string
	Age       int
}

// Validate checks that the session can be used to run a turn
func (s Session) Validate() error {
	if strings.TrimSpace(s.UserEmail) == "" {
		return ErrMissingUser
	}
	return nil
}

// EffectiveAge returns the learner's age, or DefaultAge when it is not usable
func (s Session) EffectiveAge() int {
	if s.Age <= 0 {
		return DefaultAge
	}
	return s.Age
}

// ExecutionContext converts the session into what tool handlers receive
func (s Session) ExecutionContext() *tools.ExecutionContext {
	return &tools.ExecutionContext{
		UserEmail: strings.TrimSpace(s.UserEmail),
		Name:      s.Name,
		Age:       s.Age,
	}
}
