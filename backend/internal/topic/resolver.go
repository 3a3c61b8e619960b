package topic

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Tchaikovic/NeuroGym/backend/internal/models"
	apperrors "github.com/Tchaikovic/NeuroGym/backend/pkg/errors"
	"github.com/Tchaikovic/NeuroGym/backend/pkg/logger"
)

// ErrEmptyName is returned for blank candidate names; no topic is created
var ErrEmptyName = errors.New("topic name is empty")

var errMatchDecided = errors.New("first match decided")

// Store is the topic graph the resolver reads and writes
type Store interface {
	ListTopics(ctx context.Context) ([]models.Topic, error)
	CreateTopic(ctx context.Context, name, createdBy string) (*models.Topic, error)
	LinkUserTopic(ctx context.Context, userEmail, topicID string) (bool, error)
}

// Resolution is the canonical identity a candidate name resolved to
type Resolution struct {
	TopicID       string `json:"topic_id"`
	CanonicalName string `json:"topic_name"`
	IsNew         bool   `json:"is_new_topic"`
	Linked        bool   `json:"-"`
}

// Resolver maps free-text topic names to canonical topics, creating a topic
// only when no existing one is judged equivalent. Two users proposing
// equivalent new names at the same moment can still create two topics.
type Resolver struct {
	store       Store
	strategy    SimilarityStrategy
	concurrency int
	logger      *zap.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithConcurrency compares against up to n existing topics at once.
// The lowest-index match still wins.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewResolver creates a resolver over store using strategy
func NewResolver(store Store, strategy SimilarityStrategy, opts ...Option) *Resolver {
	r := &Resolver{
		store:       store,
		strategy:    strategy,
		concurrency: 1,
		logger:      logger.Get(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Strategy returns the configured similarity strategy
func (r *Resolver) Strategy() SimilarityStrategy {
	return r.strategy
}

// Resolve returns the topic candidate denotes, creating it if needed, and
// links actor to it. If the similarity check fails nothing is written.
func (r *Resolver) Resolve(ctx context.Context, candidate, actor string) (*Resolution, error) {
	name := strings.Join(strings.Fields(candidate), " ")
	if name == "" {
		return nil, apperrors.NewTopicResolution(candidate, ErrEmptyName)
	}

	existing, err := r.store.ListTopics(ctx)
	if err != nil {
		return nil, apperrors.NewTopicResolution(name, err)
	}

	idx, err := r.findMatch(ctx, name, existing)
	if err != nil {
		r.logger.Warn("Topic similarity check failed",
			zap.String("candidate", name),
			zap.String("strategy", r.strategy.Name()),
			zap.Error(err),
		)
		return nil, apperrors.NewTopicResolution(name, err)
	}

	var res *Resolution
	if idx >= 0 {
		match := existing[idx]
		res = &Resolution{TopicID: match.ID, CanonicalName: match.Name}
		r.logger.Debug("Topic matched existing",
			zap.String("candidate", name),
			zap.String("topic_id", match.ID),
			zap.String("canonical_name", match.Name),
		)
	} else {
		created, err := r.store.CreateTopic(ctx, name, actor)
		if err != nil {
			return nil, apperrors.NewTopicResolution(name, err)
		}
		res = &Resolution{TopicID: created.ID, CanonicalName: created.Name, IsNew: true}
	}

	if actor != "" {
		linked, err := r.store.LinkUserTopic(ctx, actor, res.TopicID)
		if err != nil {
			return nil, apperrors.NewTopicResolution(name, err)
		}
		res.Linked = linked
	}

	return res, nil
}

// findMatch returns the index of the first topic in storage order that the
// strategy judges similar, or -1.
func (r *Resolver) findMatch(ctx context.Context, name string, existing []models.Topic) (int, error) {
	if r.concurrency <= 1 || len(existing) <= 1 {
		for i, t := range existing {
			similar, err := r.strategy.Similar(ctx, name, t.Name)
			if err != nil {
				return -1, err
			}
			if similar {
				return i, nil
			}
		}
		return -1, nil
	}

	matches := make([]bool, len(existing))
	errs := make([]error, len(existing))
	done := make([]bool, len(existing))

	// stop is the lowest index with a match or an error; nothing after it can
	// change the outcome.
	var mu sync.Mutex
	stop := len(existing)
	beyondStop := func(i int) bool {
		mu.Lock()
		defer mu.Unlock()
		return i > stop
	}
	finish := func(i int, similar bool, err error) bool {
		mu.Lock()
		defer mu.Unlock()
		matches[i], errs[i], done[i] = similar, err, true
		if (similar || err != nil) && i < stop {
			stop = i
		}
		if stop == len(existing) {
			return false
		}
		for _, d := range done[:stop] {
			if !d {
				return false
			}
		}
		return true
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, t := range existing {
		if beyondStop(i) {
			break
		}
		i, t := i, t
		g.Go(func() error {
			if beyondStop(i) {
				return nil
			}
			similar, err := r.strategy.Similar(gctx, name, t.Name)
			if finish(i, similar, err) {
				// cancels comparisons still running past stop
				return errMatchDecided
			}
			return nil
		})
	}
	_ = g.Wait()

	for i := range existing {
		if errs[i] != nil {
			return -1, errs[i]
		}
		if matches[i] {
			return i, nil
		}
	}
	return -1, nil
}
