package topic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"github.com/Tchaikovic/NeuroGym/backend/internal/adapter"
	"github.com/Tchaikovic/NeuroGym/backend/internal/conversation"
	"github.com/Tchaikovic/NeuroGym/backend/pkg/logger"
)

// DefaultThreshold is the lexical score at which two names denote the same topic
const DefaultThreshold = 0.8

// minPrefixLen keeps short words like "art" from swallowing "artificial"
const minPrefixLen = 4

// ErrAmbiguousVerdict is returned when the classifier answers neither way
var ErrAmbiguousVerdict = errors.New("similarity classifier returned no verdict")

// SimilarityStrategy decides whether a candidate name denotes an existing topic.
// A non-nil error means the check itself failed, never "no match".
type SimilarityStrategy interface {
	Name() string
	Similar(ctx context.Context, candidate, existing string) (bool, error)
}

// Lexical compares normalized names
type Lexical struct {
	Threshold float64
}

// NewLexical returns a lexical strategy; non-positive thresholds use DefaultThreshold
func NewLexical(threshold float64) *Lexical {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Lexical{Threshold: threshold}
}

func (l *Lexical) Name() string { return "lexical" }

func (l *Lexical) Similar(_ context.Context, candidate, existing string) (bool, error) {
	return Score(candidate, existing) >= l.Threshold, nil
}

// Score is the larger of the character sequence ratio of the normalized names
// and the share of words the two names have in common, counted against the
// longer name. A word matches another when equal or when one is a prefix (of
// at least four letters) of the other, so "math" matches "mathematics" while
// "Physics" and "Quantum Physics" stay apart.
func Score(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	na, nb := strings.Join(ta, " "), strings.Join(tb, " ")
	if na == nb {
		return 1
	}

	ratio := difflib.NewMatcher(strings.Split(na, ""), strings.Split(nb, "")).Ratio()
	if c := containment(ta, tb); c > ratio {
		return c
	}
	return ratio
}

func containment(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}

	matched := 0
	for _, w := range short {
		for _, other := range long {
			if wordsMatch(w, other) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(long))
}

func wordsMatch(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	return len(a) >= minPrefixLen && strings.HasPrefix(b, a)
}

// Chatter is the single-turn model call the semantic strategy needs
type Chatter interface {
	Chat(ctx context.Context, messages []conversation.Message, tools []adapter.Tool) (*adapter.Response, error)
}

const classifierPrompt = `You decide whether two learning topic names refer to the same subject.
Treat abbreviations, synonyms and broader/narrower phrasings of one subject as the same subject.
Answer with exactly one word: SIMILAR or DIFFERENT.`

// Semantic asks the model whether two names denote the same subject and falls
// back to lexical comparison when the model call fails.
type Semantic struct {
	llm      Chatter
	fallback *Lexical
	logger   *zap.Logger
}

// NewSemantic builds a semantic strategy with a lexical fallback
func NewSemantic(llm Chatter, fallback *Lexical) *Semantic {
	if fallback == nil {
		fallback = NewLexical(DefaultThreshold)
	}
	return &Semantic{
		llm:      llm,
		fallback: fallback,
		logger:   logger.Get(),
	}
}

func (s *Semantic) Name() string { return "semantic" }

func (s *Semantic) Similar(ctx context.Context, candidate, existing string) (bool, error) {
	if Normalize(candidate) == Normalize(existing) {
		return true, nil
	}

	messages := []conversation.Message{
		conversation.NewSystemMessage(classifierPrompt),
		conversation.NewUserMessage(fmt.Sprintf("Topic A: %s\nTopic B: %s", candidate, existing)),
	}

	resp, err := s.llm.Chat(ctx, messages, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		s.logger.Warn("Semantic topic check failed, falling back to lexical",
			zap.String("candidate", candidate),
			zap.String("existing", existing),
			zap.Error(err),
		)
		return s.fallback.Similar(ctx, candidate, existing)
	}

	return parseVerdict(resp.Text())
}

func parseVerdict(text string) (bool, error) {
	verdict := strings.ToUpper(strings.TrimSpace(text))
	switch {
	// checked first: "DISSIMILAR" contains "SIMILAR"
	case strings.Contains(verdict, "DIFFERENT"), strings.Contains(verdict, "DISSIMILAR"):
		return false, nil
	case strings.Contains(verdict, "SIMILAR"), strings.Contains(verdict, "SAME"):
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrAmbiguousVerdict, text)
	}
}
