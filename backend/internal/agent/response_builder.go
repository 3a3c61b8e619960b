package agent

import (
	"strings"

	"github.com/Tchaikovic/NeuroGym/backend/internal/adapter"
)

// finalText extracts the reply shown to the learner, substituting
// FallbackReply when the model produced no text.
func finalText(resp *adapter.Response) string {
	if resp == nil {
		return FallbackReply
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return FallbackReply
	}
	return text
}
