package notify

import (
	"testing"

	"crefeed/internal/poster"

	"github.com/stretchr/testify/assert"
)

func TestDisabledNotifierIsSafe(t *testing.T) {
	n := New("", 0)
	assert.False(t, n.Enabled())

	// Every method must be a no-op without credentials.
	n.ReviewRequested("Daily Insight: Test", "data/content_queue/x_queue.md")
	n.PostedSummary("Daily Insight: Test", map[string]poster.PostResult{
		"linkedin": {Platform: "linkedin", Success: true, PostID: "urn:li:share:1"},
		"twitter":  {Platform: "twitter", ErrorMessage: "not configured"},
	})
}

func TestNewWithoutChatIDDisabled(t *testing.T) {
	assert.False(t, New("some-token", 0).Enabled())
}
