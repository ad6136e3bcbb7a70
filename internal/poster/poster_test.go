package poster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"crefeed/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTwitterCreds = config.TwitterCredentials{
	APIKey:       "key",
	APISecret:    "secret",
	AccessToken:  "token",
	AccessSecret: "token-secret",
}

// countingServer wraps httptest.Server with a request counter.
func countingServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func readHistory(t *testing.T, path string) []historyEntry {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []historyEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	return entries
}

func TestPostLinkedInMissingToken(t *testing.T) {
	srv, calls := countingServer(t, func(w http.ResponseWriter, r *http.Request) {})
	dir := t.TempDir()

	p := New("", config.TwitterCredentials{}, dir)
	p.linkedinBaseURL = srv.URL

	results := p.Post(context.Background(), "Title", "Body", []string{"linkedin"})
	result := results["linkedin"]
	assert.False(t, result.Success)
	assert.Equal(t, "LinkedIn access token not configured", result.ErrorMessage)
	assert.Zero(t, *calls, "a missing credential must not reach the network")

	entries := readHistory(t, filepath.Join(dir, "logs", "posting_history.json"))
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "linkedin", entries[0].Platform)
	assert.NotEmpty(t, entries[0].ID)
}

func TestPostTwitterMissingCredentials(t *testing.T) {
	srv, calls := countingServer(t, func(w http.ResponseWriter, r *http.Request) {})
	dir := t.TempDir()

	p := New("", config.TwitterCredentials{APIKey: "only-one"}, dir)
	p.twitterBaseURL = srv.URL

	result := p.Post(context.Background(), "Title", "Body", []string{"twitter"})["twitter"]
	assert.False(t, result.Success)
	assert.Equal(t, "Twitter credentials not fully configured", result.ErrorMessage)
	assert.Zero(t, *calls)
}

func TestPostUnknownPlatform(t *testing.T) {
	dir := t.TempDir()
	p := New("", config.TwitterCredentials{}, dir)

	result := p.Post(context.Background(), "Title", "Body", []string{"mastodon"})["mastodon"]
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "unknown platform")

	entries := readHistory(t, filepath.Join(dir, "logs", "posting_history.json"))
	require.Len(t, entries, 1)
	assert.Equal(t, "mastodon", entries[0].Platform)
}

func TestPostLinkedInSuccess(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer li-token", r.Header.Get("Authorization"))
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v2/people/~":
			json.NewEncoder(w).Encode(map[string]string{"id": "abc123"})
		case r.Method == http.MethodPost && r.URL.Path == "/v2/ugcPosts":
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "urn:li:person:abc123", payload["author"])
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]string{"id": "urn:li:share:99"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	dir := t.TempDir()

	p := New("li-token", config.TwitterCredentials{}, dir)
	p.linkedinBaseURL = srv.URL

	result := p.Post(context.Background(), "Title", "Body", []string{"linkedin"})["linkedin"]
	assert.True(t, result.Success)
	assert.Equal(t, "urn:li:share:99", result.PostID)
	require.NotNil(t, result.PostedAt)

	entries := readHistory(t, filepath.Join(dir, "logs", "posting_history.json"))
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
	assert.Equal(t, "urn:li:share:99", entries[0].PostID)
}

func TestPostLinkedInAPIError(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"expired token"}`, http.StatusUnauthorized)
	})
	dir := t.TempDir()

	p := New("li-token", config.TwitterCredentials{}, dir)
	p.linkedinBaseURL = srv.URL

	result := p.Post(context.Background(), "Title", "Body", []string{"linkedin"})["linkedin"]
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "failed to get LinkedIn profile")
}

func TestPostTwitterSingleTweet(t *testing.T) {
	var gotText string
	srv, calls := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		var req tweetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotText = req.Text
		assert.Nil(t, req.Reply)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]map[string]string{"data": {"id": "111"}})
	})
	dir := t.TempDir()

	p := New("", testTwitterCreds, dir)
	p.twitterBaseURL = srv.URL

	body := "Short enough for one tweet."
	result := p.Post(context.Background(), "Title", body, []string{"twitter"})["twitter"]
	assert.True(t, result.Success)
	assert.Equal(t, "111", result.PostID)
	assert.Equal(t, body, gotText)
	assert.Equal(t, 1, *calls)
}

func TestPostTwitterThreadChainsReplies(t *testing.T) {
	var texts []string
	var replies []string
	next := 0
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req tweetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		texts = append(texts, req.Text)
		if req.Reply != nil {
			replies = append(replies, req.Reply.InReplyToTweetID)
		}
		next++
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]map[string]string{"data": {"id": ids[next-1]}})
	})
	dir := t.TempDir()

	p := New("", testTwitterCreds, dir)
	p.twitterBaseURL = srv.URL

	// Three paragraphs, each too long to pack with another.
	para := func(c byte) string {
		b := make([]byte, 200)
		for i := range b {
			b[i] = c
		}
		return string(b)
	}
	body := para('a') + "\n\n" + para('b') + "\n\n" + para('c')

	result := p.Post(context.Background(), "Title", body, []string{"twitter"})["twitter"]
	assert.True(t, result.Success)
	// The thread's result carries the first tweet's id.
	assert.Equal(t, ids[0], result.PostID)

	require.Len(t, texts, 3)
	// Each tweet replies to the previous one.
	assert.Equal(t, []string{ids[0], ids[1]}, replies)
	// Chunks after the first carry the numbering prefix.
	assert.Equal(t, "2/3 "+para('b'), texts[1])
	assert.Equal(t, "3/3 "+para('c'), texts[2])
}

var ids = []string{"100", "101", "102"}

func TestPostTwitterThreadStopsOnFailure(t *testing.T) {
	count := 0
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		count++
		if count == 2 {
			http.Error(w, `{"detail":"rate limited"}`, http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]map[string]string{"data": {"id": "200"}})
	})
	dir := t.TempDir()

	p := New("", testTwitterCreds, dir)
	p.twitterBaseURL = srv.URL

	para := func(c byte) string {
		b := make([]byte, 200)
		for i := range b {
			b[i] = c
		}
		return string(b)
	}
	body := para('a') + "\n\n" + para('b') + "\n\n" + para('c')

	result := p.Post(context.Background(), "Title", body, []string{"twitter"})["twitter"]
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "thread tweet 2/3 failed")
	// The third chunk is never attempted.
	assert.Equal(t, 2, count)
}

func TestStatsAggregatesByPlatform(t *testing.T) {
	dir := t.TempDir()
	p := New("", config.TwitterCredentials{}, dir)
	now := time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	p.logAttempt(PostResult{Platform: "linkedin", Success: true, PostID: "1"}, "body", "t1")
	p.logAttempt(PostResult{Platform: "linkedin", Success: false, ErrorMessage: "boom"}, "body", "t2")
	p.logAttempt(PostResult{Platform: "twitter", Success: true, PostID: "2"}, "body", "t3")

	stats, err := p.Stats(7)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalPosts)
	assert.Equal(t, 2, stats.SuccessfulPosts)
	assert.Equal(t, 1, stats.FailedPosts)
	assert.InDelta(t, 66.6, stats.SuccessRate, 0.1)
	assert.Equal(t, PlatformStats{Total: 2, Successful: 1}, stats.Platforms["linkedin"])
	assert.Equal(t, PlatformStats{Total: 1, Successful: 1}, stats.Platforms["twitter"])
}

func TestStatsWindowExcludesOldEntries(t *testing.T) {
	dir := t.TempDir()
	p := New("", config.TwitterCredentials{}, dir)

	old := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)

	p.now = func() time.Time { return old }
	p.logAttempt(PostResult{Platform: "linkedin", Success: true}, "body", "old")

	p.now = func() time.Time { return recent }
	p.logAttempt(PostResult{Platform: "linkedin", Success: true}, "body", "new")

	stats, err := p.Stats(7)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalPosts)
}

func TestStatsEmptyHistory(t *testing.T) {
	p := New("", config.TwitterCredentials{}, t.TempDir())
	stats, err := p.Stats(30)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalPosts)
	assert.Zero(t, stats.SuccessRate)
}

func TestLogAttemptTruncatesPreview(t *testing.T) {
	dir := t.TempDir()
	p := New("", config.TwitterCredentials{}, dir)

	long := make([]byte, 150)
	for i := range long {
		long[i] = 'x'
	}
	p.logAttempt(PostResult{Platform: "linkedin", Success: true}, string(long), "title")

	entries := readHistory(t, filepath.Join(dir, "logs", "posting_history.json"))
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].ContentPreview, 103)
	assert.Equal(t, 150, entries[0].ContentLength)
}

func TestLogAttemptPreviewKeepsRunesIntact(t *testing.T) {
	dir := t.TempDir()
	p := New("", config.TwitterCredentials{}, dir)

	// 60 bullets are 180 bytes; byte 100 lands mid-rune.
	body := strings.Repeat("•", 60)
	p.logAttempt(PostResult{Platform: "linkedin", Success: true}, body, "title")

	entries := readHistory(t, filepath.Join(dir, "logs", "posting_history.json"))
	require.Len(t, entries, 1)
	preview := entries[0].ContentPreview
	assert.True(t, utf8.ValidString(preview))
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.LessOrEqual(t, len(preview), 103)
	assert.Equal(t, strings.Repeat("•", 33)+"...", preview)
	assert.Equal(t, 180, entries[0].ContentLength)
}
