// Package poster publishes content records to social platforms and
// keeps an append-only posting history log. A missing credential is a
// structured failure result, never an error raised to the caller.
package poster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"crefeed/internal/config"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PostResult is the outcome of one publish attempt on one platform.
type PostResult struct {
	Platform     string     `json:"platform"`
	Success      bool       `json:"success"`
	PostID       string     `json:"post_id,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	PostedAt     *time.Time `json:"posted_at,omitempty"`
}

// historyEntry is one line of the posting history log.
type historyEntry struct {
	ID             string `json:"id"`
	Timestamp      string `json:"timestamp"`
	Platform       string `json:"platform"`
	Success        bool   `json:"success"`
	PostID         string `json:"post_id,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	Title          string `json:"title"`
	ContentPreview string `json:"content_preview"`
	ContentLength  int    `json:"content_length"`
}

// Stats summarizes posting history over a window.
type Stats struct {
	TotalPosts      int                      `json:"total_posts"`
	SuccessfulPosts int                      `json:"successful_posts"`
	FailedPosts     int                      `json:"failed_posts"`
	SuccessRate     float64                  `json:"success_rate"`
	Platforms       map[string]PlatformStats `json:"platforms"`
}

// PlatformStats is the per-platform breakdown inside Stats.
type PlatformStats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
}

// Poster posts to LinkedIn and Twitter.
type Poster struct {
	linkedinToken string
	twitter       config.TwitterCredentials

	linkedinBaseURL string
	twitterBaseURL  string
	client          *http.Client

	historyPath string
	mu          sync.Mutex
	now         func() time.Time
}

// New builds a Poster; the history log lives under dataDir/logs.
func New(linkedinToken string, twitter config.TwitterCredentials, dataDir string) *Poster {
	return &Poster{
		linkedinToken:   linkedinToken,
		twitter:         twitter,
		linkedinBaseURL: "https://api.linkedin.com",
		twitterBaseURL:  "https://api.twitter.com",
		client:          &http.Client{Timeout: 15 * time.Second},
		historyPath:     filepath.Join(dataDir, "logs", "posting_history.json"),
		now:             time.Now,
	}
}

// LinkedInConfigured reports whether a LinkedIn token is present.
func (p *Poster) LinkedInConfigured() bool { return p.linkedinToken != "" }

// TwitterConfigured reports whether the full Twitter credential set is
// present.
func (p *Poster) TwitterConfigured() bool { return p.twitter.Configured() }

// Post publishes body to each requested platform and returns a result
// per platform. Unknown platforms produce a failure result. Every
// attempt is logged to the posting history before it is returned.
func (p *Poster) Post(ctx context.Context, title, body string, platforms []string) map[string]PostResult {
	results := make(map[string]PostResult, len(platforms))
	for _, platform := range platforms {
		switch platform {
		case "linkedin":
			results[platform] = p.postToLinkedIn(ctx, title, body)
		case "twitter":
			results[platform] = p.postToTwitter(ctx, title, body)
		default:
			result := PostResult{
				Platform:     platform,
				ErrorMessage: fmt.Sprintf("unknown platform %q", platform),
			}
			p.logAttempt(result, body, title)
			results[platform] = result
		}
	}
	return results
}

// logAttempt appends the attempt to the posting history log. Logging is
// unconditional and happens before the result reaches the caller; a
// failure to write the log is itself only logged.
func (p *Poster) logAttempt(result PostResult, body, title string) {
	preview := body
	if len(preview) > 100 {
		cut := 100
		// Back up to a rune boundary so content with bullets or other
		// multi-byte characters never yields an invalid preview.
		for cut > 0 && !utf8.RuneStart(preview[cut]) {
			cut--
		}
		preview = preview[:cut] + "..."
	}
	entry := historyEntry{
		ID:             uuid.NewString(),
		Timestamp:      p.now().Format(time.RFC3339),
		Platform:       result.Platform,
		Success:        result.Success,
		PostID:         result.PostID,
		ErrorMessage:   result.ErrorMessage,
		Title:          title,
		ContentPreview: preview,
		ContentLength:  len(body),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var entries []historyEntry
	if data, err := os.ReadFile(p.historyPath); err == nil {
		if err := json.Unmarshal(data, &entries); err != nil {
			log.Warn().Err(err).Msg("posting history is malformed, starting fresh")
			entries = nil
		}
	}
	entries = append(entries, entry)

	if err := os.MkdirAll(filepath.Dir(p.historyPath), 0o755); err != nil {
		log.Error().Err(err).Msg("failed to create posting history dir")
		return
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to encode posting history")
		return
	}
	if err := os.WriteFile(p.historyPath, data, 0o644); err != nil {
		log.Error().Err(err).Msg("failed to write posting history")
	}
}

// Stats aggregates posting history over the last N days.
func (p *Poster) Stats(days int) (Stats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := Stats{Platforms: make(map[string]PlatformStats)}

	data, err := os.ReadFile(p.historyPath)
	if os.IsNotExist(err) {
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("read posting history: %w", err)
	}

	var entries []historyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return stats, fmt.Errorf("parse posting history: %w", err)
	}

	cutoff := p.now().AddDate(0, 0, -days)
	for _, entry := range entries {
		ts, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil || ts.Before(cutoff) {
			continue
		}
		stats.TotalPosts++
		platform := stats.Platforms[entry.Platform]
		platform.Total++
		if entry.Success {
			stats.SuccessfulPosts++
			platform.Successful++
		} else {
			stats.FailedPosts++
		}
		stats.Platforms[entry.Platform] = platform
	}
	if stats.TotalPosts > 0 {
		stats.SuccessRate = float64(stats.SuccessfulPosts) / float64(stats.TotalPosts) * 100
	}
	return stats, nil
}
