// Package pipeline orchestrates the daily workflow: generate content,
// queue it, and either post immediately or leave it for manual review.
// A Pipeline owns its collaborators explicitly; there is no package
// level state.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crefeed/internal/agent"
	"crefeed/internal/config"
	"crefeed/internal/notify"
	"crefeed/internal/poster"
	"crefeed/internal/queue"

	"github.com/rs/zerolog/log"
)

// KindAuto resolves to a concrete kind by weekday.
const KindAuto = "auto"

type Pipeline struct {
	agent    *agent.Agent
	store    *queue.Store
	poster   *poster.Poster
	notifier *notify.Notifier
	cfg      config.Pipeline
	events   *EventLog
	now      func() time.Time
}

func New(a *agent.Agent, store *queue.Store, p *poster.Poster, n *notify.Notifier, cfg config.Pipeline) *Pipeline {
	return &Pipeline{
		agent:    a,
		store:    store,
		poster:   p,
		notifier: n,
		cfg:      cfg,
		events:   NewEventLog(cfg.DataDir),
		now:      time.Now,
	}
}

// Agent exposes the content agent for status reporting.
func (p *Pipeline) Agent() *agent.Agent { return p.agent }

// Store exposes the queue store.
func (p *Pipeline) Store() *queue.Store { return p.store }

// Poster exposes the social poster.
func (p *Pipeline) Poster() *poster.Poster { return p.poster }

// Events exposes the pipeline event log.
func (p *Pipeline) Events() *EventLog { return p.events }

// Config returns the pipeline configuration.
func (p *Pipeline) Config() config.Pipeline { return p.cfg }

// ResolveKind maps the "auto" pseudo-kind to a concrete kind by
// weekday: the configured long-article day produces a long article,
// every other day a short post.
func (p *Pipeline) ResolveKind(kind string) agent.Kind {
	if kind != KindAuto {
		return agent.Kind(kind)
	}
	today := strings.ToLower(p.now().Weekday().String())
	if today == p.cfg.Schedule.LongArticleDay {
		return agent.KindLongArticle
	}
	return agent.KindShortPost
}

// GenerateAndQueue generates content of the given kind and writes it to
// the queue. An empty topic leaves selection to the agent's rotation.
// When review is required the reviewer is notified.
func (p *Pipeline) GenerateAndQueue(ctx context.Context, kind agent.Kind, topic string) (string, error) {
	log.Info().Str("kind", string(kind)).Str("topic", topic).Msg("generating content")

	rec, err := p.agent.Generate(ctx, kind, topic)
	if err != nil {
		p.events.Log("generation_error", map[string]any{"error": err.Error()})
		p.events.Error(fmt.Sprintf("generating content: %v", err))
		return "", fmt.Errorf("generate content: %w", err)
	}

	path, err := p.store.Enqueue(rec, p.cfg.Platforms, p.cfg.AutoPost)
	if err != nil {
		p.events.Log("generation_error", map[string]any{"error": err.Error()})
		p.events.Error(fmt.Sprintf("queueing content: %v", err))
		return "", fmt.Errorf("queue content: %w", err)
	}

	p.events.Log("content_generated", map[string]any{
		"filepath":     path,
		"content_type": string(rec.Kind),
		"title":        rec.Title,
		"topics":       rec.Topics,
		"word_count":   len(strings.Fields(rec.Body)),
	})
	log.Info().Str("file", path).Str("title", rec.Title).Msg("content queued")

	if p.cfg.ReviewRequired {
		p.notifier.ReviewRequested(rec.Title, path)
	}
	return path, nil
}

// PostQueued posts one queued record to the given platforms (the
// record's own platform list when none are given) and updates its
// status in place. Per-platform failures surface in the returned map,
// never as an error.
func (p *Pipeline) PostQueued(ctx context.Context, path string, platforms []string) (map[string]poster.PostResult, error) {
	item, err := p.store.Read(path)
	if err != nil {
		p.events.Log("posting_error", map[string]any{"filepath": path, "error": err.Error()})
		return nil, fmt.Errorf("read queued record: %w", err)
	}

	if len(platforms) == 0 {
		platforms = item.Platforms
	}
	if len(platforms) == 0 {
		platforms = p.cfg.Platforms
	}

	log.Info().Str("file", path).Strs("platforms", platforms).Msg("posting content")
	results := p.poster.Post(ctx, item.Title, item.Body, platforms)

	status := agent.StatusPosted
	outcomes := make([]queue.PostOutcome, 0, len(platforms))
	resultFlags := make(map[string]bool, len(platforms))
	for _, platform := range platforms {
		result := results[platform]
		resultFlags[platform] = result.Success
		outcome := queue.PostOutcome{Platform: platform, Success: result.Success}
		if result.Success {
			outcome.Detail = result.PostID
		} else {
			outcome.Detail = result.ErrorMessage
			status = agent.StatusError
		}
		outcomes = append(outcomes, outcome)
	}

	if err := p.store.MarkPosted(path, status, outcomes); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("failed to update record status")
	}

	p.events.Log("content_posted", map[string]any{
		"filepath":  path,
		"platforms": platforms,
		"results":   resultFlags,
	})
	return results, nil
}

// DailyWorkflow runs the full generate-then-maybe-post cycle. Nothing
// here is fatal: every failure is logged and the workflow returns.
func (p *Pipeline) DailyWorkflow(ctx context.Context) {
	log.Info().Msg("running daily workflow")

	path, err := p.GenerateAndQueue(ctx, p.ResolveKind(KindAuto), "")
	if err != nil {
		log.Error().Err(err).Msg("content generation failed, stopping workflow")
		return
	}

	autoPosted := p.cfg.AutoPost && !p.cfg.ReviewRequired
	if autoPosted {
		results, err := p.PostQueued(ctx, path, nil)
		if err != nil {
			log.Error().Err(err).Msg("auto-posting failed")
		} else {
			succeeded := 0
			for _, result := range results {
				if result.Success {
					succeeded++
				}
			}
			log.Info().Int("succeeded", succeeded).Int("total", len(results)).Msg("auto-post complete")
			if item, err := p.store.Read(path); err == nil {
				p.notifier.PostedSummary(item.Title, results)
			}
		}
	} else {
		log.Info().Str("file", path).Msg("content queued for manual review and posting")
	}

	p.events.Log("daily_workflow_complete", map[string]any{
		"filepath":    path,
		"auto_posted": autoPosted,
	})
}

// WeekendPrep generates two short posts ahead of the weekend.
func (p *Pipeline) WeekendPrep(ctx context.Context) {
	log.Info().Msg("preparing weekend content batch")
	for i := 0; i < 2; i++ {
		if _, err := p.GenerateAndQueue(ctx, agent.KindShortPost, ""); err != nil {
			log.Error().Err(err).Msg("weekend prep generation failed")
			return
		}
	}
}
