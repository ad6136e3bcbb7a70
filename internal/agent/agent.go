package agent

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"crefeed/internal/marketdata"
	"crefeed/internal/prompts"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// Kind is a supported content length/style.
type Kind string

const (
	KindShortPost   Kind = "short_post"
	KindLongArticle Kind = "long_article"
)

// Status of a content record through its queue lifecycle. Status only
// moves forward: queued to posted or error, never backward.
type Status string

const (
	StatusQueued Status = "queued"
	StatusPosted Status = "posted"
	StatusError  Status = "error"
)

// ErrUnsupportedKind is returned for content kinds other than the two
// recognized values.
var ErrUnsupportedKind = errors.New("unsupported content kind")

// ContentRecord is one piece of generated content.
type ContentRecord struct {
	Title          string
	Body           string
	Kind           Kind
	Topics         []string
	EngagementHook string
	CreatedAt      time.Time
	Platform       string
	Status         Status
}

// MarketData is the slice of the market data provider the agent needs.
type MarketData interface {
	Insights(ctx context.Context) marketdata.Insights
	ContentSummary(ctx context.Context) string
}

// historyWindow is the number of recent records whose topics are
// excluded from selection.
const historyWindow = 7

// Agent generates daily CRE content. It keeps a rolling in-process
// history of produced records for topic rotation; the history is not
// persisted across runs. An Agent is shared between the scheduler and
// HTTP handlers, so history and the rng are mutex-guarded.
type Agent struct {
	client *openai.Client
	market MarketData
	topics []string
	now    func() time.Time

	mu      sync.Mutex
	history []ContentRecord
	rng     *rand.Rand
}

// New builds an Agent. An empty apiKey leaves the LLM client unset and
// every generation falls back to the static templates.
func New(apiKey string, market MarketData, topics []string) *Agent {
	agent := &Agent{
		market: market,
		topics: topics,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
	if apiKey != "" {
		agent.client = openai.NewClient(apiKey)
	}
	return agent
}

// HasLLM reports whether an LLM credential is configured.
func (a *Agent) HasLLM() bool { return a.client != nil }

// History returns a copy of the records produced so far in this
// process.
func (a *Agent) History() []ContentRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ContentRecord(nil), a.history...)
}

// MarketSummary returns the provider's content-ready data digest.
func (a *Agent) MarketSummary(ctx context.Context) string { return a.market.ContentSummary(ctx) }

// SelectTopic picks a topic uniformly at random from the configured
// list, excluding topics used in the most recent history entries. When
// the exclusion empties the candidate set the full list is used.
func (a *Agent) SelectTopic() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selectTopic()
}

func (a *Agent) selectTopic() string {
	recent := make(map[string]struct{})
	start := len(a.history) - historyWindow
	if start < 0 {
		start = 0
	}
	for _, rec := range a.history[start:] {
		for _, topic := range rec.Topics {
			recent[topic] = struct{}{}
		}
	}

	var available []string
	for _, topic := range a.topics {
		if _, used := recent[topic]; !used {
			available = append(available, topic)
		}
	}
	if len(available) == 0 {
		available = a.topics
	}
	return available[a.rng.Intn(len(available))]
}

// Generate produces a queued ContentRecord of the given kind. An empty
// topic means one is selected from the rotation; a non-empty topic
// overrides the rotation entirely.
func (a *Agent) Generate(ctx context.Context, kind Kind, topic string) (ContentRecord, error) {
	if topic == "" {
		topic = a.SelectTopic()
	}

	var rec ContentRecord
	switch kind {
	case KindShortPost:
		rec = a.generateShortPost(ctx, topic)
	case KindLongArticle:
		rec = a.generateLongArticle(ctx, topic)
	default:
		return ContentRecord{}, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}

	a.mu.Lock()
	a.history = append(a.history, rec)
	a.mu.Unlock()
	return rec, nil
}

func (a *Agent) generateShortPost(ctx context.Context, topic string) ContentRecord {
	insights := a.market.Insights(ctx)
	prompt := prompts.ShortPostPrompt(topic, a.topicInsights(topic, insights), marketContext(insights))

	body := a.complete(ctx, prompts.ShortPostSystem(), prompt, 500, func() string {
		return prompts.FallbackShortPost(topic)
	})

	return ContentRecord{
		Title:          "Daily Insight: " + topic,
		Body:           body,
		Kind:           KindShortPost,
		Topics:         []string{topic},
		EngagementHook: ExtractQuestion(body),
		CreatedAt:      a.now(),
		Platform:       "linkedin",
		Status:         StatusQueued,
	}
}

func (a *Agent) generateLongArticle(ctx context.Context, topic string) ContentRecord {
	keyThemes := "Supply-demand dynamics, capital allocation strategies, regional performance variations"
	marketData := a.market.ContentSummary(ctx)
	if marketData == "" {
		marketData = "Regional growth rates and supply pipeline metrics"
	}
	prompt := prompts.LongArticlePrompt(topic, keyThemes, marketData)

	body := a.complete(ctx, prompts.LongArticleSystem(), prompt, 2000, func() string {
		return prompts.FallbackLongArticle(topic)
	})

	return ContentRecord{
		Title:          "Market Analysis: " + topic,
		Body:           body,
		Kind:           KindLongArticle,
		Topics:         []string{topic},
		EngagementHook: "What are your thoughts on these market dynamics?",
		CreatedAt:      a.now(),
		Platform:       "linkedin",
		Status:         StatusQueued,
	}
}

// complete runs a chat completion and returns the raw response text
// verbatim; length and required phrases are not enforced on the LLM
// output, only flagged. Any failure degrades to the fallback template.
func (a *Agent) complete(ctx context.Context, system, user string, maxTokens int, fallback func() string) string {
	if a.client == nil {
		return fallback()
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.7,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		log.Warn().Err(err).Msg("LLM request failed, using fallback template")
		return fallback()
	}
	if len(resp.Choices) == 0 {
		log.Warn().Msg("LLM returned no choices, using fallback template")
		return fallback()
	}

	body := resp.Choices[0].Message.Content
	if !strings.Contains(body, prompts.Disclaimer) {
		log.Warn().Msg("generated content is missing the required disclaimer")
	}
	return body
}

// ExtractQuestion finds the engagement question in a body: the first
// line containing "?" that is not an emphasized disclaimer line.
func ExtractQuestion(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "?") && !strings.HasPrefix(line, "*") {
			return line
		}
	}
	return "What are your thoughts on these market trends?"
}
