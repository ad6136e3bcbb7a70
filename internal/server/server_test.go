package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"crefeed/internal/agent"
	"crefeed/internal/config"
	"crefeed/internal/marketdata"
	"crefeed/internal/notify"
	"crefeed/internal/pipeline"
	"crefeed/internal/poster"
	"crefeed/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMarket struct{}

func (stubMarket) Insights(context.Context) marketdata.Insights { return marketdata.Insights{} }
func (stubMarket) ContentSummary(context.Context) string        { return "" }

func testHandler(t *testing.T) *Handler {
	t.Helper()
	cfg := config.DefaultPipeline()
	cfg.DataDir = t.TempDir()

	store, err := queue.NewStore(cfg.DataDir)
	require.NoError(t, err)

	a := agent.New("", stubMarket{}, cfg.Topics)
	p := poster.New("", config.TwitterCredentials{}, cfg.DataDir)
	n := notify.New("", 0)
	pipe := pipeline.New(a, store, p, n, cfg)
	return NewHandler(pipe, pipeline.NewScheduler(pipe))
}

func doRequest(t *testing.T, h *Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, testHandler(t), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestStatusReportsConfiguration(t *testing.T) {
	rec := doRequest(t, testHandler(t), http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["llm_configured"])
	assert.Equal(t, false, body["linkedin_configured"])
	assert.Equal(t, false, body["twitter_configured"])
	assert.Equal(t, false, body["scheduler_running"])
	assert.Equal(t, float64(0), body["queue_size"])
}

func TestGenerateThenQueue(t *testing.T) {
	h := testHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/api/generate", []byte(`{"kind":"short_post"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var generated map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &generated))
	assert.Equal(t, "short_post", generated["kind"])
	assert.Equal(t, "queued", generated["status"])
	assert.NotEmpty(t, generated["file"])
	assert.NotEmpty(t, generated["content"])

	rec = doRequest(t, h, http.MethodGet, "/api/queue", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var queueBody struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queueBody))
	require.Len(t, queueBody.Items, 1)
	assert.Equal(t, generated["file"], queueBody.Items[0]["file"])
}

func TestGenerateTopicOverride(t *testing.T) {
	h := testHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/api/generate",
		[]byte(`{"kind":"short_post","topic":"Data center land demand"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var generated map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &generated))
	assert.Equal(t, "Daily Insight: Data center land demand", generated["title"])
	topics, ok := generated["topics"].([]any)
	require.True(t, ok)
	require.Len(t, topics, 1)
	assert.Equal(t, "Data center land demand", topics[0])
}

func TestGenerateRejectsUnknownKind(t *testing.T) {
	rec := doRequest(t, testHandler(t), http.MethodPost, "/api/generate", []byte(`{"kind":"haiku"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostQueuedEndpoint(t *testing.T) {
	h := testHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/api/generate", []byte(`{"kind":"short_post"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var generated map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &generated))
	name := generated["file"].(string)

	rec = doRequest(t, h, http.MethodPost, "/api/queue/"+name+"/post", []byte(`{}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	results, ok := body["results"].(map[string]any)
	require.True(t, ok)
	// No credentials are configured, so the attempt fails per-platform.
	linkedin := results["linkedin"].(map[string]any)
	assert.Equal(t, false, linkedin["success"])
}

func TestPostQueuedMissingRecord(t *testing.T) {
	rec := doRequest(t, testHandler(t), http.MethodPost, "/api/queue/nope_queue.md/post", []byte(`{}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSchedulerEndpoints(t *testing.T) {
	h := testHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/api/scheduler/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/status", nil)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["scheduler_running"])

	rec = doRequest(t, h, http.MethodPost, "/api/scheduler/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/status", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["scheduler_running"])
}

func TestStatsEndpoint(t *testing.T) {
	rec := doRequest(t, testHandler(t), http.MethodGet, "/api/stats?days=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["total_posts"])
}
