// Package server exposes the pipeline over a small JSON API used by
// the operator dashboard.
package server

import (
	"net/http"
	"path/filepath"
	"strconv"

	"crefeed/internal/agent"
	"crefeed/internal/pipeline"

	"github.com/gin-gonic/gin"
)

// Handler wires the pipeline into HTTP endpoints.
type Handler struct {
	pipeline  *pipeline.Pipeline
	scheduler *pipeline.Scheduler
}

func NewHandler(p *pipeline.Pipeline, s *pipeline.Scheduler) *Handler {
	return &Handler{pipeline: p, scheduler: s}
}

// Router builds the gin engine with all routes registered.
func (h *Handler) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.GET("/status", h.Status)
		api.POST("/generate", h.Generate)
		api.GET("/queue", h.Queue)
		api.POST("/queue/:name/post", h.PostQueued)
		api.GET("/stats", h.Stats)
		api.GET("/events", h.Events)
		api.POST("/scheduler/start", h.StartScheduler)
		api.POST("/scheduler/stop", h.StopScheduler)
	}
	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "crefeed"})
}

func (h *Handler) Status(c *gin.Context) {
	items, err := h.pipeline.Store().List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	queued := 0
	for _, item := range items {
		if item.Status == agent.StatusQueued {
			queued++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"llm_configured":      h.pipeline.Agent().HasLLM(),
		"linkedin_configured": h.pipeline.Poster().LinkedInConfigured(),
		"twitter_configured":  h.pipeline.Poster().TwitterConfigured(),
		"scheduler_running":   h.scheduler.Running(),
		"queue_size":          len(items),
		"queued":              queued,
	})
}

type generateRequest struct {
	Kind  string `json:"kind"`
	Topic string `json:"topic"`
}

func (h *Handler) Generate(c *gin.Context) {
	req := generateRequest{Kind: pipeline.KindAuto}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	path, err := h.pipeline.GenerateAndQueue(c.Request.Context(), h.pipeline.ResolveKind(req.Kind), req.Topic)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.pipeline.Store().Read(path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"file":    filepath.Base(path),
		"title":   item.Title,
		"kind":    item.Kind,
		"status":  item.Status,
		"topics":  item.Topics,
		"content": item.Body,
	})
}

func (h *Handler) Queue(c *gin.Context) {
	items, err := h.pipeline.Store().List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(items))
	for _, item := range items {
		out = append(out, gin.H{
			"file":      filepath.Base(item.Path),
			"title":     item.Title,
			"kind":      item.Kind,
			"created":   item.Created,
			"status":    item.Status,
			"platforms": item.Platforms,
			"auto_post": item.AutoPost,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

type postRequest struct {
	Platforms []string `json:"platforms"`
}

func (h *Handler) PostQueued(c *gin.Context) {
	// Only bare file names are accepted; the queue dir is the boundary.
	name := filepath.Base(c.Param("name"))
	path := filepath.Join(h.pipeline.Store().Dir(), name)

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.pipeline.PostQueued(c.Request.Context(), path, req.Platforms)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) Stats(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			days = parsed
		}
	}
	stats, err := h.pipeline.Poster().Stats(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) Events(c *gin.Context) {
	events, err := h.pipeline.Events().Recent(20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *Handler) StartScheduler(c *gin.Context) {
	if err := h.scheduler.Start(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"running": true})
}

func (h *Handler) StopScheduler(c *gin.Context) {
	h.scheduler.Stop()
	c.JSON(http.StatusOK, gin.H{"running": false})
}
