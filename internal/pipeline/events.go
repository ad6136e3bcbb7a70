package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Event is one entry in the monthly pipeline log.
type Event struct {
	Timestamp string         `json:"timestamp"`
	EventType string         `json:"event_type"`
	Data      map[string]any `json:"data"`
}

// EventLog appends pipeline events to monthly JSON array files and
// errors to a plain append-only log.
type EventLog struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewEventLog stores logs under dataDir/logs.
func NewEventLog(dataDir string) *EventLog {
	return &EventLog{dir: filepath.Join(dataDir, "logs"), now: time.Now}
}

// Log appends an event to the current month's pipeline log. Failures
// are logged and swallowed; event logging never fails the workflow.
func (l *EventLog) Log(eventType string, data map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	path := filepath.Join(l.dir, fmt.Sprintf("pipeline_log_%s.json", now.Format("200601")))

	var events []Event
	if raw, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(raw, &events); err != nil {
			log.Warn().Err(err).Str("file", filepath.Base(path)).Msg("pipeline log is malformed, starting fresh")
			events = nil
		}
	}
	events = append(events, Event{
		Timestamp: now.Format(time.RFC3339),
		EventType: eventType,
		Data:      data,
	})

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		log.Error().Err(err).Msg("failed to create log dir")
		return
	}
	encoded, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to encode pipeline log")
		return
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		log.Error().Err(err).Msg("failed to write pipeline log")
	}
}

// Error appends one line to errors.log.
func (l *EventLog) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		log.Error().Err(err).Msg("failed to create log dir")
		return
	}
	f, err := os.OpenFile(filepath.Join(l.dir, "errors.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Error().Err(err).Msg("failed to open error log")
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s - ERROR: %s\n", l.now().Format(time.RFC3339), msg)
}

// Recent returns up to n events from the current month, newest last.
func (l *EventLog) Recent(n int) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	path := filepath.Join(l.dir, fmt.Sprintf("pipeline_log_%s.json", l.now().Format("200601")))
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pipeline log: %w", err)
	}

	var events []Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("parse pipeline log: %w", err)
	}
	if len(events) > n {
		events = events[len(events)-n:]
	}
	return events, nil
}
