package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"crefeed/internal/config"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// jobTimeout bounds one scheduled run end to end, including every
// upstream fetch and posting call.
const jobTimeout = 10 * time.Minute

// schedulerState is persisted across restarts so missed triggers can be
// detected after downtime.
type schedulerState struct {
	LastRun time.Time `json:"last_run"`
}

// Scheduler runs the daily workflow on a wall-clock cron schedule. A
// missed trigger (the process was down at the trigger time) is detected
// on start and logged; it is not caught up.
type Scheduler struct {
	pipeline  *Pipeline
	schedule  config.Schedule
	statePath string

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	now     func() time.Time
}

// NewScheduler builds a stopped Scheduler persisting its state under
// the pipeline's data dir.
func NewScheduler(p *Pipeline) *Scheduler {
	return &Scheduler{
		pipeline:  p,
		schedule:  p.Config().Schedule,
		statePath: filepath.Join(p.Config().DataDir, "logs", "scheduler_state.json"),
		now:       time.Now,
	}
}

// Running reports whether the cron loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start registers the daily and weekend-prep entries and starts the
// cron loop. Starting an already running scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if missed, ok := s.checkMissedTrigger(); ok {
		log.Warn().
			Time("missed_trigger", missed).
			Msg("a scheduled run was missed while the process was down; it will not be caught up")
	}

	hour, minute, err := config.ParseClock(s.schedule.GenerationTime)
	if err != nil {
		return fmt.Errorf("generation time: %w", err)
	}
	prepHour, prepMinute, err := config.ParseClock(s.schedule.WeekendPrepTime)
	if err != nil {
		return fmt.Errorf("weekend prep time: %w", err)
	}

	c := cron.New()
	dailySpec := fmt.Sprintf("%d %d * * *", minute, hour)
	if _, err := c.AddFunc(dailySpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		s.pipeline.DailyWorkflow(ctx)
		s.saveState()
	}); err != nil {
		return fmt.Errorf("schedule daily workflow: %w", err)
	}

	prepSpec := fmt.Sprintf("%d %d * * %s", prepMinute, prepHour, cronWeekday(s.schedule.WeekendPrepDay))
	if _, err := c.AddFunc(prepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		s.pipeline.WeekendPrep(ctx)
	}); err != nil {
		return fmt.Errorf("schedule weekend prep: %w", err)
	}

	c.Start()
	s.cron = c
	s.running = true
	log.Info().
		Str("daily", s.schedule.GenerationTime).
		Str("weekend_prep", s.schedule.WeekendPrepDay+" "+s.schedule.WeekendPrepTime).
		Msg("scheduler started")
	return nil
}

// Stop halts the cron loop. Jobs already running finish on their own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cron.Stop()
	s.cron = nil
	s.running = false
	log.Info().Msg("scheduler stopped")
}

// checkMissedTrigger compares the persisted last run with the most
// recent daily trigger time that has already passed, returning that
// trigger time when the process was down for it.
func (s *Scheduler) checkMissedTrigger() (time.Time, bool) {
	state, err := s.loadState()
	if err != nil {
		log.Warn().Err(err).Msg("could not read scheduler state")
		return time.Time{}, false
	}
	if state.LastRun.IsZero() {
		return time.Time{}, false
	}

	hour, minute, err := config.ParseClock(s.schedule.GenerationTime)
	if err != nil {
		return time.Time{}, false
	}

	now := s.now()
	lastDue := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if lastDue.After(now) {
		lastDue = lastDue.AddDate(0, 0, -1)
	}

	if state.LastRun.Before(lastDue) {
		return lastDue, true
	}
	return time.Time{}, false
}

func (s *Scheduler) loadState() (schedulerState, error) {
	var state schedulerState
	data, err := os.ReadFile(s.statePath)
	if os.IsNotExist(err) {
		return state, nil
	}
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("parse scheduler state: %w", err)
	}
	return state, nil
}

func (s *Scheduler) saveState() {
	state := schedulerState{LastRun: s.now()}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to encode scheduler state")
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.statePath), 0o755); err != nil {
		log.Error().Err(err).Msg("failed to create state dir")
		return
	}
	if err := os.WriteFile(s.statePath, data, 0o644); err != nil {
		log.Error().Err(err).Msg("failed to write scheduler state")
	}
}

// cronWeekday maps a full weekday name to the cron day-of-week field.
func cronWeekday(day string) string {
	if len(day) >= 3 {
		return strings.ToUpper(day[:3])
	}
	return "FRI"
}
