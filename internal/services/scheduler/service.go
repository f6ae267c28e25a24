package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
)

// Service runs the research pipeline on a cron schedule. Overlapping
// runs are skipped: a tick that fires while the previous run is still
// in flight logs and returns.
type Service struct {
	config   *common.ScheduleConfig
	pipeline interfaces.PipelineService
	logger   arbor.ILogger

	cron    *cron.Cron
	entryID cron.EntryID

	mu        sync.Mutex
	running   bool
	inFlight  bool
	lastRun   *time.Time
	lastError string
}

func NewService(config *common.ScheduleConfig, pipeline interfaces.PipelineService, logger arbor.ILogger) *Service {
	return &Service{
		config:   config,
		pipeline: pipeline,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start registers the cron entry and begins ticking. Disabled
// schedules are a no-op so the server can always call Start.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if !s.config.Enabled {
		if s.logger != nil {
			s.logger.Info().Msg("Scheduler disabled, pipeline runs on demand only")
		}
		return nil
	}

	expr := s.config.Cron
	if expr == "" {
		expr = "0 7 * * *"
	}

	entryID, err := s.cron.AddFunc(expr, s.tick)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.running = true

	if s.logger != nil {
		s.logger.Info().Str("cron", expr).Msg("Scheduler started")
	}
	return nil
}

// Stop halts the cron loop. A run already in flight finishes.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false

	if s.logger != nil {
		s.logger.Info().Msg("Scheduler stopped")
	}
}

func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun reports the next scheduled fire time, false when the
// scheduler is not running.
func (s *Service) NextRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return time.Time{}, false
	}
	entry := s.cron.Entry(s.entryID)
	if entry.ID == 0 {
		return time.Time{}, false
	}
	return entry.Next, true
}

// TriggerNow runs the pipeline immediately in the background,
// refusing when a run is already in flight.
func (s *Service) TriggerNow() error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return fmt.Errorf("pipeline run already in progress")
	}
	s.mu.Unlock()

	go s.tick()
	return nil
}

func (s *Service) tick() {
	defer func() {
		if r := recover(); r != nil {
			if s.logger != nil {
				s.logger.Error().Str("panic", fmt.Sprintf("%v", r)).Msg("Recovered panic in scheduled pipeline run")
			}
			s.mu.Lock()
			s.inFlight = false
			s.lastError = fmt.Sprintf("panic: %v", r)
			s.mu.Unlock()
		}
	}()

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		if s.logger != nil {
			s.logger.Warn().Msg("Previous pipeline run still in flight, skipping this tick")
		}
		return
	}
	s.inFlight = true
	s.mu.Unlock()

	started := time.Now()
	run, err := s.pipeline.Run(context.Background())

	s.mu.Lock()
	s.inFlight = false
	now := time.Now()
	s.lastRun = &now
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()

	if s.logger == nil {
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Dur("duration", time.Since(started)).Msg("Scheduled pipeline run failed")
		return
	}
	s.logger.Info().
		Int("articles", run.ArticleCount).
		Str("report", run.ReportPath).
		Dur("duration", time.Since(started)).
		Msg("Scheduled pipeline run completed")
}

// LastRun reports the completion time of the most recent run and its
// error message, empty when it succeeded.
func (s *Service) LastRun() (*time.Time, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastError
}

var _ interfaces.SchedulerService = (*Service)(nil)
