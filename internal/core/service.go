package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Service is the main entry point for sync operations. It fetches the row
// block from its source, runs one cycle and forwards the report.
type Service struct {
	orchestrator *Orchestrator
	source       RowSource
	sink         OutcomeSink
	guard        CycleGuard
	logger       *slog.Logger

	cycleMu sync.Mutex // held for the duration of one cycle

	mu   sync.RWMutex
	last *CycleReport
}

// ServiceOption configures optional Service collaborators.
type ServiceOption func(*Service)

// WithSink forwards every finished report to sink.
func WithSink(sink OutcomeSink) ServiceOption {
	return func(s *Service) { s.sink = sink }
}

// WithGuard runs every cycle under guard.
func WithGuard(guard CycleGuard) ServiceOption {
	return func(s *Service) { s.guard = guard }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Service.
func NewService(orchestrator *Orchestrator, source RowSource, opts ...ServiceOption) (*Service, error) {
	if orchestrator == nil {
		return nil, fmt.Errorf("service: orchestrator is required")
	}
	if source == nil {
		return nil, fmt.Errorf("service: row source is required")
	}

	s := &Service{
		orchestrator: orchestrator,
		source:       source,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SyncNow runs one full cycle. It returns ErrCycleInProgress when another
// cycle, in this process or elsewhere, is running.
func (s *Service) SyncNow(ctx context.Context) (CycleReport, error) {
	if !s.cycleMu.TryLock() {
		return CycleReport{}, ErrCycleInProgress
	}
	defer s.cycleMu.Unlock()

	if s.guard != nil {
		ok, err := s.guard.Acquire(ctx)
		if err != nil {
			return CycleReport{}, fmt.Errorf("acquire cycle lock: %w", err)
		}
		if !ok {
			return CycleReport{}, ErrCycleInProgress
		}
		defer func() {
			// Release even when ctx was cancelled mid-cycle.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.guard.Release(releaseCtx); err != nil {
				s.logger.Warn("release cycle lock failed", "error", err)
			}
		}()
	}

	s.logger.Info("syncing data from source")
	rows, err := s.source.FetchRows(ctx)
	if err != nil {
		return CycleReport{}, fmt.Errorf("fetch rows: %w", err)
	}
	if len(rows) == 0 {
		s.logger.Info("no data found in source")
	}

	report, err := s.orchestrator.RunCycle(ctx, rows)
	if err != nil {
		return report, err
	}

	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()

	if s.sink != nil {
		if err := s.sink.Publish(ctx, report); err != nil {
			s.logger.Warn("publish cycle report failed", "cycle_id", report.ID, "error", err)
		}
	}
	return report, nil
}

// LastReport returns the report of the last completed cycle.
func (s *Service) LastReport() (CycleReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return CycleReport{}, false
	}
	return *s.last, true
}

// IsCycleInProgress reports whether err means the cycle was not started
// because another one was running.
func IsCycleInProgress(err error) bool {
	return errors.Is(err, ErrCycleInProgress)
}
