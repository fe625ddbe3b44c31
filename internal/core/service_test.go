package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type staticSource struct {
	rows    []RawRow
	err     error
	started chan struct{} // closed on first fetch when non-nil
	block   chan struct{} // fetch waits on it when non-nil
	once    sync.Once
}

func (s *staticSource) FetchRows(ctx context.Context) ([]RawRow, error) {
	if s.started != nil {
		s.once.Do(func() { close(s.started) })
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.rows, s.err
}

type recordingSink struct {
	mu      sync.Mutex
	reports []CycleReport
	err     error
}

func (s *recordingSink) Publish(ctx context.Context, r CycleReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

type fakeGuard struct {
	ok       bool
	err      error
	acquired int
	released int
}

func (g *fakeGuard) Acquire(ctx context.Context) (bool, error) {
	g.acquired++
	return g.ok, g.err
}

func (g *fakeGuard) Release(ctx context.Context) error {
	g.released++
	return nil
}

func newTestService(t *testing.T, store Store, source RowSource, opts ...ServiceOption) *Service {
	t.Helper()
	opts = append([]ServiceOption{WithLogger(quietLogger())}, opts...)
	svc, err := NewService(newTestOrchestrator(t, store), source, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func sampleRows() []RawRow {
	return []RawRow{header, leadRow("2024-03-01T10:00:00+0530", "p:+919876543210", nil)}
}

func TestNewService_Validation(t *testing.T) {
	if _, err := NewService(nil, &staticSource{}); err == nil {
		t.Error("expected error for nil orchestrator")
	}
	o := newTestOrchestrator(t, newMemStore())
	if _, err := NewService(o, nil); err == nil {
		t.Error("expected error for nil source")
	}
}

func TestSyncNow_PublishesAndRemembersReport(t *testing.T) {
	sink := &recordingSink{}
	guard := &fakeGuard{ok: true}
	svc := newTestService(t, newMemStore(), &staticSource{rows: sampleRows()}, WithSink(sink), WithGuard(guard))

	if _, ok := svc.LastReport(); ok {
		t.Fatal("LastReport() before any cycle should report false")
	}

	report, err := svc.SyncNow(context.Background())
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if report.Inserted != 1 {
		t.Errorf("report = %+v, want 1 insert", report)
	}
	if sink.count() != 1 {
		t.Errorf("sink received %d reports, want 1", sink.count())
	}
	if guard.acquired != 1 || guard.released != 1 {
		t.Errorf("guard acquired %d released %d, want 1 and 1", guard.acquired, guard.released)
	}

	last, ok := svc.LastReport()
	if !ok || last.ID != report.ID {
		t.Errorf("LastReport() = %+v, %v", last, ok)
	}
}

func TestSyncNow_GuardHeldElsewhere(t *testing.T) {
	store := newMemStore()
	guard := &fakeGuard{ok: false}
	svc := newTestService(t, store, &staticSource{rows: sampleRows()}, WithGuard(guard))

	_, err := svc.SyncNow(context.Background())
	if !IsCycleInProgress(err) {
		t.Fatalf("err = %v, want ErrCycleInProgress", err)
	}
	if guard.released != 0 {
		t.Error("a guard that was not acquired must not be released")
	}
	if store.acquired != 0 {
		t.Error("no session may be opened when the guard is held")
	}
}

func TestSyncNow_GuardError(t *testing.T) {
	guard := &fakeGuard{err: errors.New("redis: connection refused")}
	svc := newTestService(t, newMemStore(), &staticSource{rows: sampleRows()}, WithGuard(guard))

	_, err := svc.SyncNow(context.Background())
	if err == nil || IsCycleInProgress(err) {
		t.Fatalf("err = %v, want lock error", err)
	}
}

func TestSyncNow_FetchError(t *testing.T) {
	store := newMemStore()
	sink := &recordingSink{}
	svc := newTestService(t, store, &staticSource{err: errors.New("sheets api: status 503")}, WithSink(sink))

	_, err := svc.SyncNow(context.Background())
	if err == nil {
		t.Fatal("expected fetch error")
	}
	if got := MapError(err).Code; got != "SHEET003" {
		t.Errorf("code = %q, want SHEET003", got)
	}
	if store.acquired != 0 || sink.count() != 0 {
		t.Error("nothing may run after a failed fetch")
	}
}

func TestSyncNow_PublishErrorDoesNotFailCycle(t *testing.T) {
	sink := &recordingSink{err: errors.New("kafka unavailable")}
	svc := newTestService(t, newMemStore(), &staticSource{rows: sampleRows()}, WithSink(sink))

	if _, err := svc.SyncNow(context.Background()); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if _, ok := svc.LastReport(); !ok {
		t.Error("report should be stored even if publishing fails")
	}
}

func TestSyncNow_RejectsOverlappingCycle(t *testing.T) {
	source := &staticSource{
		rows:    sampleRows(),
		started: make(chan struct{}),
		block:   make(chan struct{}),
	}
	svc := newTestService(t, newMemStore(), source)

	done := make(chan error, 1)
	go func() {
		_, err := svc.SyncNow(context.Background())
		done <- err
	}()
	<-source.started

	if _, err := svc.SyncNow(context.Background()); !IsCycleInProgress(err) {
		t.Errorf("overlapping SyncNow err = %v, want ErrCycleInProgress", err)
	}

	close(source.block)
	if err := <-done; err != nil {
		t.Errorf("first SyncNow: %v", err)
	}
}

func TestStartSyncScheduler_RunsAndStops(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(t, newMemStore(), &staticSource{rows: sampleRows()}, WithSink(sink))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		svc.StartSyncScheduler(ctx, SchedulerConfig{Interval: 10 * time.Millisecond, RunOnStart: true})
		close(stopped)
	}()

	deadline := time.After(2 * time.Second)
	for sink.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("scheduler ran %d cycles, want at least 2", sink.count())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}

	last, _ := svc.LastReport()
	if last.Inserted != 0 || last.StatusUpdated != 1 {
		t.Errorf("later cycles should only refresh status, got %+v", last)
	}
}
