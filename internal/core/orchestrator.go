package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Options configures an Orchestrator. The zero value is usable.
type Options struct {
	Columns         ColumnMap // nil means DefaultColumnMap
	PrimarySource   string
	SecondarySource string
	Logger          *slog.Logger
	Now             func() time.Time
}

// Orchestrator runs sync cycles over a Store.
type Orchestrator struct {
	store      Store
	columns    ColumnMap
	resolver   *Resolver
	reconciler *Reconciler
	logger     *slog.Logger
	now        func() time.Time
	normalize  func(RowFields) LeadCandidate
}

// NewOrchestrator validates opts and returns an Orchestrator bound to store.
func NewOrchestrator(store Store, opts Options) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("orchestrator: store is required")
	}

	cols := opts.Columns
	if cols == nil {
		cols = DefaultColumnMap
	}
	if err := cols.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		store:    store,
		columns:  cols,
		resolver: &Resolver{},
		reconciler: &Reconciler{
			PrimarySource:   opts.PrimarySource,
			SecondarySource: opts.SecondarySource,
		},
		logger:    logger,
		now:       now,
		normalize: RowFields.Candidate,
	}, nil
}

// RunCycle reconciles rows against the store. The first row is the header
// and is dropped; remaining rows are processed in order over one session.
//
// A failing row is recorded as ActionFailed and the cycle moves on. The only
// error returned is a failure to acquire the session, in which case no row
// has been processed.
func (o *Orchestrator) RunCycle(ctx context.Context, rows []RawRow) (CycleReport, error) {
	report := CycleReport{ID: uuid.NewString(), StartedAt: o.now()}
	logger := o.logger.With("cycle_id", report.ID)

	if len(rows) <= 1 {
		logger.Info("sync cycle: no data rows")
		report.Duration = o.now().Sub(report.StartedAt)
		return report, nil
	}
	data := rows[1:]
	report.TotalRows = len(data)

	sess, err := o.store.Acquire(ctx)
	if err != nil {
		err = storeErr("acquire session", err)
		logger.Error("sync cycle aborted", "error", err)
		report.Duration = o.now().Sub(report.StartedAt)
		return report, err
	}
	defer sess.Release()

	for i, row := range data {
		report.record(o.processRow(ctx, logger, sess, i+2, row))
	}

	report.Duration = o.now().Sub(report.StartedAt)
	logger.Info("sync cycle completed",
		"rows", report.TotalRows,
		"inserted", report.Inserted,
		"status_updated", report.StatusUpdated,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

// processRow runs one row through extraction, normalization, resolution and
// reconciliation. Errors and panics end up in the returned Outcome.
func (o *Orchestrator) processRow(ctx context.Context, logger *slog.Logger, sess Session, rowNum int, row RawRow) (out Outcome) {
	out = Outcome{Row: rowNum}
	rowLogger := logger.With("row", rowNum)

	defer func() {
		if r := recover(); r != nil {
			out = o.failed(rowLogger, out, &MalformedRowError{Row: rowNum, Reason: fmt.Sprintf("panic: %v", r)})
		}
	}()

	fields, ok := Extract(row, o.columns)
	if !ok {
		logger.Debug("row skipped", "row", rowNum, "reason", "empty created_time")
		out.Action = ActionSkipped
		out.Details = "empty created_time"
		return out
	}

	cand := o.normalize(fields)
	out.Key = cand.Key()
	rowLogger = rowLogger.With("created_time", cand.CreatedTime, "phone", cand.Phone.String())

	customerID, status, err := o.resolver.Resolve(ctx, sess, cand.Phone, cand.FullName, cand.Email)
	if err != nil {
		return o.failed(rowLogger, out, err)
	}
	out.CustomerID = customerID
	out.Status = status

	res, err := o.reconciler.Reconcile(ctx, sess, cand, customerID, status)
	if err != nil {
		return o.failed(rowLogger, out, err)
	}
	out.Action = res.Action
	out.LeadID = res.LeadID

	switch res.Action {
	case ActionInserted:
		out.Details = fmt.Sprintf("lead added for customer %d", customerID)
	case ActionStatusUpdated:
		out.Details = fmt.Sprintf("duplicate lead %d, customer_status set to %s", res.LeadID, status)
	}
	rowLogger.Info("row reconciled", "action", out.Action, "lead_id", out.LeadID, "customer_id", customerID)
	return out
}

func (o *Orchestrator) failed(logger *slog.Logger, out Outcome, err error) Outcome {
	msg := MapError(err)
	logger.Error("row failed", "error", err, "code", msg.Code)
	out.Action = ActionFailed
	out.Details = err.Error()
	out.Code = msg.Code
	return out
}
