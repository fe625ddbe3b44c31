// Package notify delivers finished sync cycles to listeners: websocket
// clients, a Kafka topic and the application log. It also sends the
// process-down alert email.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/leadsync/internal/core"
)

// Event is one row outcome as published to listeners.
type Event struct {
	ID         string       `json:"id"`
	CycleID    string       `json:"cycle_id"`
	Action     core.Action  `json:"action"`
	Row        int          `json:"row"`
	Key        core.LeadKey `json:"key"`
	CustomerID int64        `json:"customer_id,omitempty"`
	LeadID     int64        `json:"lead_id,omitempty"`
	Details    string       `json:"details,omitempty"`
	Code       string       `json:"code,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}

// EventsFromReport converts the non-skipped outcomes of report into events.
// Skipped rows are not leads and are not announced.
func EventsFromReport(report core.CycleReport) []Event {
	ts := report.StartedAt.Add(report.Duration)
	events := make([]Event, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		if o.Action == core.ActionSkipped {
			continue
		}
		events = append(events, Event{
			ID:         uuid.NewString(),
			CycleID:    report.ID,
			Action:     o.Action,
			Row:        o.Row,
			Key:        o.Key,
			CustomerID: o.CustomerID,
			LeadID:     o.LeadID,
			Details:    o.Details,
			Code:       o.Code,
			Timestamp:  ts,
		})
	}
	return events
}

// Multi publishes to every sink and joins their errors.
type Multi []core.OutcomeSink

// Publish forwards report to each sink in order. A failing sink does not
// stop the others.
func (m Multi) Publish(ctx context.Context, report core.CycleReport) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes one line per failed row and a cycle summary.
type LogSink struct {
	Logger *slog.Logger
}

// Publish logs the report.
func (s LogSink) Publish(ctx context.Context, report core.CycleReport) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, o := range report.Outcomes {
		if o.Action != core.ActionFailed {
			continue
		}
		logger.Warn("lead row failed",
			"cycle_id", report.ID,
			"row", o.Row,
			"created_time", o.Key.LeadDate,
			"phone", o.Key.Phone.String(),
			"code", o.Code,
			"details", o.Details,
		)
	}
	logger.Info("cycle report",
		"cycle_id", report.ID,
		"rows", report.TotalRows,
		"inserted", report.Inserted,
		"status_updated", report.StatusUpdated,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return nil
}
