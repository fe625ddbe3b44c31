package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/leadsync/internal/core"
	"github.com/JonMunkholm/leadsync/internal/logging"
	"github.com/JonMunkholm/leadsync/internal/web/views"
)

// MaxListLimit caps an explicit limit query parameter of the enquiry
// listing. Without one every lead is listed.
const MaxListLimit = 1000

const healthTimeout = 3 * time.Second

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status    string     `json:"status"`
	Database  string     `json:"database"`
	LastCycle *time.Time `json:"last_cycle,omitempty"`
}

// handleHealth reports liveness and database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok"}
	if last, ok := s.deps.Syncer.LastReport(); ok {
		resp.LastCycle = &last.StartedAt
	}

	if err := s.deps.DB.Ping(ctx); err != nil {
		logging.FromContext(r.Context()).Warn("health: database ping failed", "error", err)
		resp.Status = "degraded"
		resp.Database = core.MapError(err).Code
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseLimit reads ?limit=. An absent value yields 0, which lists every
// lead; anything that is not a positive integer is rejected.
func parseLimit(r *http.Request) (int, bool) {
	val := r.URL.Query().Get("limit")
	if val == "" {
		return 0, true
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 1 {
		return 0, false
	}
	if n > MaxListLimit {
		n = MaxListLimit
	}
	return n, true
}

// handleListEnquiries returns stored leads as JSON, newest first.
func (s *Server) handleListEnquiries(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	leads, err := s.deps.Leads.ListLeads(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if leads == nil {
		leads = []core.Lead{}
	}
	writeJSON(w, http.StatusOK, leads)
}

// handleEnquiriesView renders stored leads as an HTML table with a live
// outcome feed.
func (s *Server) handleEnquiriesView(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
		return
	}

	leads, err := s.deps.Leads.ListLeads(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	var last *core.CycleReport
	if report, ok := s.deps.Syncer.LastReport(); ok {
		last = &report
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.LeadsPage(leads, last, s.deps.Live != nil).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render enquiries view", "error", err)
	}
}

// handleSync runs one cycle immediately and returns its report.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	logger.Info("manual sync requested")

	// A client disconnect must not abort a cycle halfway through.
	ctx := context.WithoutCancel(r.Context())

	report, err := s.deps.Syncer.SyncNow(ctx)
	if err != nil {
		if core.IsCycleInProgress(err) {
			respondError(w, r, err, http.StatusConflict)
			return
		}
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	logger.Info("manual sync finished",
		"cycle_id", report.ID,
		"inserted", report.Inserted,
		"status_updated", report.StatusUpdated,
		"failed", report.Failed,
	)
	writeJSON(w, http.StatusOK, report)
}

// handleLastReport returns the report of the last completed cycle.
func (s *Server) handleLastReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.deps.Syncer.LastReport()
	if !ok {
		writeError(w, http.StatusNotFound, "no cycle has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
