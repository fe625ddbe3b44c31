package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

var header = RawRow{"id", "created_time", "ad_id", "ad_name"}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(t *testing.T, store Store) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(store, Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return o
}

func TestNewOrchestrator_Validation(t *testing.T) {
	if _, err := NewOrchestrator(nil, Options{}); err == nil {
		t.Error("expected error for nil store")
	}
	bad := ColumnMap{{Field: FieldCreatedTime, Index: 1}}
	if _, err := NewOrchestrator(newMemStore(), Options{Columns: bad}); err == nil {
		t.Error("expected error for incomplete column map")
	}
}

func TestRunCycle_NoDataRows(t *testing.T) {
	tests := map[string][]RawRow{
		"nil":         nil,
		"header only": {header},
	}
	for name, rows := range tests {
		t.Run(name, func(t *testing.T) {
			store := newMemStore()
			report, err := newTestOrchestrator(t, store).RunCycle(context.Background(), rows)
			if err != nil {
				t.Fatalf("RunCycle: %v", err)
			}
			if report.TotalRows != 0 || len(report.Outcomes) != 0 {
				t.Errorf("unexpected report: %+v", report)
			}
			if store.acquired != 0 {
				t.Errorf("session acquired %d times, want 0", store.acquired)
			}
		})
	}
}

func TestRunCycle_InsertsNewLead(t *testing.T) {
	store := newMemStore()
	rows := []RawRow{
		header,
		leadRow("2024-03-01T10:00:00+0530", "p:+919876543210", map[Field]string{
			FieldAdName:       "Summer Ad",
			FieldAdsetName:    "Adset A",
			FieldCampaignName: "Goa Trips",
			FieldFormName:     "Goa Form",
			FieldPlatform:     "ig",
			FieldStartDate:    "5_March_2024",
			FieldPeopleCount:  "4",
			FieldFullName:     "Asha Rao",
			FieldEmail:        "Asha@Example.com",
			FieldCity:         "Pune",
		}),
	}

	report, err := newTestOrchestrator(t, store).RunCycle(context.Background(), rows)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if report.TotalRows != 1 || report.Inserted != 1 {
		t.Fatalf("report = %+v, want one insert", report)
	}
	out := report.Outcomes[0]
	if out.Row != 2 || out.Action != ActionInserted || out.Status != StatusNew {
		t.Errorf("outcome = %+v", out)
	}

	customers, leads := store.snapshot()
	if len(customers) != 1 || len(leads) != 1 {
		t.Fatalf("got %d customers, %d leads; want 1, 1", len(customers), len(leads))
	}
	c := customers[0]
	if c.Name != "Asha Rao" || c.Email != "Asha@Example.com" || c.Status != StatusNew {
		t.Errorf("customer = %+v", c)
	}

	want := Lead{
		ID:              1,
		LeadDate:        "2024-03-01T10:00:00+0530",
		AdCopy:          "Summer Ad",
		AdSet:           "Adset A",
		LeadType:        "Goa Trips",
		Sources:         "ig",
		StartDate:       "2024-03-05",
		PeopleCount:     "4",
		Name:            "asha rao",
		Email:           "asha@example.com",
		Phone:           PhoneIdentity{CountryCode: "+91", NationalNumber: "9876543210"},
		OriginCity:      "Pune",
		Channel:         "ig",
		Destination:     "Goa Form",
		PrimarySource:   DefaultPrimarySource,
		SecondarySource: DefaultSecondarySource,
		CustomerID:      c.ID,
		CustomerStatus:  StatusNew,
	}
	got := leads[0]
	got.CreatedAt = want.CreatedAt
	if got != want {
		t.Errorf("lead =\n%+v\nwant\n%+v", got, want)
	}
}

func TestRunCycle_Idempotent(t *testing.T) {
	store := newMemStore()
	o := newTestOrchestrator(t, store)
	rows := []RawRow{
		header,
		leadRow("2024-03-01T10:00:00+0530", "p:+919876543210", nil),
		leadRow("2024-03-02T11:00:00+0530", "p:+447911123456", nil),
	}

	if _, err := o.RunCycle(context.Background(), rows); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	report, err := o.RunCycle(context.Background(), rows)
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}

	if report.Inserted != 0 || report.StatusUpdated != 2 {
		t.Errorf("second cycle report = %+v, want 2 status updates", report)
	}
	customers, leads := store.snapshot()
	if len(customers) != 2 || len(leads) != 2 {
		t.Errorf("got %d customers, %d leads; want 2, 2", len(customers), len(leads))
	}
}

func TestRunCycle_DuplicateRefreshesStatusOnly(t *testing.T) {
	store := newMemStore()
	o := newTestOrchestrator(t, store)
	first := []RawRow{header, leadRow("2024-03-01T10:00:00+0530", "p:+919876543210", map[Field]string{FieldAdName: "Original"})}
	if _, err := o.RunCycle(context.Background(), first); err != nil {
		t.Fatal(err)
	}

	store.mu.Lock()
	store.leads[0].CustomerStatus = "stale"
	store.mu.Unlock()

	second := []RawRow{header, leadRow("2024-03-01T10:00:00+0530", "p:+91 98765 43210", map[Field]string{FieldAdName: "Edited"})}
	report, err := o.RunCycle(context.Background(), second)
	if err != nil {
		t.Fatal(err)
	}
	if report.StatusUpdated != 1 {
		t.Fatalf("report = %+v, want one status update", report)
	}

	_, leads := store.snapshot()
	if leads[0].CustomerStatus != StatusNew {
		t.Errorf("customer_status = %q, want %q", leads[0].CustomerStatus, StatusNew)
	}
	if leads[0].AdCopy != "Original" {
		t.Errorf("ad_copy = %q, other columns must not change", leads[0].AdCopy)
	}
}

func TestRunCycle_ReusesCustomerAcrossLeads(t *testing.T) {
	store := newMemStore()
	rows := []RawRow{
		header,
		leadRow("2024-03-01T10:00:00+0530", "p:+919876543210", nil),
		leadRow("2024-04-01T10:00:00+0530", "p:+919876543210", nil),
	}

	report, err := newTestOrchestrator(t, store).RunCycle(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	if report.Inserted != 2 {
		t.Fatalf("report = %+v, want 2 inserts", report)
	}
	customers, leads := store.snapshot()
	if len(customers) != 1 {
		t.Fatalf("got %d customers, want 1", len(customers))
	}
	for _, l := range leads {
		if l.CustomerID != customers[0].ID {
			t.Errorf("lead %d customer_id = %d, want %d", l.ID, l.CustomerID, customers[0].ID)
		}
	}
}

func TestRunCycle_SkipsRowsWithoutCreatedTime(t *testing.T) {
	store := newMemStore()
	rows := []RawRow{
		header,
		leadRow("", "p:+919876543210", nil),
		leadRow("  ", "p:+447911123456", nil),
		{},
	}

	report, err := newTestOrchestrator(t, store).RunCycle(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	if report.Skipped != 3 || report.TotalRows != 3 {
		t.Errorf("report = %+v, want 3 skipped", report)
	}
	if store.calls != 0 {
		t.Errorf("store calls = %d, want 0 for skipped rows", store.calls)
	}
	for i, out := range report.Outcomes {
		if out.Row != i+2 || out.Action != ActionSkipped {
			t.Errorf("outcome %d = %+v", i, out)
		}
	}
}

func TestRunCycle_FailureIsContained(t *testing.T) {
	store := newMemStore()
	store.failPhone["7911123456"] = errSimulated
	rows := []RawRow{
		header,
		leadRow("2024-03-01T10:00:00+0530", "p:+919876543210", nil),
		leadRow("2024-03-01T11:00:00+0530", "p:+447911123456", nil),
		leadRow("2024-03-01T12:00:00+0530", "p:+16502530000", nil),
	}

	report, err := newTestOrchestrator(t, store).RunCycle(context.Background(), rows)
	if err != nil {
		t.Fatalf("RunCycle returned %v; row failures must not abort the cycle", err)
	}
	if report.Inserted != 2 || report.Failed != 1 {
		t.Fatalf("report = %+v, want 2 inserted and 1 failed", report)
	}
	failed := report.Outcomes[1]
	if failed.Row != 3 || failed.Action != ActionFailed || failed.Code != "DB005" {
		t.Errorf("failed outcome = %+v", failed)
	}
}

func TestRunCycle_PanicIsContained(t *testing.T) {
	store := newMemStore()
	store.panicPhone = "9876543210"
	rows := []RawRow{
		header,
		leadRow("2024-03-01T10:00:00+0530", "p:+919876543210", nil),
		leadRow("2024-03-01T11:00:00+0530", "p:+447911123456", nil),
	}

	report, err := newTestOrchestrator(t, store).RunCycle(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 1 || report.Inserted != 1 {
		t.Errorf("report = %+v, want 1 failed and 1 inserted", report)
	}
	if got := report.Outcomes[0]; got.Action != ActionFailed || got.Code != "ROW001" {
		t.Errorf("first outcome = %+v, want failed with ROW001", got)
	}
}

func TestRunCycle_NormalizerPanicIsContained(t *testing.T) {
	store := newMemStore()
	o := newTestOrchestrator(t, store)
	o.normalize = func(f RowFields) LeadCandidate {
		if f.PhoneRaw == "p:+919876543210" {
			panic("index out of range")
		}
		return f.Candidate()
	}
	rows := []RawRow{
		header,
		leadRow("2024-03-01T10:00:00+0530", "p:+919876543210", nil),
		leadRow("2024-03-01T11:00:00+0530", "p:+447911123456", nil),
	}

	report, err := o.RunCycle(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 1 || report.Inserted != 1 {
		t.Fatalf("report = %+v, want 1 failed and 1 inserted", report)
	}
	got := report.Outcomes[0]
	if got.Row != 2 || got.Action != ActionFailed || got.Code != "ROW001" {
		t.Errorf("outcome = %+v, want row 2 failed with ROW001", got)
	}
	if got.Details != "malformed row 2: panic: index out of range" {
		t.Errorf("details = %q", got.Details)
	}
}

func TestRunCycle_AcquireFailure(t *testing.T) {
	store := newMemStore()
	store.acquireErr = errors.New("dial tcp: connection refused")
	rows := []RawRow{header, leadRow("2024-03-01T10:00:00+0530", "p:+919876543210", nil)}

	report, err := newTestOrchestrator(t, store).RunCycle(context.Background(), rows)
	var se *StoreError
	if !errors.As(err, &se) || se.Op != "acquire session" {
		t.Fatalf("err = %v, want StoreError for acquire session", err)
	}
	if len(report.Outcomes) != 0 {
		t.Errorf("no row may be processed, got %+v", report.Outcomes)
	}
}

func TestRunCycle_ReleasesSession(t *testing.T) {
	store := newMemStore()
	rows := []RawRow{header, leadRow("2024-03-01T10:00:00+0530", "p:+919876543210", nil)}

	if _, err := newTestOrchestrator(t, store).RunCycle(context.Background(), rows); err != nil {
		t.Fatal(err)
	}
	if store.acquired != 1 || store.released != 1 {
		t.Errorf("acquired %d, released %d; want 1, 1", store.acquired, store.released)
	}
}

func TestRunCycle_UnparseablePhoneStillReconciles(t *testing.T) {
	store := newMemStore()
	o := newTestOrchestrator(t, store)
	rows := []RawRow{header, leadRow("2024-03-01T10:00:00+0530", "p:12345", nil)}

	for i := 0; i < 2; i++ {
		if _, err := o.RunCycle(context.Background(), rows); err != nil {
			t.Fatal(err)
		}
	}
	customers, leads := store.snapshot()
	if len(customers) != 1 || len(leads) != 1 {
		t.Fatalf("got %d customers, %d leads; want 1, 1", len(customers), len(leads))
	}
	if customers[0].Phone != (PhoneIdentity{NationalNumber: "12345"}) {
		t.Errorf("phone = %+v, want fallback identity", customers[0].Phone)
	}
}
