package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
)

func newMock(t *testing.T) pgxmock.PgxConnIface {
	t.Helper()
	mock, err := pgxmock.NewConn()
	if err != nil {
		t.Fatalf("pgxmock.NewConn: %v", err)
	}
	t.Cleanup(func() { mock.Close(context.Background()) })
	return mock
}

func verify(t *testing.T, mock pgxmock.PgxConnIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

var customerCols = []string{"id", "name", "email", "phone_number", "country_code", "customer_status"}

func TestGetCustomerByPhone(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM customers\s+WHERE phone_number`).
		WithArgs("9876543210", "+91").
		WillReturnRows(pgxmock.NewRows(customerCols).
			AddRow(int64(7), pgtype.Text{String: "Asha", Valid: true}, pgtype.Text{}, "9876543210", "+91", pgtype.Text{String: "new", Valid: true}))

	got, err := New(mock).GetCustomerByPhone(context.Background(), GetCustomerByPhoneParams{
		PhoneNumber: "9876543210",
		CountryCode: "+91",
	})
	if err != nil {
		t.Fatalf("GetCustomerByPhone: %v", err)
	}
	if got.ID != 7 || got.Name.String != "Asha" || got.Email.Valid || got.CustomerStatus.String != "new" {
		t.Errorf("unexpected customer: %+v", got)
	}
	verify(t, mock)
}

func TestGetCustomerByPhone_NoRows(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM customers").
		WithArgs("1", "").
		WillReturnError(pgx.ErrNoRows)

	_, err := New(mock).GetCustomerByPhone(context.Background(), GetCustomerByPhoneParams{PhoneNumber: "1"})
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("error = %v, want pgx.ErrNoRows", err)
	}
	verify(t, mock)
}

func TestInsertCustomer_Conflict(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("INSERT INTO customers").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "9876543210", "+91", pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := New(mock).InsertCustomer(context.Background(), InsertCustomerParams{
		PhoneNumber: "9876543210",
		CountryCode: "+91",
	})
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("error = %v, want pgx.ErrNoRows on conflict", err)
	}
	verify(t, mock)
}

func TestInsertLead(t *testing.T) {
	mock := newMock(t)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	args := make([]interface{}, 18)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	mock.ExpectQuery("INSERT INTO addleads").
		WithArgs(args...).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).
			AddRow(int64(42), pgtype.Timestamptz{Time: created, Valid: true}))

	got, err := New(mock).InsertLead(context.Background(), InsertLeadParams{
		LeadDate:    "2026-03-01T10:00:00+0000",
		PhoneNumber: "9876543210",
		CountryCode: "+91",
		CustomerID:  pgtype.Int8{Int64: 7, Valid: true},
	})
	if err != nil {
		t.Fatalf("InsertLead: %v", err)
	}
	if got.ID != 42 || !got.CreatedAt.Time.Equal(created) {
		t.Errorf("unexpected row: %+v", got)
	}
	verify(t, mock)
}

func TestUpdateLeadCustomerStatus(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec("UPDATE addleads SET customer_status").
		WithArgs(pgxmock.AnyArg(), int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := New(mock).UpdateLeadCustomerStatus(context.Background(), UpdateLeadCustomerStatusParams{
		CustomerStatus: pgtype.Text{String: "new", Valid: true},
		ID:             42,
	})
	if err != nil {
		t.Fatalf("UpdateLeadCustomerStatus: %v", err)
	}
	if n != 1 {
		t.Errorf("rows affected = %d, want 1", n)
	}
	verify(t, mock)
}

func TestAdvisoryLock(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectQuery("SELECT pg_advisory_unlock").
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows([]string{"pg_advisory_unlock"}).AddRow(true))

	q := New(mock)
	ok, err := q.TryAdvisoryLock(context.Background(), 99)
	if err != nil || !ok {
		t.Fatalf("TryAdvisoryLock = %v, %v; want true, nil", ok, err)
	}
	released, err := q.AdvisoryUnlock(context.Background(), 99)
	if err != nil || !released {
		t.Fatalf("AdvisoryUnlock = %v, %v; want true, nil", released, err)
	}
	verify(t, mock)
}

func TestListAllLeads(t *testing.T) {
	mock := newMock(t)
	cols := []string{
		"id", "lead_date", "ad_copy", "ad_set", "lead_type", "sources", "start_date", "people_count",
		"name", "email", "phone_number", "country_code", "origincity", "channel", "destination",
		"primary_source", "secondary_source", "customer_id", "customer_status", "created_at",
	}
	rows := pgxmock.NewRows(cols)
	for id := int64(2); id >= 1; id-- {
		rows.AddRow(id, "2026-03-01T10:00:00+0000", pgtype.Text{}, pgtype.Text{}, pgtype.Text{}, pgtype.Text{},
			pgtype.Text{}, pgtype.Text{}, pgtype.Text{}, pgtype.Text{}, "9876543210", "+91",
			pgtype.Text{}, pgtype.Text{}, pgtype.Text{}, pgtype.Text{}, pgtype.Text{},
			pgtype.Int8{}, pgtype.Text{String: "new", Valid: true}, pgtype.Timestamptz{})
	}
	mock.ExpectQuery("ORDER BY created_at DESC, id DESC$").WillReturnRows(rows)

	got, err := New(mock).ListAllLeads(context.Background())
	if err != nil {
		t.Fatalf("ListAllLeads: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("unexpected rows: %+v", got)
	}
	verify(t, mock)
}
