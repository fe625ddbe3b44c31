package core

import (
	"context"
	"errors"
	"fmt"

	db "github.com/JonMunkholm/leadsync/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is the PostgreSQL Store. Each session holds one pooled
// connection until released.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a store over pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Acquire checks out a connection for the duration of one cycle.
func (s *PgStore) Acquire(ctx context.Context) (Session, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return newPgSession(conn, conn.Release), nil
}

// ListLeads returns the most recent leads, newest first. A limit of zero or
// less returns every lead.
func (s *PgStore) ListLeads(ctx context.Context, limit int) ([]Lead, error) {
	return listLeads(ctx, s.pool, limit)
}

// Ping verifies the pool can reach the database.
func (s *PgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ApplySchema creates the tables and identity indexes if missing.
func (s *PgStore) ApplySchema(ctx context.Context) error {
	if err := db.New(s.pool).ApplySchema(ctx); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func listLeads(ctx context.Context, dbtx db.DBTX, limit int) ([]Lead, error) {
	q := db.New(dbtx)
	var (
		rows []db.AddLead
		err  error
	)
	if limit > 0 {
		rows, err = q.ListLeads(ctx, int32(limit))
	} else {
		rows, err = q.ListAllLeads(ctx)
	}
	if err != nil {
		return nil, storeErr("list leads", err)
	}
	leads := make([]Lead, 0, len(rows))
	for _, r := range rows {
		leads = append(leads, leadFromRow(r))
	}
	return leads, nil
}

// pgSession runs every statement on one connection.
type pgSession struct {
	q       *db.Queries
	release func()
}

func newPgSession(dbtx db.DBTX, release func()) *pgSession {
	return &pgSession{q: db.New(dbtx), release: release}
}

func (s *pgSession) FindCustomerByPhone(ctx context.Context, phone PhoneIdentity) (Customer, error) {
	row, err := s.q.GetCustomerByPhone(ctx, db.GetCustomerByPhoneParams{
		PhoneNumber: phone.NationalNumber,
		CountryCode: phone.CountryCode,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, storeErr("find customer", err)
	}
	return customerFromRow(row), nil
}

func (s *pgSession) InsertCustomer(ctx context.Context, c Customer) (Customer, error) {
	row, err := s.q.InsertCustomer(ctx, db.InsertCustomerParams{
		Name:           ToPgText(c.Name),
		Email:          ToPgText(c.Email),
		PhoneNumber:    c.Phone.NationalNumber,
		CountryCode:    c.Phone.CountryCode,
		CustomerStatus: ToPgText(c.Status),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict on the phone identity: return the row that won.
		return s.FindCustomerByPhone(ctx, c.Phone)
	}
	if err != nil {
		return Customer{}, storeErr("insert customer", err)
	}
	return customerFromRow(row), nil
}

func (s *pgSession) FindLeadByKey(ctx context.Context, key LeadKey) (Lead, error) {
	row, err := s.q.GetLeadByKey(ctx, db.GetLeadByKeyParams{
		LeadDate:    key.LeadDate,
		PhoneNumber: key.Phone.NationalNumber,
		CountryCode: key.Phone.CountryCode,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, storeErr("find lead", err)
	}
	return leadFromRow(row), nil
}

func (s *pgSession) InsertLead(ctx context.Context, l Lead) (Lead, error) {
	row, err := s.q.InsertLead(ctx, db.InsertLeadParams{
		LeadDate:        l.LeadDate,
		AdCopy:          ToPgText(l.AdCopy),
		AdSet:           ToPgText(l.AdSet),
		LeadType:        ToPgText(l.LeadType),
		Sources:         ToPgText(l.Sources),
		StartDate:       ToPgText(l.StartDate),
		PeopleCount:     ToPgText(l.PeopleCount),
		Name:            ToPgText(l.Name),
		Email:           ToPgText(l.Email),
		PhoneNumber:     l.Phone.NationalNumber,
		CountryCode:     l.Phone.CountryCode,
		Origincity:      ToPgText(l.OriginCity),
		Channel:         ToPgText(l.Channel),
		Destination:     ToPgText(l.Destination),
		PrimarySource:   ToPgText(l.PrimarySource),
		SecondarySource: ToPgText(l.SecondarySource),
		CustomerID:      pgtype.Int8{Int64: l.CustomerID, Valid: l.CustomerID != 0},
		CustomerStatus:  ToPgText(l.CustomerStatus),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrDuplicateLead
	}
	if err != nil {
		return Lead{}, storeErr("insert lead", err)
	}
	l.ID = row.ID
	l.CreatedAt = FromPgTimestamptz(row.CreatedAt)
	return l, nil
}

func (s *pgSession) UpdateLeadCustomerStatus(ctx context.Context, leadID int64, status string) error {
	n, err := s.q.UpdateLeadCustomerStatus(ctx, db.UpdateLeadCustomerStatusParams{
		CustomerStatus: ToPgText(status),
		ID:             leadID,
	})
	if err != nil {
		return storeErr("update lead status", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgSession) Release() {
	if s.release != nil {
		s.release()
		s.release = nil
	}
}

func customerFromRow(r db.Customer) Customer {
	return Customer{
		ID:    r.ID,
		Name:  FromPgText(r.Name),
		Email: FromPgText(r.Email),
		Phone: PhoneIdentity{
			CountryCode:    r.CountryCode,
			NationalNumber: r.PhoneNumber,
		},
		Status: FromPgText(r.CustomerStatus),
	}
}

func leadFromRow(r db.AddLead) Lead {
	return Lead{
		ID:          r.ID,
		LeadDate:    r.LeadDate,
		AdCopy:      FromPgText(r.AdCopy),
		AdSet:       FromPgText(r.AdSet),
		LeadType:    FromPgText(r.LeadType),
		Sources:     FromPgText(r.Sources),
		StartDate:   FromPgText(r.StartDate),
		PeopleCount: FromPgText(r.PeopleCount),
		Name:        FromPgText(r.Name),
		Email:       FromPgText(r.Email),
		Phone: PhoneIdentity{
			CountryCode:    r.CountryCode,
			NationalNumber: r.PhoneNumber,
		},
		OriginCity:      FromPgText(r.Origincity),
		Channel:         FromPgText(r.Channel),
		Destination:     FromPgText(r.Destination),
		PrimarySource:   FromPgText(r.PrimarySource),
		SecondarySource: FromPgText(r.SecondarySource),
		CustomerID:      r.CustomerID.Int64,
		CustomerStatus:  FromPgText(r.CustomerStatus),
		CreatedAt:       FromPgTimestamptz(r.CreatedAt),
	}
}
