package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// AddLead is a row of the addleads table.
type AddLead struct {
	ID              int64
	LeadDate        string
	AdCopy          pgtype.Text
	AdSet           pgtype.Text
	LeadType        pgtype.Text
	Sources         pgtype.Text
	StartDate       pgtype.Text
	PeopleCount     pgtype.Text
	Name            pgtype.Text
	Email           pgtype.Text
	PhoneNumber     string
	CountryCode     string
	Origincity      pgtype.Text
	Channel         pgtype.Text
	Destination     pgtype.Text
	PrimarySource   pgtype.Text
	SecondarySource pgtype.Text
	CustomerID      pgtype.Int8
	CustomerStatus  pgtype.Text
	CreatedAt       pgtype.Timestamptz
}

const addLeadColumns = `id, lead_date, ad_copy, ad_set, lead_type, sources, start_date, people_count,
name, email, phone_number, country_code, origincity, channel, destination,
primary_source, secondary_source, customer_id, customer_status, created_at`

func scanAddLead(row interface{ Scan(...any) error }) (AddLead, error) {
	var i AddLead
	err := row.Scan(
		&i.ID,
		&i.LeadDate,
		&i.AdCopy,
		&i.AdSet,
		&i.LeadType,
		&i.Sources,
		&i.StartDate,
		&i.PeopleCount,
		&i.Name,
		&i.Email,
		&i.PhoneNumber,
		&i.CountryCode,
		&i.Origincity,
		&i.Channel,
		&i.Destination,
		&i.PrimarySource,
		&i.SecondarySource,
		&i.CustomerID,
		&i.CustomerStatus,
		&i.CreatedAt,
	)
	return i, err
}

const getLeadByKey = `-- name: GetLeadByKey :one
SELECT ` + addLeadColumns + `
FROM addleads
WHERE lead_date = $1 AND phone_number = $2 AND country_code = $3
LIMIT 1`

// GetLeadByKeyParams is the duplicate-detection key.
type GetLeadByKeyParams struct {
	LeadDate    string
	PhoneNumber string
	CountryCode string
}

// GetLeadByKey returns pgx.ErrNoRows when no lead matches.
func (q *Queries) GetLeadByKey(ctx context.Context, arg GetLeadByKeyParams) (AddLead, error) {
	row := q.db.QueryRow(ctx, getLeadByKey, arg.LeadDate, arg.PhoneNumber, arg.CountryCode)
	return scanAddLead(row)
}

const insertLead = `-- name: InsertLead :one
INSERT INTO addleads (
    lead_date, ad_copy, ad_set, lead_type, sources, start_date, people_count,
    name, email, phone_number, country_code, origincity, channel, destination,
    primary_source, secondary_source, customer_id, customer_status
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
)
ON CONFLICT (lead_date, phone_number, country_code) DO NOTHING
RETURNING id, created_at`

// InsertLeadParams holds the new lead columns.
type InsertLeadParams struct {
	LeadDate        string
	AdCopy          pgtype.Text
	AdSet           pgtype.Text
	LeadType        pgtype.Text
	Sources         pgtype.Text
	StartDate       pgtype.Text
	PeopleCount     pgtype.Text
	Name            pgtype.Text
	Email           pgtype.Text
	PhoneNumber     string
	CountryCode     string
	Origincity      pgtype.Text
	Channel         pgtype.Text
	Destination     pgtype.Text
	PrimarySource   pgtype.Text
	SecondarySource pgtype.Text
	CustomerID      pgtype.Int8
	CustomerStatus  pgtype.Text
}

// InsertLeadRow is the generated part of a new lead.
type InsertLeadRow struct {
	ID        int64
	CreatedAt pgtype.Timestamptz
}

// InsertLead returns pgx.ErrNoRows when the lead key already exists.
func (q *Queries) InsertLead(ctx context.Context, arg InsertLeadParams) (InsertLeadRow, error) {
	row := q.db.QueryRow(ctx, insertLead,
		arg.LeadDate,
		arg.AdCopy,
		arg.AdSet,
		arg.LeadType,
		arg.Sources,
		arg.StartDate,
		arg.PeopleCount,
		arg.Name,
		arg.Email,
		arg.PhoneNumber,
		arg.CountryCode,
		arg.Origincity,
		arg.Channel,
		arg.Destination,
		arg.PrimarySource,
		arg.SecondarySource,
		arg.CustomerID,
		arg.CustomerStatus,
	)
	var i InsertLeadRow
	err := row.Scan(&i.ID, &i.CreatedAt)
	return i, err
}

const updateLeadCustomerStatus = `-- name: UpdateLeadCustomerStatus :execrows
UPDATE addleads SET customer_status = $1 WHERE id = $2`

// UpdateLeadCustomerStatusParams targets one lead.
type UpdateLeadCustomerStatusParams struct {
	CustomerStatus pgtype.Text
	ID             int64
}

// UpdateLeadCustomerStatus returns the number of rows updated.
func (q *Queries) UpdateLeadCustomerStatus(ctx context.Context, arg UpdateLeadCustomerStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateLeadCustomerStatus, arg.CustomerStatus, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listLeads = `-- name: ListLeads :many
SELECT ` + addLeadColumns + `
FROM addleads
ORDER BY created_at DESC, id DESC
LIMIT $1`

// ListLeads returns up to limit leads, most recent first.
func (q *Queries) ListLeads(ctx context.Context, limit int32) ([]AddLead, error) {
	rows, err := q.db.Query(ctx, listLeads, limit)
	if err != nil {
		return nil, err
	}
	return collectAddLeads(rows)
}

const listAllLeads = `-- name: ListAllLeads :many
SELECT ` + addLeadColumns + `
FROM addleads
ORDER BY created_at DESC, id DESC`

// ListAllLeads returns every lead, most recent first.
func (q *Queries) ListAllLeads(ctx context.Context) ([]AddLead, error) {
	rows, err := q.db.Query(ctx, listAllLeads)
	if err != nil {
		return nil, err
	}
	return collectAddLeads(rows)
}

func collectAddLeads(rows pgx.Rows) ([]AddLead, error) {
	defer rows.Close()

	var items []AddLead
	for rows.Next() {
		i, err := scanAddLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
