package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// Customer is a row of the customers table.
type Customer struct {
	ID             int64
	Name           pgtype.Text
	Email          pgtype.Text
	PhoneNumber    string
	CountryCode    string
	CustomerStatus pgtype.Text
}

const getCustomerByPhone = `-- name: GetCustomerByPhone :one
SELECT id, name, email, phone_number, country_code, customer_status
FROM customers
WHERE phone_number = $1 AND country_code = $2
LIMIT 1`

// GetCustomerByPhoneParams is the phone identity to look up.
type GetCustomerByPhoneParams struct {
	PhoneNumber string
	CountryCode string
}

// GetCustomerByPhone returns pgx.ErrNoRows when no customer matches.
func (q *Queries) GetCustomerByPhone(ctx context.Context, arg GetCustomerByPhoneParams) (Customer, error) {
	row := q.db.QueryRow(ctx, getCustomerByPhone, arg.PhoneNumber, arg.CountryCode)
	var i Customer
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.PhoneNumber,
		&i.CountryCode,
		&i.CustomerStatus,
	)
	return i, err
}

const insertCustomer = `-- name: InsertCustomer :one
INSERT INTO customers (name, email, phone_number, country_code, customer_status)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (phone_number, country_code) DO NOTHING
RETURNING id, name, email, phone_number, country_code, customer_status`

// InsertCustomerParams holds the new customer columns.
type InsertCustomerParams struct {
	Name           pgtype.Text
	Email          pgtype.Text
	PhoneNumber    string
	CountryCode    string
	CustomerStatus pgtype.Text
}

// InsertCustomer returns pgx.ErrNoRows when the phone identity already
// exists.
func (q *Queries) InsertCustomer(ctx context.Context, arg InsertCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, insertCustomer,
		arg.Name,
		arg.Email,
		arg.PhoneNumber,
		arg.CountryCode,
		arg.CustomerStatus,
	)
	var i Customer
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.PhoneNumber,
		&i.CountryCode,
		&i.CustomerStatus,
	)
	return i, err
}
