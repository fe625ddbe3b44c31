// Package database contains the parameterized queries for the customers and
// addleads tables.
package database

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the DDL for both tables and their identity indexes.
//
//go:embed schema.sql
var Schema string

// DBTX is the interface for database operations.
// Satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Queries runs the lead sync statements against a DBTX.
type Queries struct {
	db DBTX
}

// New returns Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// ApplySchema creates missing tables and indexes.
func (q *Queries) ApplySchema(ctx context.Context) error {
	_, err := q.db.Exec(ctx, Schema)
	return err
}
