// Package db provides the PostgreSQL-backed results store. Repositories are
// written against small interfaces satisfied by *pgxpool.Pool so they can be
// exercised without a database.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TxBeginner opens transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Pinger checks connectivity. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}
