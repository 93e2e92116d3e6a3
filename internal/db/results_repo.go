package db

import (
	"context"
	"fmt"

	"weather2go/internal/types"
)

const insertResultSQL = `INSERT INTO results
	(timestamp, name, city, weather_condition, temperature, humidity, risk_score, risk_level)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// ResultRepository appends assessment outcomes to the results table. It has
// no read, update or delete path.
type ResultRepository struct {
	db TxBeginner
}

// NewResultRepository creates a ResultRepository.
func NewResultRepository(db TxBeginner) *ResultRepository {
	return &ResultRepository{db: db}
}

// Insert writes one row in its own transaction. The transaction is committed
// after the single statement and released on every path.
func (r *ResultRepository) Insert(ctx context.Context, res types.PersistedResult) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalPersistence, "failed to open results transaction", err)
	}
	// No-op after a successful commit.
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, insertResultSQL,
		res.Timestamp,
		res.Name,
		res.City,
		res.WeatherCondition,
		res.Temperature,
		res.Humidity,
		res.RiskScore,
		res.RiskLevel,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalPersistence, "failed to save result", err)
	}
	if tag.RowsAffected() != 1 {
		return types.NewAppError(
			types.ErrCodeInternalPersistence,
			fmt.Sprintf("expected 1 result row, wrote %d", tag.RowsAffected()),
			nil,
		)
	}

	if err := tx.Commit(ctx); err != nil {
		return types.NewAppError(types.ErrCodeInternalPersistence, "failed to commit result", err)
	}
	return nil
}

// Record implements the assessment result sink.
func (r *ResultRepository) Record(ctx context.Context, res types.PersistedResult) error {
	return r.Insert(ctx, res)
}

// Name identifies the sink in logs.
func (r *ResultRepository) Name() string {
	return "postgres"
}
