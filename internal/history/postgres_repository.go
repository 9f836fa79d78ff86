package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// The table is created by migrations/001_prediction_records.sql.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new PostgreSQL history repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectColumns = `
	id, created_at, location,
	input_location, input_monthly_bill, input_system_size_kw,
	system_size_kw, recommended_system_size_kw, annual_generation,
	output_category, payback_period, annual_savings, roi_percent, co2_offset
`

const (
	insertRecordSQL = `
		INSERT INTO prediction_records (` + selectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	// trimRecordsSQL keeps the $1 newest rows in ListRecent order.
	trimRecordsSQL = `
		DELETE FROM prediction_records
		WHERE id NOT IN (
			SELECT id FROM prediction_records
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		)
	`

	listRecordsSQL = `SELECT ` + selectColumns + `
		FROM prediction_records
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
)

// Save inserts the record and trims the table to the MaxRecords newest rows
// in one transaction. Concurrent writers may interleave; only the bound
// on the row count is guaranteed.
func (r *PostgresRepository) Save(ctx context.Context, record *Record) error {
	if record.ID == "" {
		record.ID = NewID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p := record.Prediction
	_, err = tx.Exec(ctx, insertRecordSQL,
		record.ID, record.CreatedAt, record.Location,
		record.Input.Location, record.Input.MonthlyBill, record.Input.SystemSizeKW,
		p.SystemSizeKW, p.RecommendedSystemSizeKW, p.AnnualGeneration,
		p.OutputCategory, p.PaybackPeriod, p.AnnualSavings, p.RoiPercent, p.CO2Offset,
	)
	if err != nil {
		return fmt.Errorf("inserting prediction record: %w", err)
	}

	if _, err := tx.Exec(ctx, trimRecordsSQL, MaxRecords); err != nil {
		return fmt.Errorf("trimming prediction records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing prediction record: %w", err)
	}
	return nil
}

// ListRecent returns up to limit records, newest first.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := r.pool.Query(ctx, listRecordsSQL, NormalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Latest returns the newest record.
func (r *PostgresRepository) Latest(ctx context.Context) (*Record, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx, listRecordsSQL, 1))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRecords
		}
		return nil, err
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.CreatedAt,
		&rec.Location,
		&rec.Input.Location,
		&rec.Input.MonthlyBill,
		&rec.Input.SystemSizeKW,
		&rec.Prediction.SystemSizeKW,
		&rec.Prediction.RecommendedSystemSizeKW,
		&rec.Prediction.AnnualGeneration,
		&rec.Prediction.OutputCategory,
		&rec.Prediction.PaybackPeriod,
		&rec.Prediction.AnnualSavings,
		&rec.Prediction.RoiPercent,
		&rec.Prediction.CO2Offset,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
