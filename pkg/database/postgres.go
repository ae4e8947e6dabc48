package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/sma-results-api/pkg/config"
)

// NewPostgres returns a configured PostgreSQL client.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// scoreRecordsSchema mirrors the columns read and written by the result repository.
const scoreRecordsSchema = `CREATE TABLE IF NOT EXISTS score_records (
    id UUID PRIMARY KEY,
    student_id TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    admission_number TEXT NOT NULL DEFAULT '',
    student_name TEXT NOT NULL DEFAULT '',
    class_name TEXT NOT NULL,
    subject_code TEXT NOT NULL DEFAULT '',
    subject_name TEXT NOT NULL DEFAULT '',
    term TEXT NOT NULL,
    academic_year TEXT NOT NULL,
    ca_score NUMERIC(5,2),
    exam_score NUMERIC(5,2),
    total_score NUMERIC(5,2),
    grade TEXT NOT NULL DEFAULT '',
    remarks TEXT NOT NULL DEFAULT '',
    teacher_name TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    CONSTRAINT score_records_scope_key UNIQUE (student_id, subject_id, term, academic_year),
    CONSTRAINT score_records_ca_range CHECK (ca_score IS NULL OR (ca_score >= 0 AND ca_score <= 30)),
    CONSTRAINT score_records_exam_range CHECK (exam_score IS NULL OR (exam_score >= 0 AND exam_score <= 70))
);
CREATE INDEX IF NOT EXISTS score_records_class_scope_idx ON score_records (class_name, term, academic_year);`

// EnsureSchema creates the score_records table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, scoreRecordsSchema); err != nil {
		return fmt.Errorf("ensure score_records schema: %w", err)
	}
	return nil
}
