// Package audit persists a record of every query generation attempt.
// Raw SQL is withheld for critical safety failures so the audit trail
// never becomes a library of working injection payloads.
package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "github.com/impactlens/nlq-engine/internal/errors"
	"github.com/impactlens/nlq-engine/internal/guardrails"
)

// Entry is one generation attempt in the audit log
type Entry struct {
	ID              string    `json:"id"`
	CompanyID       string    `json:"company_id"`
	TemplateID      string    `json:"template_id"`
	Passed          bool      `json:"passed"`
	OverallSeverity string    `json:"overall_severity"`
	ViolationCodes  []string  `json:"violation_codes,omitempty"`
	SQLText         string    `json:"sql_text,omitempty"`
	CorrelationID   string    `json:"correlation_id,omitempty"`
	DurationMs      int64     `json:"duration_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store writes and reads generation audit entries in Postgres
type Store struct {
	db *sql.DB
}

// NewStore creates an audit store over an open connection pool
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record persists one generation attempt. The rendered SQL is dropped
// for critical-severity failures before it reaches storage.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.OverallSeverity == string(guardrails.SeverityCritical) {
		entry.SQLText = ""
	}

	query := `
		INSERT INTO generation_audit
			(id, company_id, template_id, passed, overall_severity, violation_codes, sql_text, correlation_id, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.CompanyID,
		entry.TemplateID,
		entry.Passed,
		entry.OverallSeverity,
		pq.Array(entry.ViolationCodes),
		entry.SQLText,
		entry.CorrelationID,
		entry.DurationMs,
		entry.CreatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseQueryError(err, "record audit entry")
	}

	return nil
}

// ListByCompany returns the most recent audit entries for one tenant
func (s *Store) ListByCompany(ctx context.Context, companyID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `
		SELECT id, company_id, template_id, passed, overall_severity, violation_codes, sql_text, correlation_id, duration_ms, created_at
		FROM generation_audit
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, companyID, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryError(err, "list audit entries")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var codes pq.StringArray
		var sqlText, correlationID sql.NullString

		err := rows.Scan(
			&entry.ID,
			&entry.CompanyID,
			&entry.TemplateID,
			&entry.Passed,
			&entry.OverallSeverity,
			&codes,
			&sqlText,
			&correlationID,
			&entry.DurationMs,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.NewDatabaseQueryError(err, "scan audit entry")
		}

		entry.ViolationCodes = codes
		entry.SQLText = sqlText.String
		entry.CorrelationID = correlationID.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseQueryError(err, "iterate audit entries")
	}

	return entries, nil
}

// CountViolations returns how many failed generations a tenant has had
// since the given time. Used for abuse reporting.
func (s *Store) CountViolations(ctx context.Context, companyID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM generation_audit
		WHERE company_id = $1 AND passed = false AND created_at >= $2
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, companyID, since).Scan(&count); err != nil {
		return 0, apperrors.NewDatabaseQueryError(err, "count violations")
	}

	return count, nil
}
