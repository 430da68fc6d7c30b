// Package semantic maps user utterances to catalog templates using
// vector similarity. Suggestions only rank templates from the
// immutable catalog; they can never introduce new query text.
package semantic

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	apperrors "github.com/impactlens/nlq-engine/internal/errors"
)

// TemplateSuggestion is a catalog template ranked by similarity to an
// utterance embedding.
type TemplateSuggestion struct {
	TemplateID string  `json:"template_id"`
	Utterance  string  `json:"utterance"`
	Similarity float64 `json:"similarity"`
}

// SuggestionStore stores utterance embeddings and serves
// nearest-neighbour template lookups.
type SuggestionStore struct {
	db *sql.DB
}

// NewSuggestionStore creates a suggestion store over an open pool
func NewSuggestionStore(db *sql.DB) *SuggestionStore {
	return &SuggestionStore{db: db}
}

// Ping tests the database connection
func (ss *SuggestionStore) Ping(ctx context.Context) error {
	return ss.db.PingContext(ctx)
}

// StoreUtterance records an utterance embedding resolved to a template.
// Repeated utterances update the existing row.
func (ss *SuggestionStore) StoreUtterance(ctx context.Context, utterance string, embedding []float32, templateID string) error {
	vector := pgvector.NewVector(embedding)

	query := `
		INSERT INTO utterance_embeddings (id, utterance, embedding, template_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (utterance) DO UPDATE SET
			embedding = $3,
			template_id = $4,
			created_at = $5
	`

	_, err := ss.db.ExecContext(ctx, query,
		uuid.New().String(),
		utterance,
		vector,
		templateID,
		time.Now().UTC(),
	)
	if err != nil {
		return apperrors.NewDatabaseQueryError(err, "store utterance embedding")
	}

	return nil
}

// SuggestTemplates finds templates whose stored utterances are most
// similar to the given embedding, using cosine similarity.
func (ss *SuggestionStore) SuggestTemplates(ctx context.Context, embedding []float32, limit int) ([]TemplateSuggestion, error) {
	if limit <= 0 || limit > 20 {
		limit = 5
	}

	vector := pgvector.NewVector(embedding)

	query := `
		SELECT template_id, utterance,
		       1 - (embedding <=> $1) AS similarity
		FROM utterance_embeddings
		WHERE 1 - (embedding <=> $1) > 0.7
		ORDER BY embedding <=> $1
		LIMIT $2
	`

	rows, err := ss.db.QueryContext(ctx, query, vector, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryError(err, "suggest templates")
	}
	defer rows.Close()

	var suggestions []TemplateSuggestion
	for rows.Next() {
		var s TemplateSuggestion
		if err := rows.Scan(&s.TemplateID, &s.Utterance, &s.Similarity); err != nil {
			return nil, apperrors.NewDatabaseQueryError(err, "scan suggestion")
		}
		suggestions = append(suggestions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseQueryError(err, "iterate suggestions")
	}

	return suggestions, nil
}

// DeleteTemplateUtterances removes stored utterances for a template,
// used when a template is retired from the catalog at deploy time.
func (ss *SuggestionStore) DeleteTemplateUtterances(ctx context.Context, templateID string) error {
	_, err := ss.db.ExecContext(ctx, `DELETE FROM utterance_embeddings WHERE template_id = $1`, templateID)
	if err != nil {
		return apperrors.NewDatabaseQueryError(err, "delete template utterances")
	}
	return nil
}
