package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/securebase/internal/database"
)

// FeedbackRepository provides PostgreSQL-backed feedback storage
type FeedbackRepository struct {
	pool *Pool
}

// NewFeedbackRepository creates a new PostgreSQL feedback repository
func NewFeedbackRepository(pool *Pool) *FeedbackRepository {
	return &FeedbackRepository{pool: pool}
}

// SaveFeedback inserts a submission
func (r *FeedbackRepository) SaveFeedback(ctx context.Context, fb *database.StoredFeedback) error {
	query := `
		INSERT INTO feedback (email, feedback_type, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query, fb.Email, string(fb.Type), fb.Message).Scan(&fb.ID, &fb.CreatedAt)
	if err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}

// ListFeedback returns the most recent submissions first
func (r *FeedbackRepository) ListFeedback(ctx context.Context, limit int) ([]database.StoredFeedback, error) {
	if limit <= 0 {
		limit = database.DefaultListLimit
	}
	query := `
		SELECT id, email, feedback_type, message, created_at
		FROM feedback
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []database.StoredFeedback
	for rows.Next() {
		var fb database.StoredFeedback
		var fbType string
		if err := rows.Scan(&fb.ID, &fb.Email, &fbType, &fb.Message, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		fb.Type = database.FeedbackType(fbType)
		out = append(out, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return out, nil
}

// CountFeedback returns the number of submissions
func (r *FeedbackRepository) CountFeedback(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count feedback: %w", err)
	}
	return n, nil
}

var _ database.FeedbackWriter = (*FeedbackRepository)(nil)
