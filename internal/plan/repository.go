package plan

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is a database-backed repository for saved meal plans. Plans
// are stored as opaque JSON blobs keyed by a generated ID and the owning
// user's ID.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save inserts a new meal plan for the given user and returns its ID.
func (r *Repository) Save(ctx context.Context, userID string, p GeneratedPlan) (string, error) {
	planJSON, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan to JSON: %w", err)
	}

	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO meal_plans (id, user_id, plan_data, created_at) VALUES (?, ?, ?, ?)`,
		id, userID, string(planJSON), time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert meal plan: %w", err)
	}
	return id, nil
}

// ListByUser retrieves all saved plans for a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]SavedPlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, plan_data, created_at FROM meal_plans WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans for user %s: %w", userID, err)
	}
	defer rows.Close()

	var plans []SavedPlan
	for rows.Next() {
		var (
			sp   SavedPlan
			data string
		)
		if err := rows.Scan(&sp.ID, &sp.UserID, &data, &sp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal plan row: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &sp.Plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan %s: %w", sp.ID, err)
		}
		plans = append(plans, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meal plan rows: %w", err)
	}
	return plans, nil
}

// Delete removes one plan by ID, scoped to the owning user. Deleting a
// plan that no longer exists is not an error.
func (r *Repository) Delete(ctx context.Context, userID, planID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM meal_plans WHERE id = ? AND user_id = ?`,
		planID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete meal plan %s: %w", planID, err)
	}
	return nil
}
