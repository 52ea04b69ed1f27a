// Package database provides database operations for the Bel Energy engine.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"bel-energy-engine/internal/models"
)

// ProjectRepository handles project database operations.
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// AssignAlly sets the project's ally reference and moves it to APPROVED.
func (r *ProjectRepository) AssignAlly(ctx context.Context, projectID, allyID string) error {
	query := `
		UPDATE projects
		SET ally_id = $2, status = 'APPROVED', updated_at = $3
		WHERE id = $1`

	affected, err := r.db.ExecContext(ctx, query, projectID, allyID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to assign ally to project: %w", err)
	}
	if affected == 0 {
		return models.ErrProjectNotFound
	}

	return nil
}

// Complete finalizes a project in a single transaction: the project moves to
// COMPLETED, its completed transactions are summed as the commission base, and
// the ally gets the completion recorded and returns to AVAILABLE. A failure at
// any step rolls back every write, so the project is never COMPLETED with the
// ally stranded in BUSY. Returns the summed transaction amount.
func (r *ProjectRepository) Complete(ctx context.Context, projectID, allyID string, rating *float64) (float64, error) {
	var total float64

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		now := time.Now().UTC()

		result, err := tx.Exec(ctx, `
			UPDATE projects
			SET status = 'COMPLETED', completion_date = $3, updated_at = $3
			WHERE id = $1 AND ally_id = $2`,
			projectID, allyID, now)
		if err != nil {
			return fmt.Errorf("failed to complete project: %w", err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrProjectNotAssigned
		}

		if err := tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(t.amount), 0)
			FROM transactions t
			WHERE t.project_id = $1 AND t.status = 'COMPLETED'`,
			projectID).Scan(&total); err != nil {
			return fmt.Errorf("failed to sum project transactions: %w", err)
		}

		result, err = tx.Exec(ctx, `
			UPDATE aliados
			SET projects_completed = projects_completed + 1,
			    availability_status = 'AVAILABLE',
			    rating = COALESCE($2, rating),
			    updated_at = $3
			WHERE id = $1`,
			allyID, rating, now)
		if err != nil {
			return fmt.Errorf("failed to record ally completion: %w", err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrAllyNotFound
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}
