// Package database provides database operations for the Bel Energy engine.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bel-energy-engine/internal/models"
)

// UserRepository handles user database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetCreditProfile assembles the aggregated history the BelScore engine
// consumes: transaction and project counts, contact fields and activity
// timestamps. A missing user surfaces as ErrUserNotFound, never as a zero
// profile.
func (r *UserRepository) GetCreditProfile(ctx context.Context, userID string) (*models.CreditProfile, error) {
	query := `
		SELECT
			u.id,
			u.user_type,
			COALESCE(u.first_name, ''),
			COALESCE(u.last_name, ''),
			COALESCE(u.phone, ''),
			COALESCE(u.location, ''),
			COALESCE(u.referral_code, ''),
			u.preferences IS NOT NULL,
			(SELECT COUNT(*) FROM transactions t WHERE t.user_id = u.id),
			(SELECT COUNT(*) FROM transactions t WHERE t.user_id = u.id AND t.status = 'COMPLETED'),
			(SELECT COUNT(*) FROM projects p WHERE p.client_id = u.id AND p.status = 'COMPLETED'),
			u.created_at,
			u.updated_at
		FROM users u
		WHERE u.id = $1`

	var profile models.CreditProfile
	var userType string

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID,
		&userType,
		&profile.FirstName,
		&profile.LastName,
		&profile.Phone,
		&profile.Location,
		&profile.ReferralCode,
		&profile.HasPreferences,
		&profile.TransactionCount,
		&profile.CompletedTransactions,
		&profile.CompletedProjects,
		&profile.CreatedAt,
		&profile.LastActivityAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get credit profile: %w", err)
	}

	profile.UserType = models.UserType(userType)

	return &profile, nil
}

// GetEmail returns the email address for a user.
func (r *UserRepository) GetEmail(ctx context.Context, userID string) (string, error) {
	var email string
	err := r.db.QueryRowContext(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", models.ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get user email: %w", err)
	}
	return email, nil
}
