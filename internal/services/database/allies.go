// Package database provides database operations for the Bel Energy engine.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"bel-energy-engine/internal/models"
)

// AllyRepository handles ally database operations.
type AllyRepository struct {
	db *DB
}

// NewAllyRepository creates a new ally repository.
func NewAllyRepository(db *DB) *AllyRepository {
	return &AllyRepository{db: db}
}

const allySelectColumns = `
	a.id, a.user_id, u.first_name, u.last_name, u.email,
	a.professional_type, a.rating, a.projects_completed, a.academy_level,
	a.commission_rate, a.specializations, a.service_areas, a.availability_status,
	(SELECT COUNT(*) FROM projects p
		WHERE p.ally_id = a.id AND p.status IN ('APPROVED', 'IN_PROGRESS')) AS active_projects,
	a.created_at, a.updated_at`

func scanAlly(row pgx.Row) (*models.Ally, error) {
	var ally models.Ally
	var academyLevel, availability string
	var specializations, serviceAreas []string

	err := row.Scan(
		&ally.ID,
		&ally.UserID,
		&ally.FirstName,
		&ally.LastName,
		&ally.Email,
		&ally.ProfessionalType,
		&ally.Rating,
		&ally.ProjectsCompleted,
		&academyLevel,
		&ally.CommissionRate,
		&specializations,
		&serviceAreas,
		&availability,
		&ally.ActiveProjects,
		&ally.CreatedAt,
		&ally.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ally.AcademyLevel = models.AcademyLevel(academyLevel)
	ally.AvailabilityStatus = models.AvailabilityStatus(availability)
	ally.Specializations = make([]models.Specialization, 0, len(specializations))
	for _, s := range specializations {
		ally.Specializations = append(ally.Specializations, models.Specialization(s))
	}
	ally.ServiceAreas = serviceAreas

	return &ally, nil
}

// GetByID retrieves an ally by ID.
func (r *AllyRepository) GetByID(ctx context.Context, id string) (*models.Ally, error) {
	query := `
		SELECT ` + allySelectColumns + `
		FROM aliados a
		JOIN users u ON u.id = a.user_id
		WHERE a.id = $1`

	ally, err := scanAlly(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrAllyNotFound
		}
		return nil, fmt.Errorf("failed to get ally: %w", err)
	}

	return ally, nil
}

// FindEligible returns available allies whose specialization set contains the
// requested specialization and whose service-area set contains the requested
// area, together with each ally's current in-flight project count. An empty
// result is a valid, non-error outcome.
func (r *AllyRepository) FindEligible(ctx context.Context, specialization models.Specialization, serviceArea string) ([]*models.Ally, error) {
	query := `
		SELECT ` + allySelectColumns + `
		FROM aliados a
		JOIN users u ON u.id = a.user_id
		WHERE $1 = ANY(a.specializations)
		  AND $2 = ANY(a.service_areas)
		  AND a.availability_status = 'AVAILABLE'`

	return r.queryAllies(ctx, query, string(specialization), serviceArea)
}

// FindAvailable returns eligible allies holding at least INTERMEDIATE academy
// level, ordered by rating, completed projects and academy rank.
func (r *AllyRepository) FindAvailable(ctx context.Context, specialization models.Specialization, serviceArea string, limit int) ([]*models.Ally, error) {
	if limit <= 0 {
		limit = 5
	}

	query := `
		SELECT ` + allySelectColumns + `
		FROM aliados a
		JOIN users u ON u.id = a.user_id
		WHERE $1 = ANY(a.specializations)
		  AND $2 = ANY(a.service_areas)
		  AND a.availability_status = 'AVAILABLE'
		  AND a.academy_level IN ('INTERMEDIATE', 'ADVANCED', 'EXPERT')
		ORDER BY a.rating DESC, a.projects_completed DESC,
			CASE a.academy_level
				WHEN 'EXPERT' THEN 3
				WHEN 'ADVANCED' THEN 2
				WHEN 'INTERMEDIATE' THEN 1
				ELSE 0
			END DESC
		LIMIT $3`

	return r.queryAllies(ctx, query, string(specialization), serviceArea, limit)
}

func (r *AllyRepository) queryAllies(ctx context.Context, query string, args ...interface{}) ([]*models.Ally, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query allies: %w", err)
	}
	defer rows.Close()

	allies := make([]*models.Ally, 0)
	for rows.Next() {
		ally, err := scanAlly(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ally: %w", err)
		}
		allies = append(allies, ally)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read allies: %w", err)
	}

	return allies, nil
}

// MarkBusy flips the ally to BUSY with a conditional update. The WHERE clause
// on the current status makes the read-decide-write sequence atomic: if a
// concurrent assignment claimed the ally first, zero rows are affected and
// ErrAllyUnavailable is returned instead of double-booking.
func (r *AllyRepository) MarkBusy(ctx context.Context, id string) error {
	query := `
		UPDATE aliados
		SET availability_status = 'BUSY', updated_at = $2
		WHERE id = $1 AND availability_status = 'AVAILABLE'`

	affected, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark ally busy: %w", err)
	}
	if affected == 0 {
		return models.ErrAllyUnavailable
	}

	return nil
}

// MarkAvailable flips the ally back to AVAILABLE.
func (r *AllyRepository) MarkAvailable(ctx context.Context, id string) error {
	query := `
		UPDATE aliados
		SET availability_status = 'AVAILABLE', updated_at = $2
		WHERE id = $1`

	affected, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark ally available: %w", err)
	}
	if affected == 0 {
		return models.ErrAllyNotFound
	}

	return nil
}

// UpdateAcademyLevel sets a new academy level for the ally.
func (r *AllyRepository) UpdateAcademyLevel(ctx context.Context, id string, level models.AcademyLevel) error {
	if !level.IsValid() {
		return models.ErrInvalidAcademyLevel
	}

	query := `
		UPDATE aliados
		SET academy_level = $2, updated_at = $3
		WHERE id = $1`

	affected, err := r.db.ExecContext(ctx, query, id, string(level), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update academy level: %w", err)
	}
	if affected == 0 {
		return models.ErrAllyNotFound
	}

	return nil
}
