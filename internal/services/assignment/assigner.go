// Package assignment implements the ally auto-assignment scoring pipeline.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bel-energy-engine/internal/models"
	"bel-energy-engine/internal/utils"
)

// AllyStore is the candidate-pool access the assignment pipeline needs.
type AllyStore interface {
	GetByID(ctx context.Context, id string) (*models.Ally, error)
	FindEligible(ctx context.Context, specialization models.Specialization, serviceArea string) ([]*models.Ally, error)
	FindAvailable(ctx context.Context, specialization models.Specialization, serviceArea string, limit int) ([]*models.Ally, error)
	// MarkBusy must be a conditional update returning models.ErrAllyUnavailable
	// when the ally was claimed concurrently.
	MarkBusy(ctx context.Context, id string) error
	MarkAvailable(ctx context.Context, id string) error
	UpdateAcademyLevel(ctx context.Context, id string, level models.AcademyLevel) error
}

// ProjectStore persists assignment decisions.
type ProjectStore interface {
	AssignAlly(ctx context.Context, projectID, allyID string) error
	// Complete must finalize the project, the commission base and the ally's
	// completion record as one atomic unit, returning the summed completed
	// transaction amount. A failed completion leaves no partial state.
	Complete(ctx context.Context, projectID, allyID string, rating *float64) (float64, error)
}

// Notifier delivers assignment notifications. Implementations must tolerate
// being called best-effort: failures are logged, never fatal.
type Notifier interface {
	NotifyProjectAssigned(ctx context.Context, projectID string, ally *models.Ally, score float64) error
	NotifyAssignmentFailed(ctx context.Context, projectID string) error
}

// AuditArchiver stores the full ranked decision for later review.
type AuditArchiver interface {
	ArchiveAssignment(ctx context.Context, result *models.AssignmentResult) error
}

// Service runs the eligibility filter, candidate scorer and assignment
// selector. All collaborators are injected once at construction; the service
// holds no mutable state of its own.
type Service struct {
	allies    AllyStore
	projects  ProjectStore
	notifier  Notifier
	archiver  AuditArchiver
	threshold float64
}

// Option configures optional collaborators on the Service.
type Option func(*Service)

// WithNotifier attaches an assignment notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithAuditArchiver attaches a decision archiver.
func WithAuditArchiver(a AuditArchiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithThreshold overrides the minimum auto-assignment score.
func WithThreshold(threshold float64) Option {
	return func(s *Service) { s.threshold = threshold }
}

// NewService creates a new assignment service.
func NewService(allies AllyStore, projects ProjectStore, opts ...Option) *Service {
	s := &Service{
		allies:    allies,
		projects:  projects,
		threshold: 40,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindAvailable returns up to limit eligible allies holding at least
// INTERMEDIATE academy level, best first.
func (s *Service) FindAvailable(ctx context.Context, specialization models.Specialization, serviceArea string, limit int) ([]*models.Ally, error) {
	if specialization == "" {
		return nil, models.ErrEmptySpecialization
	}
	if serviceArea == "" {
		return nil, models.ErrEmptyServiceArea
	}

	return s.allies.FindAvailable(ctx, specialization, serviceArea, limit)
}

// rankCandidates scores every candidate and sorts descending by total. The
// sort is stable, so ties keep the repository order (rating, then completed
// projects).
func rankCandidates(candidates []*models.Ally, req *models.ProjectRequest) []*models.ScoredAlly {
	ranked := make([]*models.ScoredAlly, 0, len(candidates))
	for _, ally := range candidates {
		breakdown := Score(ally, req)
		ranked = append(ranked, &models.ScoredAlly{
			Ally:      ally,
			Score:     breakdown.Total,
			Breakdown: breakdown,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}

// AutoAssign runs the full pipeline for a project request: eligibility filter,
// candidate scoring, stable descending ranking, threshold check and an atomic
// claim of the winner. A result with Success=false and a nil error is the
// normal "no suitable ally" outcome. ErrAssignmentConflict is returned only
// when every above-threshold candidate was claimed by concurrent requests.
func (s *Service) AutoAssign(ctx context.Context, req *models.ProjectRequest) (*models.AssignmentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	candidates, err := s.allies.FindEligible(ctx, req.Specialization, req.ServiceArea)
	if err != nil {
		return nil, fmt.Errorf("failed to find eligible allies: %w", err)
	}

	utils.GetLogger().Info("Auto-assignment pipeline started",
		zap.String("project_id", req.ProjectID),
		zap.String("specialization", string(req.Specialization)),
		zap.String("service_area", req.ServiceArea),
		zap.String("priority", string(req.Priority)),
		zap.Int("candidates", len(candidates)),
	)

	if len(candidates) == 0 {
		return s.noMatch(ctx, req, nil, "no eligible ally found for this project"), nil
	}

	ranked := rankCandidates(candidates, req)

	if ranked[0].Score < s.threshold {
		return s.noMatch(ctx, req, ranked, "no ally met the minimum auto-assignment score"), nil
	}

	// Claim the best candidate. The conditional MarkBusy is the atomicity
	// boundary: when a concurrent request won the race, walk down the ranked
	// list to the next candidate above the threshold.
	conflicts := 0
	for _, scored := range ranked {
		if scored.Score < s.threshold {
			break
		}

		err := s.allies.MarkBusy(ctx, scored.Ally.ID)
		if errors.Is(err, models.ErrAllyUnavailable) {
			conflicts++
			utils.GetLogger().Warn("Ally claimed concurrently, trying next candidate",
				zap.String("project_id", req.ProjectID),
				zap.String("ally_id", scored.Ally.ID),
				zap.Float64("score", scored.Score),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to claim ally: %w", err)
		}

		if err := s.projects.AssignAlly(ctx, req.ProjectID, scored.Ally.ID); err != nil {
			// Release the claim so the ally is not stranded in BUSY.
			if releaseErr := s.allies.MarkAvailable(ctx, scored.Ally.ID); releaseErr != nil {
				utils.GetLogger().Error("Failed to release claimed ally",
					zap.String("ally_id", scored.Ally.ID),
					zap.Error(releaseErr),
				)
			}
			return nil, err
		}

		now := time.Now().UTC()
		result := &models.AssignmentResult{
			Success:    true,
			ProjectID:  req.ProjectID,
			BestMatch:  scored,
			Candidates: ranked,
			Message:    fmt.Sprintf("project assigned automatically to %s", scored.Ally.FullName()),
			Notes:      req.Notes,
			AssignedAt: &now,
		}

		utils.GetLogger().Info("Auto-assignment complete",
			zap.String("project_id", req.ProjectID),
			zap.String("ally_id", scored.Ally.ID),
			zap.Float64("score", scored.Score),
			zap.Int("conflicts", conflicts),
		)

		s.notifyAssigned(ctx, req.ProjectID, scored)
		s.archive(ctx, result)

		return result, nil
	}

	if conflicts > 0 {
		return nil, models.ErrAssignmentConflict
	}

	return s.noMatch(ctx, req, ranked, "no ally met the minimum auto-assignment score"), nil
}

// Assign performs a manual assignment of a specific ally, using the same
// atomic claim as the automatic path. Operator notes are carried into the
// archived decision.
func (s *Service) Assign(ctx context.Context, projectID, allyID string, priority models.Priority, notes string) (*models.AssignmentResult, error) {
	ally, err := s.allies.GetByID(ctx, allyID)
	if err != nil {
		return nil, err
	}

	if err := s.allies.MarkBusy(ctx, allyID); err != nil {
		return nil, err
	}

	if err := s.projects.AssignAlly(ctx, projectID, allyID); err != nil {
		if releaseErr := s.allies.MarkAvailable(ctx, allyID); releaseErr != nil {
			utils.GetLogger().Error("Failed to release claimed ally",
				zap.String("ally_id", allyID),
				zap.Error(releaseErr),
			)
		}
		return nil, err
	}

	req := &models.ProjectRequest{
		ProjectID:      projectID,
		Specialization: firstSpecialization(ally),
		ServiceArea:    firstServiceArea(ally),
		Priority:       priority,
		Notes:          notes,
	}
	breakdown := Score(ally, req)
	scored := &models.ScoredAlly{Ally: ally, Score: breakdown.Total, Breakdown: breakdown}

	now := time.Now().UTC()
	result := &models.AssignmentResult{
		Success:    true,
		ProjectID:  projectID,
		BestMatch:  scored,
		Candidates: []*models.ScoredAlly{scored},
		Message:    fmt.Sprintf("project assigned manually to %s", ally.FullName()),
		Notes:      notes,
		AssignedAt: &now,
	}

	s.notifyAssigned(ctx, projectID, scored)
	s.archive(ctx, result)

	return result, nil
}

// CompleteProject marks the project finished, computes the ally's commission
// from the project's completed transactions and returns the ally to the
// available pool. The store performs the completion atomically, so a failure
// never leaves the project COMPLETED with the ally still BUSY.
func (s *Service) CompleteProject(ctx context.Context, projectID, allyID string, finalRating *float64) (*models.CommissionRecord, error) {
	ally, err := s.allies.GetByID(ctx, allyID)
	if err != nil {
		return nil, err
	}

	total, err := s.projects.Complete(ctx, projectID, allyID, finalRating)
	if err != nil {
		return nil, err
	}

	commission := &models.CommissionRecord{
		ID:          uuid.NewString(),
		AllyID:      allyID,
		ProjectID:   projectID,
		Amount:      total * (ally.CommissionRate / 100),
		Percentage:  ally.CommissionRate,
		Status:      "PENDING",
		Description: fmt.Sprintf("commission for project %s", projectID),
		CreatedAt:   time.Now().UTC(),
	}

	utils.GetLogger().Info("Project completed",
		zap.String("project_id", projectID),
		zap.String("ally_id", allyID),
		zap.Float64("commission", commission.Amount),
	)

	return commission, nil
}

// SetAcademyLevel updates an ally's academy tier after certification review.
func (s *Service) SetAcademyLevel(ctx context.Context, allyID string, level models.AcademyLevel) error {
	if !level.IsValid() {
		return models.ErrInvalidAcademyLevel
	}

	if err := s.allies.UpdateAcademyLevel(ctx, allyID, level); err != nil {
		return err
	}

	utils.GetLogger().Info("Ally academy level updated",
		zap.String("ally_id", allyID),
		zap.String("level", string(level)),
	)

	return nil
}

func (s *Service) noMatch(ctx context.Context, req *models.ProjectRequest, ranked []*models.ScoredAlly, message string) *models.AssignmentResult {
	if ranked == nil {
		ranked = []*models.ScoredAlly{}
	}

	result := &models.AssignmentResult{
		Success:    false,
		ProjectID:  req.ProjectID,
		Candidates: ranked,
		Message:    message,
		Notes:      req.Notes,
	}

	utils.GetLogger().Info("Auto-assignment found no suitable ally",
		zap.String("project_id", req.ProjectID),
		zap.Int("candidates", len(ranked)),
	)

	if s.notifier != nil {
		if err := s.notifier.NotifyAssignmentFailed(ctx, req.ProjectID); err != nil {
			utils.GetLogger().Warn("Failed to send assignment-failed notification",
				zap.String("project_id", req.ProjectID),
				zap.Error(err),
			)
		}
	}
	s.archive(ctx, result)

	return result
}

func (s *Service) notifyAssigned(ctx context.Context, projectID string, scored *models.ScoredAlly) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyProjectAssigned(ctx, projectID, scored.Ally, scored.Score); err != nil {
		utils.GetLogger().Warn("Failed to send assignment notification",
			zap.String("project_id", projectID),
			zap.String("ally_id", scored.Ally.ID),
			zap.Error(err),
		)
	}
}

func (s *Service) archive(ctx context.Context, result *models.AssignmentResult) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.ArchiveAssignment(ctx, result); err != nil {
		utils.GetLogger().Warn("Failed to archive assignment decision",
			zap.String("project_id", result.ProjectID),
			zap.Error(err),
		)
	}
}

func firstSpecialization(ally *models.Ally) models.Specialization {
	if len(ally.Specializations) > 0 {
		return ally.Specializations[0]
	}
	return ""
}

func firstServiceArea(ally *models.Ally) string {
	if len(ally.ServiceAreas) > 0 {
		return ally.ServiceAreas[0]
	}
	return ""
}
