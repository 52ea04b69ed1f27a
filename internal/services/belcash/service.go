package belcash

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bel-energy-engine/internal/models"
	"bel-energy-engine/internal/utils"
)

// ProfileStore supplies the aggregated user history the engine scores.
type ProfileStore interface {
	GetCreditProfile(ctx context.Context, userID string) (*models.CreditProfile, error)
}

// Service ties the pure BelScore engine to the user data layer.
type Service struct {
	engine   *Engine
	profiles ProfileStore
}

// NewService creates a new BelCash service.
func NewService(engine *Engine, profiles ProfileStore) *Service {
	return &Service{
		engine:   engine,
		profiles: profiles,
	}
}

// CalculateBelScore computes the BelScore for a user. An unknown user
// surfaces as models.ErrUserNotFound.
func (s *Service) CalculateBelScore(ctx context.Context, userID string) (*models.BelScoreResult, error) {
	profile, err := s.profiles.GetCreditProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := s.engine.CalculateScore(profile)

	utils.GetLogger().Debug("BelScore calculated",
		zap.String("user_id", userID),
		zap.Int("score", result.Score),
		zap.String("grade", string(result.Grade)),
	)

	return result, nil
}

// SimulateFinancing computes the user's BelScore and enumerates the financing
// options their grade allows. The recommended option is the first (shortest
// term) one.
func (s *Service) SimulateFinancing(ctx context.Context, principal float64, userID string) (*models.FinancingSimulation, error) {
	if principal <= 0 {
		return nil, models.ErrInvalidPrincipal
	}

	belScore, err := s.CalculateBelScore(ctx, userID)
	if err != nil {
		return nil, err
	}

	options, err := GenerateOptions(principal, belScore.Grade)
	if err != nil {
		return nil, err
	}

	return &models.FinancingSimulation{
		Principal:         principal,
		BelScore:          belScore.Score,
		Grade:             belScore.Grade,
		AvailableOptions:  options,
		RecommendedOption: options[0],
		RiskAssessment:    AssessRisk(belScore.Score, principal),
	}, nil
}

// ApplyForFinancing validates a financing request against the user's
// simulated options and returns a pending application. The requested
// installment count must exist among the options the user's grade allows.
func (s *Service) ApplyForFinancing(ctx context.Context, req *models.FinancingApplicationRequest) (*models.FinancingApplication, error) {
	if req.Principal <= 0 {
		return nil, models.ErrInvalidPrincipal
	}
	if req.Installments <= 0 {
		return nil, models.ErrInvalidInstallments
	}

	simulation, err := s.SimulateFinancing(ctx, req.Principal, req.UserID)
	if err != nil {
		return nil, err
	}

	var requested *models.FinancingOption
	for i := range simulation.AvailableOptions {
		if simulation.AvailableOptions[i].Installments == req.Installments {
			requested = &simulation.AvailableOptions[i]
			break
		}
	}
	if requested == nil {
		return nil, models.ErrOptionUnavailable
	}

	financingType := req.FinancingType
	if financingType == "" {
		financingType = "BELCASH"
	}

	application := &models.FinancingApplication{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		Principal:      req.Principal,
		Installments:   req.Installments,
		FinancingType:  financingType,
		BelScore:       simulation.BelScore,
		MonthlyPayment: requested.MonthlyPayment,
		TotalAmount:    requested.TotalAmount,
		InterestRate:   requested.InterestRate,
		Status:         "PENDING",
		RiskAssessment: simulation.RiskAssessment,
		CreatedAt:      time.Now().UTC(),
	}

	utils.GetLogger().Info("Financing application created",
		zap.String("application_id", application.ID),
		zap.String("user_id", req.UserID),
		zap.Float64("principal", req.Principal),
		zap.Int("installments", req.Installments),
	)

	return application, nil
}

// UpdateScore records a manual BelScore override requested by an admin. The
// override is audit-logged; the computed score remains authoritative for
// simulations.
func (s *Service) UpdateScore(ctx context.Context, userID string, score int, reason string) error {
	if score < 0 || score > 1000 {
		return models.ErrInvalidScore
	}

	if _, err := s.profiles.GetCreditProfile(ctx, userID); err != nil {
		return err
	}

	utils.GetLogger().Info("BelScore manually updated",
		zap.String("user_id", userID),
		zap.Int("score", score),
		zap.String("reason", reason),
	)

	return nil
}
