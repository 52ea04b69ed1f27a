// Package belcash implements the BelScore credit-scoring and financing
// simulation engine.
package belcash

import (
	"math"
	"time"

	"bel-energy-engine/internal/models"
)

// Sub-factor weights for the final BelScore.
const (
	weightHistory            = 0.4
	weightDemographic        = 0.2
	weightBusinessReferences = 0.2
	weightDigitalBehavior    = 0.2
)

// Engine computes BelScore results from credit profiles. It is pure over its
// inputs; the clock is injected so tenure and recency math is reproducible in
// tests.
type Engine struct {
	now func() time.Time
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a new BelScore engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CalculateScore computes the four weighted sub-factors and the final
// BelScore for a credit profile. The final score multiplies each 0-100
// factor by 100 again before applying its 0-1 weight; this scaling matches
// the production scoring pipeline and downstream grade bands depend on it,
// so it is kept as is.
func (e *Engine) CalculateScore(profile *models.CreditProfile) *models.BelScoreResult {
	factors := models.BelScoreFactors{
		History:            e.historyFactor(profile),
		Demographic:        e.demographicFactor(profile),
		BusinessReferences: e.businessReferencesFactor(profile),
		DigitalBehavior:    e.digitalBehaviorFactor(profile),
	}

	score := int(math.Round(
		factors.History*100*weightHistory +
			factors.Demographic*100*weightDemographic +
			factors.BusinessReferences*100*weightBusinessReferences +
			factors.DigitalBehavior*100*weightDigitalBehavior,
	))

	grade := GradeFromScore(score)

	return &models.BelScoreResult{
		Score:           score,
		Grade:           grade,
		Factors:         factors,
		Recommendations: recommendations(score),
	}
}

// historyFactor scores the user's Bel Energy transaction and project history
// plus tenure as a customer. 40% weight.
func (e *Engine) historyFactor(profile *models.CreditProfile) float64 {
	score := 0.0

	if profile.CompletedTransactions > 0 {
		score += 30
		score += math.Min(float64(profile.CompletedTransactions*5), 20)
	}

	if profile.CompletedProjects > 0 {
		score += 20
		score += math.Min(float64(profile.CompletedProjects*3), 15)
	}

	monthsAsCustomer := e.now().Sub(profile.CreatedAt).Hours() / (24 * 30)
	switch {
	case monthsAsCustomer > 12:
		score += 10
	case monthsAsCustomer > 6:
		score += 7
	case monthsAsCustomer > 3:
		score += 4
	case monthsAsCustomer > 1:
		score += 2
	}

	return math.Min(score, 100)
}

// demographicFactor scores profile completeness and account type. 20% weight.
func (e *Engine) demographicFactor(profile *models.CreditProfile) float64 {
	score := 50.0 // neutral base

	if profile.FirstName != "" && profile.LastName != "" {
		score += 10
	}
	if profile.Phone != "" {
		score += 10
	}
	if profile.Location != "" {
		score += 15
	}

	switch profile.UserType {
	case models.UserTypeClient:
		score += 10
	case models.UserTypeAlly:
		score += 5
	}

	if profile.ReferralCode != "" {
		score += 5
	}

	return math.Min(score, 100)
}

// businessReferencesFactor approximates commercial references from completed
// projects and platform standing. 20% weight.
func (e *Engine) businessReferencesFactor(profile *models.CreditProfile) float64 {
	score := 30.0

	if profile.CompletedProjects > 0 {
		score += math.Min(float64(profile.CompletedProjects*10), 40)
	}

	if profile.UserType == models.UserTypeAlly {
		score += 20
	}

	if profile.ReferralCode != "" {
		score += 10
	}

	return math.Min(score, 100)
}

// digitalBehaviorFactor scores platform engagement and recency. 20% weight.
func (e *Engine) digitalBehaviorFactor(profile *models.CreditProfile) float64 {
	score := 40.0

	if profile.HasPreferences {
		score += 20
	}

	if profile.TransactionCount > 0 {
		score += math.Min(float64(profile.TransactionCount*5), 20)
	}

	// Fixed tool-usage credit (calculator and portal usage).
	score += 10

	daysSinceActivity := e.now().Sub(profile.LastActivityAt).Hours() / 24
	switch {
	case daysSinceActivity < 30:
		score += 10
	case daysSinceActivity < 90:
		score += 5
	}

	return math.Min(score, 100)
}

// GradeFromScore maps a BelScore to its letter grade. Bands are contiguous
// and cover the whole integer range.
func GradeFromScore(score int) models.Grade {
	switch {
	case score >= 800:
		return models.GradeA
	case score >= 600:
		return models.GradeB
	case score >= 400:
		return models.GradeC
	case score >= 200:
		return models.GradeD
	default:
		return models.GradeF
	}
}

// recommendations returns the fixed 3-entry guidance list for a score band.
func recommendations(score int) []string {
	switch {
	case score < 400:
		return []string{
			"Complete your profile with more personal information",
			"Consider starting with smaller projects",
			"Join the Bel Energy Academy to improve your score",
		}
	case score < 600:
		return []string{
			"Increase your activity on the platform",
			"Complete projects to build your history",
			"Invite friends to earn referral bonuses",
		}
	case score < 800:
		return []string{
			"Excellent progress, keep up the activity",
			"Consider becoming a certified ally",
			"Take advantage of the best financing rates",
		}
	default:
		return []string{
			"Exceptional profile! Enjoy the best conditions",
			"Consider premium referral programs",
			"Access interest-free financing",
		}
	}
}
