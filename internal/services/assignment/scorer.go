// Package assignment implements the ally auto-assignment scoring pipeline.
package assignment

import (
	"bel-energy-engine/internal/models"
)

// Weight caps for the six score components. The total is clamped to 100.
const (
	maxRatingScore     = 30
	maxExperienceScore = 25
	maxWorkloadScore   = 15
	specializationHit  = 10
	maxTotalScore      = 100

	urgentBonus = 5
	highBonus   = 3
)

// academyScores maps academy levels to their fixed score contribution.
var academyScores = map[models.AcademyLevel]float64{
	models.AcademyLevelBasic:        0,
	models.AcademyLevelIntermediate: 10,
	models.AcademyLevelAdvanced:     15,
	models.AcademyLevelExpert:       20,
}

// Score computes the weighted heuristic score for one candidate against a
// project request. Pure and deterministic: identical inputs always produce
// identical breakdowns.
func Score(ally *models.Ally, req *models.ProjectRequest) models.ScoreBreakdown {
	breakdown := models.ScoreBreakdown{}

	// Factor 1: rating (30% of score)
	breakdown.Rating = (ally.Rating / 5.0) * maxRatingScore

	// Factor 2: experience (25% of score)
	breakdown.Experience = float64(ally.ProjectsCompleted * 2)
	if breakdown.Experience > maxExperienceScore {
		breakdown.Experience = maxExperienceScore
	}

	// Factor 3: academy level (20% of score)
	breakdown.Academy = academyScores[ally.AcademyLevel]

	// Factor 4: current workload (15% of score), penalizes in-flight projects
	breakdown.Workload = maxWorkloadScore - float64(ally.ActiveProjects*3)
	if breakdown.Workload < 0 {
		breakdown.Workload = 0
	}

	// Factor 5: specialization match (10% of score)
	if ally.HasSpecialization(req.Specialization) {
		breakdown.Specialization = specializationHit
	}

	// Factor 6: project priority bonus
	switch req.Priority {
	case models.PriorityUrgent:
		breakdown.PriorityBonus = urgentBonus
	case models.PriorityHigh:
		breakdown.PriorityBonus = highBonus
	}

	breakdown.Total = breakdown.Rating + breakdown.Experience + breakdown.Academy +
		breakdown.Workload + breakdown.Specialization + breakdown.PriorityBonus
	if breakdown.Total > maxTotalScore {
		breakdown.Total = maxTotalScore
	}

	return breakdown
}
