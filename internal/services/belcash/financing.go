package belcash

import (
	"math"

	"bel-energy-engine/internal/models"
)

// financingMatrix is the static grade-keyed table of financing terms. Score
// bands are mutually exclusive and cover the whole range.
var financingMatrix = map[models.Grade]models.FinancingTerms{
	models.GradeA: {MinScore: 800, MaxInstallments: 12, InterestRate: 0.00, Description: "Excellent - preferential financing"},
	models.GradeB: {MinScore: 600, MaxInstallments: 8, InterestRate: 0.05, Description: "Very good - favorable conditions"},
	models.GradeC: {MinScore: 400, MaxInstallments: 6, InterestRate: 0.10, Description: "Good - standard conditions"},
	models.GradeD: {MinScore: 200, MaxInstallments: 4, InterestRate: 0.15, Description: "Fair - limited conditions"},
	models.GradeF: {MinScore: 0, MaxInstallments: 1, InterestRate: 0.00, Description: "Low - cash only"},
}

// FinancingMatrix returns a copy of the grade-keyed financing terms table.
func FinancingMatrix() map[models.Grade]models.FinancingTerms {
	matrix := make(map[models.Grade]models.FinancingTerms, len(financingMatrix))
	for grade, terms := range financingMatrix {
		matrix[grade] = terms
	}
	return matrix
}

// TermsForGrade looks up the financing-matrix row for a grade.
func TermsForGrade(grade models.Grade) (models.FinancingTerms, error) {
	terms, ok := financingMatrix[grade]
	if !ok {
		return models.FinancingTerms{}, models.ErrInvalidGrade
	}
	return terms, nil
}

// GenerateOptions enumerates installment plans from 1 to the grade's maximum,
// ordered by installment count ascending. Monetary outputs are rounded to two
// decimal places.
func GenerateOptions(principal float64, grade models.Grade) ([]models.FinancingOption, error) {
	if principal <= 0 {
		return nil, models.ErrInvalidPrincipal
	}

	terms, err := TermsForGrade(grade)
	if err != nil {
		return nil, err
	}

	options := make([]models.FinancingOption, 0, terms.MaxInstallments)
	for installments := 1; installments <= terms.MaxInstallments; installments++ {
		monthlyPayment := monthlyPayment(principal, terms.InterestRate, installments)
		totalAmount := monthlyPayment * float64(installments)
		totalInterest := totalAmount - principal

		options = append(options, models.FinancingOption{
			Installments:   installments,
			InterestRate:   terms.InterestRate,
			MonthlyPayment: round2(monthlyPayment),
			TotalAmount:    round2(totalAmount),
			TotalInterest:  round2(totalInterest),
			Description:    terms.Description,
		})
	}

	return options, nil
}

// monthlyPayment computes the amortized payment for a principal at a flat
// annual rate over the given number of monthly installments.
func monthlyPayment(principal, annualRate float64, installments int) float64 {
	if annualRate == 0 {
		return principal / float64(installments)
	}

	monthlyRate := annualRate / 12
	n := float64(installments)
	return principal * (monthlyRate * math.Pow(1+monthlyRate, n)) /
		(math.Pow(1+monthlyRate, n) - 1)
}

// AssessRisk returns the qualitative risk label for a BelScore. The label is
// banded at the same thresholds as the grade and depends only on the score;
// the principal does not change the assessment.
func AssessRisk(belScore int, principal float64) string {
	switch {
	case belScore >= 800:
		return "Very low risk - excellent credit profile"
	case belScore >= 600:
		return "Low risk - good credit profile"
	case belScore >= 400:
		return "Moderate risk - acceptable credit profile"
	case belScore >= 200:
		return "High risk - limited credit history"
	default:
		return "Very high risk - cash payment recommended"
	}
}

// round2 rounds to two decimal places, half away from zero.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
