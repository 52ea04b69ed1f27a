// Package models defines the data structures for the Bel Energy engine.
package models

import (
	"time"
)

// UserType classifies an account on the platform.
type UserType string

const (
	UserTypeClient UserType = "CLIENT"
	UserTypeAlly   UserType = "ALLY"
	UserTypeAdmin  UserType = "ADMIN"
)

// Grade is the letter band derived from a BelScore, driving financing terms.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// ValidGrades returns all grades from best to worst.
func ValidGrades() []Grade {
	return []Grade{GradeA, GradeB, GradeC, GradeD, GradeF}
}

// IsValid checks if the grade is valid.
func (g Grade) IsValid() bool {
	for _, valid := range ValidGrades() {
		if g == valid {
			return true
		}
	}
	return false
}

// CreditProfile is the aggregated user history the BelScore engine consumes.
// It is assembled by the data layer from joined query results; the engine
// itself never touches the store.
type CreditProfile struct {
	UserID                string    `json:"user_id"`
	UserType              UserType  `json:"user_type"`
	FirstName             string    `json:"first_name"`
	LastName              string    `json:"last_name"`
	Phone                 string    `json:"phone"`
	Location              string    `json:"location"`
	ReferralCode          string    `json:"referral_code"`
	HasPreferences        bool      `json:"has_preferences"`
	TransactionCount      int       `json:"transaction_count"`
	CompletedTransactions int       `json:"completed_transactions"`
	CompletedProjects     int       `json:"completed_projects"`
	CreatedAt             time.Time `json:"created_at"`
	LastActivityAt        time.Time `json:"last_activity_at"`
}

// BelScoreFactors holds the four sub-factor scores, each in [0,100].
type BelScoreFactors struct {
	History            float64 `json:"bel_energy_history"`  // 40% weight
	Demographic        float64 `json:"demographic_data"`    // 20% weight
	BusinessReferences float64 `json:"business_references"` // 20% weight
	DigitalBehavior    float64 `json:"digital_behavior"`    // 20% weight
}

// BelScoreResult is the output of the BelScore engine. Computed fresh per
// request; never cached or persisted by this core.
type BelScoreResult struct {
	Score           int             `json:"score"`
	Grade           Grade           `json:"grade"`
	Factors         BelScoreFactors `json:"factors"`
	Recommendations []string        `json:"recommendations"`
}

// FinancingTerms is a row of the static grade-keyed financing matrix.
type FinancingTerms struct {
	MinScore        int     `json:"min_score"`
	MaxInstallments int     `json:"max_installments"`
	InterestRate    float64 `json:"interest_rate"`
	Description     string  `json:"description"`
}

// FinancingOption is one installment plan generated from the matrix.
type FinancingOption struct {
	Installments   int     `json:"installments"`
	InterestRate   float64 `json:"interest_rate"`
	MonthlyPayment float64 `json:"monthly_payment"`
	TotalAmount    float64 `json:"total_amount"`
	TotalInterest  float64 `json:"total_interest"`
	Description    string  `json:"description"`
}

// FinancingSimulation is the full output of a financing simulation.
type FinancingSimulation struct {
	Principal         float64           `json:"principal"`
	BelScore          int               `json:"bel_score"`
	Grade             Grade             `json:"grade"`
	AvailableOptions  []FinancingOption `json:"available_options"`
	RecommendedOption FinancingOption   `json:"recommended_option"`
	RiskAssessment    string            `json:"risk_assessment"`
}

// FinancingApplicationRequest is the input to ApplyForFinancing.
type FinancingApplicationRequest struct {
	UserID        string  `json:"user_id"`
	Principal     float64 `json:"principal"`
	Installments  int     `json:"installments"`
	FinancingType string  `json:"financing_type,omitempty"`
}

// FinancingApplication is a pending financing request built from a validated
// simulation option.
type FinancingApplication struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Principal      float64   `json:"principal"`
	Installments   int       `json:"installments"`
	FinancingType  string    `json:"financing_type"`
	BelScore       int       `json:"bel_score"`
	MonthlyPayment float64   `json:"monthly_payment"`
	TotalAmount    float64   `json:"total_amount"`
	InterestRate   float64   `json:"interest_rate"`
	Status         string    `json:"status"`
	RiskAssessment string    `json:"risk_assessment"`
	CreatedAt      time.Time `json:"created_at"`
}
