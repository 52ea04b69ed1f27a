// Package models defines the data structures for the Bel Energy engine.
package models

import (
	"time"
)

// AcademyLevel represents an ally's proficiency tier in the Bel Energy Academy.
type AcademyLevel string

const (
	AcademyLevelBasic        AcademyLevel = "BASIC"
	AcademyLevelIntermediate AcademyLevel = "INTERMEDIATE"
	AcademyLevelAdvanced     AcademyLevel = "ADVANCED"
	AcademyLevelExpert       AcademyLevel = "EXPERT"
)

// ValidAcademyLevels returns all valid academy level values in ascending order.
func ValidAcademyLevels() []AcademyLevel {
	return []AcademyLevel{
		AcademyLevelBasic,
		AcademyLevelIntermediate,
		AcademyLevelAdvanced,
		AcademyLevelExpert,
	}
}

// IsValid checks if the academy level is valid.
func (l AcademyLevel) IsValid() bool {
	for _, valid := range ValidAcademyLevels() {
		if l == valid {
			return true
		}
	}
	return false
}

// Rank returns the ordinal position of the level (BASIC=0 .. EXPERT=3).
func (l AcademyLevel) Rank() int {
	for i, valid := range ValidAcademyLevels() {
		if l == valid {
			return i
		}
	}
	return -1
}

// AvailabilityStatus represents whether an ally can take new projects.
type AvailabilityStatus string

const (
	AvailabilityAvailable AvailabilityStatus = "AVAILABLE"
	AvailabilityBusy      AvailabilityStatus = "BUSY"
)

// Specialization is a tag-based eligibility filter for ally-to-project matching.
type Specialization string

const (
	SpecializationResidential Specialization = "RESIDENTIAL"
	SpecializationCommercial  Specialization = "COMMERCIAL"
	SpecializationIndustrial  Specialization = "INDUSTRIAL"
)

// ValidSpecializations returns all valid specialization values.
func ValidSpecializations() []Specialization {
	return []Specialization{
		SpecializationResidential,
		SpecializationCommercial,
		SpecializationIndustrial,
	}
}

// IsValid checks if the specialization is valid.
func (s Specialization) IsValid() bool {
	for _, valid := range ValidSpecializations() {
		if s == valid {
			return true
		}
	}
	return false
}

// Priority represents the urgency tag of a project request.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// IsValid checks if the priority is valid.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Ally represents a service-provider profile eligible for project assignment.
type Ally struct {
	ID                 string             `json:"id" db:"id"`
	UserID             string             `json:"user_id" db:"user_id"`
	FirstName          string             `json:"first_name" db:"first_name"`
	LastName           string             `json:"last_name" db:"last_name"`
	Email              string             `json:"email" db:"email"`
	ProfessionalType   string             `json:"professional_type" db:"professional_type"`
	Rating             float64            `json:"rating" db:"rating"`
	ProjectsCompleted  int                `json:"projects_completed" db:"projects_completed"`
	AcademyLevel       AcademyLevel       `json:"academy_level" db:"academy_level"`
	CommissionRate     float64            `json:"commission_rate" db:"commission_rate"`
	Specializations    []Specialization   `json:"specializations" db:"specializations"`
	ServiceAreas       []string           `json:"service_areas" db:"service_areas"`
	AvailabilityStatus AvailabilityStatus `json:"availability_status" db:"availability_status"`
	ActiveProjects     int                `json:"active_projects" db:"active_projects"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

// HasSpecialization reports whether the ally's specialization set contains s.
func (a *Ally) HasSpecialization(s Specialization) bool {
	for _, spec := range a.Specializations {
		if spec == s {
			return true
		}
	}
	return false
}

// FullName returns the ally's display name.
func (a *Ally) FullName() string {
	return a.FirstName + " " + a.LastName
}

// ProjectRequest is the per-call input to the assignment pipeline. It is
// constructed by the caller for each assignment and never persisted here.
type ProjectRequest struct {
	ProjectID      string         `json:"project_id"`
	Specialization Specialization `json:"specialization"`
	ServiceArea    string         `json:"service_area"`
	Budget         float64        `json:"budget"`
	Priority       Priority       `json:"priority"`
	Notes          string         `json:"notes,omitempty"`
}

// Validate checks the request fields the scoring pipeline depends on.
func (r *ProjectRequest) Validate() error {
	if r.Specialization == "" {
		return ErrEmptySpecialization
	}
	if !r.Specialization.IsValid() {
		return ErrInvalidSpecialization
	}
	if r.ServiceArea == "" {
		return ErrEmptyServiceArea
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if !r.Priority.IsValid() {
		return ErrInvalidPriority
	}
	return nil
}

// ScoreBreakdown holds the six named components of an ally's assignment score
// plus the clamped total. Retained alongside every decision so an operator can
// audit why a candidate was chosen.
type ScoreBreakdown struct {
	Rating         float64 `json:"rating"`
	Experience     float64 `json:"experience"`
	Academy        float64 `json:"academy"`
	Workload       float64 `json:"workload"`
	Specialization float64 `json:"specialization"`
	PriorityBonus  float64 `json:"priority_bonus"`
	Total          float64 `json:"total"`
}

// ScoredAlly pairs a candidate with its score breakdown.
type ScoredAlly struct {
	Ally      *Ally          `json:"ally"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// AssignmentResult is the outcome of an assignment request. Success=false with
// a nil error is the normal "no suitable candidate" outcome, distinguishable
// from transient failures which surface as errors.
type AssignmentResult struct {
	Success    bool          `json:"success"`
	ProjectID  string        `json:"project_id"`
	BestMatch  *ScoredAlly   `json:"best_match,omitempty"`
	Candidates []*ScoredAlly `json:"candidates"`
	Message    string        `json:"message"`
	Notes      string        `json:"notes,omitempty"`
	AssignedAt *time.Time    `json:"assigned_at,omitempty"`
}

// CommissionRecord is produced when an ally completes a project.
type CommissionRecord struct {
	ID          string    `json:"id"`
	AllyID      string    `json:"ally_id"`
	ProjectID   string    `json:"project_id"`
	Amount      float64   `json:"amount"`
	Percentage  float64   `json:"percentage"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
