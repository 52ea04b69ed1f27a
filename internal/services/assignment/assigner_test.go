package assignment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bel-energy-engine/internal/models"
)

// fakeAllyStore is an in-memory AllyStore. MarkBusy honors the conditional
// semantics of the real repository: claiming a non-AVAILABLE ally fails.
type fakeAllyStore struct {
	allies    map[string]*models.Ally
	eligible  []*models.Ally
	busyCalls []string
}

func newFakeAllyStore(eligible ...*models.Ally) *fakeAllyStore {
	store := &fakeAllyStore{
		allies:   make(map[string]*models.Ally),
		eligible: eligible,
	}
	for _, ally := range eligible {
		store.allies[ally.ID] = ally
	}
	return store
}

func (f *fakeAllyStore) GetByID(_ context.Context, id string) (*models.Ally, error) {
	ally, ok := f.allies[id]
	if !ok {
		return nil, models.ErrAllyNotFound
	}
	return ally, nil
}

func (f *fakeAllyStore) FindEligible(_ context.Context, _ models.Specialization, _ string) ([]*models.Ally, error) {
	return f.eligible, nil
}

func (f *fakeAllyStore) FindAvailable(_ context.Context, _ models.Specialization, _ string, limit int) ([]*models.Ally, error) {
	if limit > 0 && len(f.eligible) > limit {
		return f.eligible[:limit], nil
	}
	return f.eligible, nil
}

func (f *fakeAllyStore) MarkBusy(_ context.Context, id string) error {
	f.busyCalls = append(f.busyCalls, id)
	ally, ok := f.allies[id]
	if !ok || ally.AvailabilityStatus != models.AvailabilityAvailable {
		return models.ErrAllyUnavailable
	}
	ally.AvailabilityStatus = models.AvailabilityBusy
	return nil
}

func (f *fakeAllyStore) MarkAvailable(_ context.Context, id string) error {
	ally, ok := f.allies[id]
	if !ok {
		return models.ErrAllyNotFound
	}
	ally.AvailabilityStatus = models.AvailabilityAvailable
	return nil
}

func (f *fakeAllyStore) UpdateAcademyLevel(_ context.Context, id string, level models.AcademyLevel) error {
	ally, ok := f.allies[id]
	if !ok {
		return models.ErrAllyNotFound
	}
	ally.AcademyLevel = level
	return nil
}

// fakeProjectStore mirrors the transactional repository: Complete either
// applies the project, commission and ally writes together or leaves
// everything untouched.
type fakeProjectStore struct {
	allies      *fakeAllyStore
	assigned    map[string]string
	completed   map[string]string
	amount      float64
	completeErr error
}

func newFakeProjectStore(allies *fakeAllyStore) *fakeProjectStore {
	return &fakeProjectStore{
		allies:    allies,
		assigned:  make(map[string]string),
		completed: make(map[string]string),
	}
}

func (f *fakeProjectStore) AssignAlly(_ context.Context, projectID, allyID string) error {
	f.assigned[projectID] = allyID
	return nil
}

func (f *fakeProjectStore) Complete(_ context.Context, projectID, allyID string, rating *float64) (float64, error) {
	if f.completeErr != nil {
		return 0, f.completeErr
	}
	if f.assigned[projectID] != allyID {
		return 0, models.ErrProjectNotAssigned
	}

	f.completed[projectID] = allyID
	ally := f.allies.allies[allyID]
	ally.ProjectsCompleted++
	ally.AvailabilityStatus = models.AvailabilityAvailable
	if rating != nil {
		ally.Rating = *rating
	}

	return f.amount, nil
}

func emptyService() *Service {
	allies := newFakeAllyStore()
	return NewService(allies, newFakeProjectStore(allies))
}

func TestAutoAssignSelectsBestCandidate(t *testing.T) {
	strong := testAlly(func(a *models.Ally) {
		a.ID = "strong"
		a.Rating = 4.8
		a.ProjectsCompleted = 15
		a.AcademyLevel = models.AcademyLevelAdvanced
	})
	weak := testAlly(func(a *models.Ally) {
		a.ID = "weak"
		a.Rating = 3.0
		a.ProjectsCompleted = 2
		a.AcademyLevel = models.AcademyLevelBasic
	})

	allies := newFakeAllyStore(weak, strong)
	projects := newFakeProjectStore(allies)
	svc := NewService(allies, projects)

	result, err := svc.AutoAssign(context.Background(), testRequest(nil))

	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotNil(t, result.BestMatch)
	assert.Equal(t, "strong", result.BestMatch.Ally.ID)
	assert.Equal(t, "strong", projects.assigned["project-1"])
	assert.Equal(t, models.AvailabilityBusy, strong.AvailabilityStatus)
	assert.Equal(t, models.AvailabilityAvailable, weak.AvailabilityStatus)
	assert.NotNil(t, result.AssignedAt)

	// Full ranked list retained for audit, best first.
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "strong", result.Candidates[0].Ally.ID)
	assert.GreaterOrEqual(t, result.Candidates[0].Score, result.Candidates[1].Score)
}

func TestAutoAssignThresholdIsInclusive(t *testing.T) {
	// 0 rating + 0 experience + ADVANCED(15) + workload(15) + match(10) = exactly 40.
	boundary := testAlly(func(a *models.Ally) {
		a.ID = "boundary"
		a.Rating = 0
		a.ProjectsCompleted = 0
		a.AcademyLevel = models.AcademyLevelAdvanced
	})

	allies := newFakeAllyStore(boundary)
	svc := NewService(allies, newFakeProjectStore(allies))
	req := testRequest(func(r *models.ProjectRequest) { r.Priority = models.PriorityLow })

	result, err := svc.AutoAssign(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 40.0, result.BestMatch.Score)
}

func TestAutoAssignNoEligibleCandidates(t *testing.T) {
	svc := emptyService()

	result, err := svc.AutoAssign(context.Background(), testRequest(nil))

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Nil(t, result.BestMatch)
	assert.Empty(t, result.Candidates)
	assert.NotEmpty(t, result.Message)
}

func TestAutoAssignBelowThreshold(t *testing.T) {
	weak := testAlly(func(a *models.Ally) {
		a.ID = "weak"
		a.Rating = 1.0
		a.ProjectsCompleted = 0
		a.AcademyLevel = models.AcademyLevelBasic
		a.ActiveProjects = 5
		a.Specializations = []models.Specialization{models.SpecializationCommercial}
	})

	allies := newFakeAllyStore(weak)
	projects := newFakeProjectStore(allies)
	svc := NewService(allies, projects)

	result, err := svc.AutoAssign(context.Background(), testRequest(nil))

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Nil(t, result.BestMatch)
	require.Len(t, result.Candidates, 1)
	assert.Empty(t, projects.assigned)
	assert.Equal(t, models.AvailabilityAvailable, weak.AvailabilityStatus)
}

func TestAutoAssignWalksToNextCandidateOnConflict(t *testing.T) {
	claimed := testAlly(func(a *models.Ally) {
		a.ID = "claimed"
		a.Rating = 5.0
		a.ProjectsCompleted = 20
		a.AcademyLevel = models.AcademyLevelExpert
		// Another request already claimed this ally.
		a.AvailabilityStatus = models.AvailabilityBusy
	})
	runnerUp := testAlly(func(a *models.Ally) {
		a.ID = "runner-up"
		a.Rating = 4.0
		a.ProjectsCompleted = 10
		a.AcademyLevel = models.AcademyLevelAdvanced
	})

	allies := newFakeAllyStore(claimed, runnerUp)
	projects := newFakeProjectStore(allies)
	svc := NewService(allies, projects)

	result, err := svc.AutoAssign(context.Background(), testRequest(nil))

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "runner-up", result.BestMatch.Ally.ID)
	assert.Equal(t, []string{"claimed", "runner-up"}, allies.busyCalls)
}

func TestAutoAssignAllCandidatesClaimedConcurrently(t *testing.T) {
	claimed := testAlly(func(a *models.Ally) {
		a.ID = "claimed"
		a.Rating = 5.0
		a.ProjectsCompleted = 20
		a.AcademyLevel = models.AcademyLevelExpert
		a.AvailabilityStatus = models.AvailabilityBusy
	})

	allies := newFakeAllyStore(claimed)
	svc := NewService(allies, newFakeProjectStore(allies))

	result, err := svc.AutoAssign(context.Background(), testRequest(nil))

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrAssignmentConflict)
}

func TestAutoAssignValidatesRequest(t *testing.T) {
	svc := emptyService()

	_, err := svc.AutoAssign(context.Background(), &models.ProjectRequest{
		ProjectID:   "project-1",
		ServiceArea: "Caracas",
	})
	assert.ErrorIs(t, err, models.ErrEmptySpecialization)

	_, err = svc.AutoAssign(context.Background(), &models.ProjectRequest{
		ProjectID:      "project-1",
		Specialization: models.SpecializationResidential,
	})
	assert.ErrorIs(t, err, models.ErrEmptyServiceArea)
}

func TestManualAssignClaimsAtomically(t *testing.T) {
	ally := testAlly(func(a *models.Ally) { a.ID = "ally-7" })
	allies := newFakeAllyStore(ally)
	projects := newFakeProjectStore(allies)
	svc := NewService(allies, projects)

	result, err := svc.Assign(context.Background(), "project-9", "ally-7", models.PriorityHigh, "")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "ally-7", projects.assigned["project-9"])

	// A second manual assignment of the same ally must hit the conflict.
	_, err = svc.Assign(context.Background(), "project-10", "ally-7", models.PriorityLow, "")
	assert.ErrorIs(t, err, models.ErrAllyUnavailable)
}

func TestManualAssignUnknownAlly(t *testing.T) {
	svc := emptyService()

	_, err := svc.Assign(context.Background(), "project-1", "ghost", models.PriorityMedium, "")
	assert.ErrorIs(t, err, models.ErrAllyNotFound)
}

func TestManualAssignCarriesNotes(t *testing.T) {
	ally := testAlly(func(a *models.Ally) { a.ID = "ally-7" })
	allies := newFakeAllyStore(ally)
	svc := NewService(allies, newFakeProjectStore(allies))

	result, err := svc.Assign(context.Background(), "project-9", "ally-7", models.PriorityHigh,
		"client requested this installer by name")

	require.NoError(t, err)
	assert.Equal(t, "client requested this installer by name", result.Notes)
}

func TestAutoAssignCarriesNotes(t *testing.T) {
	ally := testAlly(func(a *models.Ally) { a.ID = "ally-1" })
	allies := newFakeAllyStore(ally)
	svc := NewService(allies, newFakeProjectStore(allies))

	req := testRequest(func(r *models.ProjectRequest) { r.Notes = "rooftop access before noon" })
	result, err := svc.AutoAssign(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "rooftop access before noon", result.Notes)
}

func TestCompleteProjectComputesCommission(t *testing.T) {
	ally := testAlly(func(a *models.Ally) {
		a.ID = "ally-1"
		a.CommissionRate = 10
		a.ProjectsCompleted = 3
	})
	allies := newFakeAllyStore(ally)
	projects := newFakeProjectStore(allies)
	projects.amount = 12500
	svc := NewService(allies, projects)

	_, err := svc.Assign(context.Background(), "project-1", "ally-1", models.PriorityMedium, "")
	require.NoError(t, err)

	rating := 4.9
	commission, err := svc.CompleteProject(context.Background(), "project-1", "ally-1", &rating)

	require.NoError(t, err)
	assert.Equal(t, 1250.0, commission.Amount)
	assert.Equal(t, 10.0, commission.Percentage)
	assert.Equal(t, "PENDING", commission.Status)
	assert.Equal(t, 4, ally.ProjectsCompleted)
	assert.Equal(t, 4.9, ally.Rating)
	assert.Equal(t, models.AvailabilityAvailable, ally.AvailabilityStatus)
}

func TestCompleteProjectNotAssigned(t *testing.T) {
	ally := testAlly(func(a *models.Ally) { a.ID = "ally-1" })
	allies := newFakeAllyStore(ally)
	svc := NewService(allies, newFakeProjectStore(allies))

	_, err := svc.CompleteProject(context.Background(), "project-1", "ally-1", nil)
	assert.ErrorIs(t, err, models.ErrProjectNotAssigned)
}

func TestCompleteProjectFailureLeavesNoPartialState(t *testing.T) {
	ally := testAlly(func(a *models.Ally) {
		a.ID = "ally-1"
		a.ProjectsCompleted = 3
	})
	allies := newFakeAllyStore(ally)
	projects := newFakeProjectStore(allies)
	svc := NewService(allies, projects)

	_, err := svc.Assign(context.Background(), "project-1", "ally-1", models.PriorityMedium, "")
	require.NoError(t, err)

	projects.completeErr = errors.New("connection reset")

	commission, err := svc.CompleteProject(context.Background(), "project-1", "ally-1", nil)

	require.Error(t, err)
	assert.Nil(t, commission)
	// The failed completion must roll back as one unit: the project stays
	// incomplete, the ally stays claimed and no completion is recorded.
	assert.Empty(t, projects.completed)
	assert.Equal(t, 3, ally.ProjectsCompleted)
	assert.Equal(t, models.AvailabilityBusy, ally.AvailabilityStatus)
}

func TestSetAcademyLevel(t *testing.T) {
	ally := testAlly(func(a *models.Ally) { a.ID = "ally-1" })
	allies := newFakeAllyStore(ally)
	svc := NewService(allies, newFakeProjectStore(allies))

	require.NoError(t, svc.SetAcademyLevel(context.Background(), "ally-1", models.AcademyLevelExpert))
	assert.Equal(t, models.AcademyLevelExpert, ally.AcademyLevel)

	assert.ErrorIs(t,
		svc.SetAcademyLevel(context.Background(), "ally-1", "MASTER"),
		models.ErrInvalidAcademyLevel)
	assert.ErrorIs(t,
		svc.SetAcademyLevel(context.Background(), "ghost", models.AcademyLevelAdvanced),
		models.ErrAllyNotFound)
}

func TestFindAvailableValidatesInput(t *testing.T) {
	svc := emptyService()

	_, err := svc.FindAvailable(context.Background(), "", "Caracas", 5)
	assert.ErrorIs(t, err, models.ErrEmptySpecialization)

	_, err = svc.FindAvailable(context.Background(), models.SpecializationResidential, "", 5)
	assert.ErrorIs(t, err, models.ErrEmptyServiceArea)
}
