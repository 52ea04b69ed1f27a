package belcash

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bel-energy-engine/internal/models"
)

var testNow = time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func testProfile(overrides func(*models.CreditProfile)) *models.CreditProfile {
	profile := &models.CreditProfile{
		UserID:                "user-1",
		UserType:              models.UserTypeClient,
		FirstName:             "Carlos",
		LastName:              "Perez",
		Phone:                 "+584141234567",
		Location:              "Caracas",
		ReferralCode:          "REF123",
		HasPreferences:        true,
		TransactionCount:      3,
		CompletedTransactions: 2,
		CompletedProjects:     1,
		CreatedAt:             testNow.AddDate(0, -14, 0),
		LastActivityAt:        testNow.AddDate(0, 0, -10),
	}
	if overrides != nil {
		overrides(profile)
	}
	return profile
}

func testEngine() *Engine {
	return NewEngine(WithClock(fixedClock))
}

func TestCalculateScoreEstablishedClient(t *testing.T) {
	result := testEngine().CalculateScore(testProfile(nil))

	// History: 30 + 10 (2 completed tx) + 20 + 3 (1 project) + 10 (14 months).
	assert.Equal(t, 73.0, result.Factors.History)
	// Demographic: 50 + 10 name + 10 phone + 15 location + 10 client + 5 referral.
	assert.Equal(t, 100.0, result.Factors.Demographic)
	// Business references: 30 + 10 (1 project) + 10 referral.
	assert.Equal(t, 50.0, result.Factors.BusinessReferences)
	// Digital: 40 + 20 prefs + 15 (3 tx) + 10 tools + 10 recent.
	assert.Equal(t, 95.0, result.Factors.DigitalBehavior)

	// round(73*100*0.4 + 100*100*0.2 + 50*100*0.2 + 95*100*0.2) = 7820.
	assert.Equal(t, 7820, result.Score)
	assert.Equal(t, models.GradeA, result.Grade)
	assert.Len(t, result.Recommendations, 3)
}

func TestCalculateScoreBrandNewUser(t *testing.T) {
	profile := testProfile(func(p *models.CreditProfile) {
		p.FirstName = ""
		p.LastName = ""
		p.Phone = ""
		p.Location = ""
		p.ReferralCode = ""
		p.HasPreferences = false
		p.TransactionCount = 0
		p.CompletedTransactions = 0
		p.CompletedProjects = 0
		p.CreatedAt = testNow
		p.LastActivityAt = testNow
	})

	result := testEngine().CalculateScore(profile)

	assert.Equal(t, 0.0, result.Factors.History)
	// Demographic: 50 base + 10 client.
	assert.Equal(t, 60.0, result.Factors.Demographic)
	assert.Equal(t, 30.0, result.Factors.BusinessReferences)
	// Digital: 40 base + 10 tools + 10 recent activity.
	assert.Equal(t, 60.0, result.Factors.DigitalBehavior)
	assert.Equal(t, 3000, result.Score)
}

func TestHistoryFactorClampsAt100(t *testing.T) {
	profile := testProfile(func(p *models.CreditProfile) {
		p.CompletedTransactions = 100
		p.CompletedProjects = 100
		p.CreatedAt = testNow.AddDate(-5, 0, 0)
	})

	// 30 + 20 + 20 + 15 + 10 = 95, under the clamp even at saturation.
	assert.Equal(t, 95.0, testEngine().CalculateScore(profile).Factors.History)
}

func TestHistoryFactorTenureBands(t *testing.T) {
	cases := []struct {
		months int
		bonus  float64
	}{
		{0, 0},
		{2, 2},
		{4, 4},
		{7, 7},
		{13, 10},
	}

	for _, tc := range cases {
		profile := testProfile(func(p *models.CreditProfile) {
			p.CompletedTransactions = 0
			p.CompletedProjects = 0
			p.CreatedAt = testNow.AddDate(0, -tc.months, 0)
		})
		result := testEngine().CalculateScore(profile)
		assert.Equal(t, tc.bonus, result.Factors.History, "months=%d", tc.months)
	}
}

func TestDemographicFactorRequiresBothNames(t *testing.T) {
	firstOnly := testProfile(func(p *models.CreditProfile) { p.LastName = "" })
	full := testProfile(nil)

	engine := testEngine()
	assert.Equal(t, 90.0, engine.CalculateScore(firstOnly).Factors.Demographic)
	assert.Equal(t, 100.0, engine.CalculateScore(full).Factors.Demographic)
}

func TestBusinessReferencesFavorsAllies(t *testing.T) {
	client := testProfile(nil)
	ally := testProfile(func(p *models.CreditProfile) { p.UserType = models.UserTypeAlly })

	engine := testEngine()
	clientScore := engine.CalculateScore(client).Factors.BusinessReferences
	allyScore := engine.CalculateScore(ally).Factors.BusinessReferences

	assert.Equal(t, 50.0, clientScore)
	assert.Equal(t, 70.0, allyScore)
}

func TestDigitalBehaviorRecencyBands(t *testing.T) {
	cases := []struct {
		daysAgo int
		want    float64
	}{
		{5, 95},   // +10 recency
		{45, 90},  // +5 recency
		{200, 85}, // no recency bonus
	}

	for _, tc := range cases {
		profile := testProfile(func(p *models.CreditProfile) {
			p.LastActivityAt = testNow.AddDate(0, 0, -tc.daysAgo)
		})
		result := testEngine().CalculateScore(profile)
		assert.Equal(t, tc.want, result.Factors.DigitalBehavior, "daysAgo=%d", tc.daysAgo)
	}
}

func TestFactorsStayWithinBounds(t *testing.T) {
	profiles := []*models.CreditProfile{
		testProfile(nil),
		testProfile(func(p *models.CreditProfile) {
			p.UserType = models.UserTypeAlly
			p.TransactionCount = 500
			p.CompletedTransactions = 500
			p.CompletedProjects = 500
			p.CreatedAt = testNow.AddDate(-10, 0, 0)
		}),
		testProfile(func(p *models.CreditProfile) {
			*p = models.CreditProfile{UserID: "empty", CreatedAt: testNow, LastActivityAt: testNow.AddDate(-1, 0, 0)}
		}),
	}

	engine := testEngine()
	for _, profile := range profiles {
		factors := engine.CalculateScore(profile).Factors
		for name, value := range map[string]float64{
			"history":     factors.History,
			"demographic": factors.Demographic,
			"business":    factors.BusinessReferences,
			"digital":     factors.DigitalBehavior,
		} {
			assert.GreaterOrEqual(t, value, 0.0, "%s for %s", name, profile.UserID)
			assert.LessOrEqual(t, value, 100.0, "%s for %s", name, profile.UserID)
		}
	}
}

func TestMoreHistoryNeverLowersScore(t *testing.T) {
	base := testProfile(func(p *models.CreditProfile) {
		p.CompletedTransactions = 1
		p.CompletedProjects = 0
	})
	richer := testProfile(func(p *models.CreditProfile) {
		p.CompletedTransactions = 4
		p.CompletedProjects = 2
	})

	engine := testEngine()
	assert.GreaterOrEqual(t,
		engine.CalculateScore(richer).Score,
		engine.CalculateScore(base).Score,
	)
}

func TestGradeFromScoreBoundaries(t *testing.T) {
	cases := map[int]models.Grade{
		850:  models.GradeA,
		800:  models.GradeA,
		799:  models.GradeB,
		600:  models.GradeB,
		599:  models.GradeC,
		400:  models.GradeC,
		399:  models.GradeD,
		200:  models.GradeD,
		199:  models.GradeF,
		150:  models.GradeF,
		0:    models.GradeF,
		7820: models.GradeA,
	}

	for score, want := range cases {
		assert.Equal(t, want, GradeFromScore(score), "score=%d", score)
	}
}

func TestRecommendationsPerBand(t *testing.T) {
	for _, score := range []int{100, 450, 650, 900} {
		recs := recommendations(score)
		assert.Len(t, recs, 3, "score=%d", score)
		for _, rec := range recs {
			assert.NotEmpty(t, rec)
		}
	}

	assert.NotEqual(t, recommendations(100), recommendations(900))
}

func TestCalculateScoreIsDeterministic(t *testing.T) {
	engine := testEngine()
	profile := testProfile(nil)

	first := engine.CalculateScore(profile)
	second := engine.CalculateScore(profile)

	assert.Equal(t, first, second)
}
