package models_test

import (
	"time"

	"github.com/stretchr/testify/suite"

	"casework/internal/cases/models"
	"casework/pkg/domain"
)

var baseTime = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// caseSuite provides a ticking clock and seeded identifiers for aggregate tests.
type caseSuite struct {
	suite.Suite
	now time.Time
	ids *domain.SeededIDs
}

func (s *caseSuite) SetupTest() {
	s.now = baseTime
	s.ids = domain.NewSeededIDs(42)
}

// cmd returns a command one minute after the previous one.
func (s *caseSuite) cmd() models.Command {
	s.now = s.now.Add(time.Minute)
	return models.Command{
		Actor: models.Actor{ID: "sup-1", Name: "Dana Supervisor"},
		At:    s.now,
		IDs:   s.ids,
	}
}

func (s *caseSuite) newCase() *models.ConflictCase {
	c, err := models.NewCase(models.NewCaseParams{
		CaseNumber:   "CR-20250601-4821",
		Type:         models.CaseTypeInterpersonal,
		IncidentDate: baseTime.Add(-48 * time.Hour),
		Location:     "Warehouse B",
		Department:   "Logistics",
		Shift:        "night",
	}, s.cmd())
	s.Require().NoError(err)
	return c
}

func (s *caseSuite) addComplainants(c *models.ConflictCase) (domain.EmployeeID, domain.EmployeeID) {
	a, err := c.AddEmployee(models.InvolvedEmployee{Name: "Alex Rivera", Role: "Picker", Department: "Logistics", IsComplainant: true}, s.cmd())
	s.Require().NoError(err)
	b, err := c.AddEmployee(models.InvolvedEmployee{Name: "Sam Chen", Role: "Driver", Department: "Logistics", IsComplainant: true}, s.cmd())
	s.Require().NoError(err)
	return a, b
}

func complaint(t models.DocumentType, text string) models.CaseDocument {
	return models.CaseDocument{
		Type:               t,
		OriginalImageRefs:  []string{"img/" + string(t) + "-1.jpg"},
		ProcessedImageRefs: []string{"img/" + string(t) + "-1.processed.jpg"},
		RawText:            "RAW " + text,
		CleanedText:        text,
		DetectedLanguage:   "en",
		SubmittedBy:        "sup-1",
		PageCount:          1,
	}
}

func (s *caseSuite) attachComplaints(c *models.ConflictCase) (domain.DocumentID, domain.DocumentID) {
	a, err := c.AttachDocument(complaint(models.DocumentComplaintA, "He shouted at me near dock 4."), s.cmd())
	s.Require().NoError(err)
	b, err := c.AttachDocument(complaint(models.DocumentComplaintB, "She blocked the loading bay."), s.cmd())
	s.Require().NoError(err)
	return a, b
}

func (s *caseSuite) comparison() models.AIComparisonResult {
	return models.AIComparisonResult{
		AgreementPoints: []string{"Both were at dock 4"},
		Contradictions:  []string{"Who raised their voice first"},
		NeutralSummary:  "The parties disagree about the sequence of events.",
		SideBySide: []models.SideBySideItem{{
			Topic:         "Location",
			PartyAVersion: "Dock 4",
			PartyBVersion: "Dock 4",
			Status:        models.ComparisonAgreement,
		}},
		PartyAName:  "Alex Rivera",
		PartyBName:  "Sam Chen",
		GeneratedAt: s.now,
	}
}

// inReview builds a case in pendingReview with both complaints and an accepted comparison.
func (s *caseSuite) inReview() *models.ConflictCase {
	c := s.newCase()
	s.addComplainants(c)
	s.Require().NoError(c.Open(s.cmd()))
	s.attachComplaints(c)
	s.Require().NoError(c.AcceptComparison(s.comparison(), s.cmd()))
	s.Require().NoError(c.SubmitForReview(s.cmd()))
	return c
}

func (s *caseSuite) recommend(c *models.ConflictCase, actions ...models.RecommendedAction) {
	for _, a := range actions {
		_, err := c.AddRecommendation(models.AIRecommendation{
			Action:             a,
			Reasoning:          "first incident on record",
			RiskAssessment:     "low",
			SuggestedNextSteps: []string{"schedule follow-up"},
			Confidence:         0.8,
		}, s.cmd())
		s.Require().NoError(err)
	}
}

// awaiting builds a case in awaitingAction recommending the given actions.
func (s *caseSuite) awaiting(actions ...models.RecommendedAction) *models.ConflictCase {
	c := s.inReview()
	s.recommend(c, actions...)
	s.Require().NoError(c.AwaitAction(s.cmd()))
	return c
}
