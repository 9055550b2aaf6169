package models_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"casework/internal/cases/models"
	"casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
)

type LifecycleSuite struct {
	caseSuite
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) TestNewCase() {
	s.Run("starts in draft with a creation entry", func() {
		c := s.newCase()
		s.Equal(models.StatusDraft, c.Status())
		s.Equal("CR-20250601-4821", c.CaseNumber())
		s.Equal("sup-1", c.CreatedBy())
		s.Equal(c.CreatedAt(), c.UpdatedAt())
		s.Nil(c.ClosedAt())
		s.Require().Equal(1, c.AuditLen())
		s.Equal(models.AuditCaseCreated, c.AuditLog()[0].Action)
	})

	s.Run("rejects malformed headers", func() {
		valid := models.NewCaseParams{
			CaseNumber:   "CR-20250601-4821",
			Type:         models.CaseTypeHarassment,
			IncidentDate: baseTime.Add(-time.Hour),
			Location:     "Office",
			Department:   "Sales",
		}
		cases := map[string]func(p *models.NewCaseParams){
			"bad number":      func(p *models.NewCaseParams) { p.CaseNumber = "CR-2025-1" },
			"unknown type":    func(p *models.NewCaseParams) { p.Type = "brawl" },
			"missing date":    func(p *models.NewCaseParams) { p.IncidentDate = time.Time{} },
			"future incident": func(p *models.NewCaseParams) { p.IncidentDate = baseTime.Add(24 * time.Hour) },
			"blank location":  func(p *models.NewCaseParams) { p.Location = "  " },
			"blank dept":      func(p *models.NewCaseParams) { p.Department = "" },
		}
		for name, mutate := range cases {
			p := valid
			mutate(&p)
			_, err := models.NewCase(p, s.cmd())
			s.Require().Error(err, name)
			s.True(models.IsValidation(err), name)
		}
	})

	s.Run("requires an attributed command", func() {
		_, err := models.NewCase(models.NewCaseParams{
			CaseNumber:   "CR-20250601-4821",
			Type:         models.CaseTypeOther,
			IncidentDate: baseTime,
			Location:     "Office",
			Department:   "Sales",
		}, models.Command{At: baseTime})
		s.Require().Error(err)
		s.True(models.IsValidation(err))
	})
}

func (s *LifecycleSuite) TestOpen() {
	s.Run("requires a complainant", func() {
		c := s.newCase()
		_, err := c.AddEmployee(models.InvolvedEmployee{Name: "Witness W", Role: "Clerk"}, s.cmd())
		s.Require().NoError(err)

		before := c.AuditLen()
		err = c.Open(s.cmd())
		s.ErrorIs(err, models.ErrNoComplainant)
		s.Equal(models.StatusDraft, c.Status())
		s.Equal(before, c.AuditLen())
	})

	s.Run("opens with one complainant", func() {
		c := s.newCase()
		_, err := c.AddEmployee(models.InvolvedEmployee{Name: "Alex Rivera", IsComplainant: true}, s.cmd())
		s.Require().NoError(err)

		cmd := s.cmd()
		s.Require().NoError(c.Open(cmd))
		s.Equal(models.StatusInProgress, c.Status())
		s.Equal(cmd.At, c.UpdatedAt())
		log := c.AuditLog()
		s.Equal(models.AuditCaseOpened, log[len(log)-1].Action)
	})
}

func (s *LifecycleSuite) TestSubmitForReview() {
	s.Run("fails without comparison even with both complaints", func() {
		c := s.newCase()
		s.addComplainants(c)
		s.Require().NoError(c.Open(s.cmd()))
		s.attachComplaints(c)

		err := c.SubmitForReview(s.cmd())
		s.ErrorIs(err, models.ErrMissingEvidence)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		s.Equal(models.StatusInProgress, c.Status())
	})

	s.Run("fails when a complaint has no cleaned text", func() {
		c := s.newCase()
		s.addComplainants(c)
		s.Require().NoError(c.Open(s.cmd()))
		_, err := c.AttachDocument(complaint(models.DocumentComplaintA, "text"), s.cmd())
		s.Require().NoError(err)
		_, err = c.AttachDocument(complaint(models.DocumentComplaintB, ""), s.cmd())
		s.Require().NoError(err)

		s.False(c.HasAllRequiredDocuments())
		s.ErrorIs(c.SubmitForReview(s.cmd()), models.ErrMissingEvidence)
	})

	s.Run("reaching review implies complete evidence", func() {
		c := s.inReview()
		s.Equal(models.StatusPendingReview, c.Status())
		s.True(c.HasAllRequiredDocuments())
		s.True(c.HasComparison())
		s.Empty(c.VerifyIntegrity())
	})
}

func (s *LifecycleSuite) TestAwaitAction() {
	c := s.inReview()
	s.ErrorIs(c.AwaitAction(s.cmd()), models.ErrNoRecommendation)
	s.Equal(models.StatusPendingReview, c.Status())

	s.recommend(c, models.ActionCoaching)
	s.Require().NoError(c.AwaitAction(s.cmd()))
	s.Equal(models.StatusAwaitingAction, c.Status())
}

func (s *LifecycleSuite) TestClose() {
	s.Run("requires a selected action", func() {
		c := s.awaiting(models.ActionCoaching)
		s.ErrorIs(c.Close(s.cmd()), models.ErrNoActionSelected)
		s.False(c.IsTerminal())
	})

	s.Run("requires an approved generated document when one exists", func() {
		c := s.awaiting(models.ActionCoaching)
		s.Require().NoError(c.SelectAction(models.ActionCoaching, s.cmd()))
		_, err := c.AttachGeneratedDocument("Coaching plan for Alex Rivera", s.cmd())
		s.Require().NoError(err)

		s.ErrorIs(c.Close(s.cmd()), models.ErrDocumentNotApproved)

		s.Require().NoError(c.ApproveGeneratedDocument(s.cmd()))
		cmd := s.cmd()
		s.Require().NoError(c.Close(cmd))
		s.Equal(models.StatusClosed, c.Status())
		s.Require().NotNil(c.ClosedAt())
		s.Equal(cmd.At, *c.ClosedAt())
	})

	s.Run("closes without a generated document", func() {
		c := s.awaiting(models.ActionCounseling)
		s.Require().NoError(c.SelectAction(models.ActionCounseling, s.cmd()))
		s.Require().NoError(c.Close(s.cmd()))
		s.True(c.IsTerminal())
	})
}

func (s *LifecycleSuite) TestEscalate() {
	s.Run("requires escalateToHR", func() {
		c := s.awaiting(models.ActionCoaching, models.ActionEscalateToHR)
		s.Require().NoError(c.SelectAction(models.ActionCoaching, s.cmd()))
		s.ErrorIs(c.Escalate(s.cmd()), models.ErrEscalationNotSelected)
	})

	s.Run("escalates and stamps closedAt", func() {
		c := s.awaiting(models.ActionEscalateToHR)
		s.Require().NoError(c.SelectAction(models.ActionEscalateToHR, s.cmd()))
		s.Require().NoError(c.Escalate(s.cmd()))
		s.Equal(models.StatusEscalated, c.Status())
		s.NotNil(c.ClosedAt())
	})
}

func (s *LifecycleSuite) TestTransitionsOnlyMoveForward() {
	s.Run("skipping a state is rejected", func() {
		c := s.newCase()
		s.addComplainants(c)
		s.ErrorIs(c.TransitionTo(models.StatusPendingReview, s.cmd()), models.ErrInvalidTransition)
		s.ErrorIs(c.TransitionTo(models.StatusClosed, s.cmd()), models.ErrInvalidTransition)
	})

	s.Run("moving backward is rejected", func() {
		c := s.inReview()
		s.ErrorIs(c.TransitionTo(models.StatusInProgress, s.cmd()), models.ErrInvalidTransition)
		s.ErrorIs(c.TransitionTo(models.StatusDraft, s.cmd()), models.ErrInvalidTransition)
		s.ErrorIs(c.TransitionTo(models.StatusPendingReview, s.cmd()), models.ErrInvalidTransition)
		s.Equal(models.StatusPendingReview, c.Status())
	})

	s.Run("unknown status is a validation error", func() {
		c := s.newCase()
		err := c.TransitionTo("archived", s.cmd())
		s.True(models.IsValidation(err))
	})

	s.Run("every reachable status is at least its predecessor", func() {
		c := s.awaiting(models.ActionWrittenWarning)
		s.Require().NoError(c.SelectAction(models.ActionWrittenWarning, s.cmd()))
		s.Require().NoError(c.Close(s.cmd()))

		var seen []models.CaseStatus
		for _, e := range c.AuditLog() {
			switch e.Action {
			case models.AuditCaseOpened:
				seen = append(seen, models.StatusInProgress)
			case models.AuditCaseSubmittedForReview:
				seen = append(seen, models.StatusPendingReview)
			case models.AuditCaseAwaitingAction:
				seen = append(seen, models.StatusAwaitingAction)
			case models.AuditCaseClosed:
				seen = append(seen, models.StatusClosed)
			}
		}
		s.Equal([]models.CaseStatus{
			models.StatusInProgress, models.StatusPendingReview, models.StatusAwaitingAction, models.StatusClosed,
		}, seen)
	})
}

func (s *LifecycleSuite) TestTerminalCaseIsFrozen() {
	c := s.awaiting(models.ActionCoaching)
	s.Require().NoError(c.SelectAction(models.ActionCoaching, s.cmd()))
	s.Require().NoError(c.Close(s.cmd()))
	docs := c.Documents()
	before := c.AuditLen()

	mutations := map[string]func() error{
		"notes":    func() error { return c.UpdateNotes("late note", s.cmd()) },
		"employee": func() error { _, err := c.AddEmployee(models.InvolvedEmployee{Name: "Late"}, s.cmd()); return err },
		"attach":   func() error { _, err := c.AttachDocument(complaint(models.DocumentEvidence, "x"), s.cmd()); return err },
		"review":   func() error { return c.RecordEmployeeReview(docs[0].ID, s.now, s.cmd()) },
		"edit":     func() error { return c.EditText(docs[0].ID, "rewritten", s.cmd()) },
		"recommend": func() error {
			_, err := c.AddRecommendation(models.AIRecommendation{Action: models.ActionCoaching}, s.cmd())
			return err
		},
		"select":   func() error { return c.SelectAction(models.ActionCoaching, s.cmd()) },
		"escalate": func() error { return c.Escalate(s.cmd()) },
		"generate": func() error { _, err := c.AttachGeneratedDocument("doc", s.cmd()); return err },
	}
	for name, mutate := range mutations {
		s.ErrorIs(mutate(), models.ErrCaseLocked, name)
	}
	s.Equal(before, c.AuditLen())
	s.Equal(models.StatusClosed, c.Status())
}

func (s *LifecycleSuite) TestRecordExportAppendsOnFinalizedCase() {
	c := s.awaiting(models.ActionCoaching)
	s.Require().NoError(c.SelectAction(models.ActionCoaching, s.cmd()))
	s.Require().NoError(c.Close(s.cmd()))
	before := c.AuditLen()

	closedAt := c.UpdatedAt()
	cmd := s.cmd()
	s.Require().NoError(c.RecordExport("pdf", cmd))
	s.Equal(before+1, c.AuditLen())
	s.Equal(closedAt, c.UpdatedAt(), "a finalized case only grows its audit log")
	s.Equal(models.StatusClosed, c.Status())
	log := c.AuditLog()
	s.Equal(models.AuditCaseExported, log[len(log)-1].Action)
	s.Equal(cmd.At, log[len(log)-1].Timestamp)

	s.True(models.IsValidation(c.RecordExport(" ", s.cmd())))
}

func (s *LifecycleSuite) TestAddEmployee() {
	s.Run("first two complainants are parties", func() {
		c := s.newCase()
		_, err := c.AddEmployee(models.InvolvedEmployee{Name: "Witness One"}, s.cmd())
		s.Require().NoError(err)
		a, b := s.addComplainants(c)
		_, err = c.AddEmployee(models.InvolvedEmployee{Name: "Third Complainant", IsComplainant: true}, s.cmd())
		s.Require().NoError(err)

		partyA, ok := c.PartyA()
		s.Require().True(ok)
		s.Equal(a, partyA.ID)
		partyB, ok := c.PartyB()
		s.Require().True(ok)
		s.Equal(b, partyB.ID)

		var names []string
		for _, w := range c.Witnesses() {
			names = append(names, w.Name)
		}
		s.Equal([]string{"Witness One", "Third Complainant"}, names)
	})

	s.Run("rejects duplicates and blank names", func() {
		c := s.newCase()
		id, err := c.AddEmployee(models.InvolvedEmployee{Name: "Alex"}, s.cmd())
		s.Require().NoError(err)
		_, err = c.AddEmployee(models.InvolvedEmployee{ID: id, Name: "Alex again"}, s.cmd())
		s.True(models.IsValidation(err))
		_, err = c.AddEmployee(models.InvolvedEmployee{Name: " "}, s.cmd())
		s.True(models.IsValidation(err))
		s.Len(c.Employees(), 1)
	})

	s.Run("locked once under review", func() {
		c := s.inReview()
		_, err := c.AddEmployee(models.InvolvedEmployee{Name: "Late Witness"}, s.cmd())
		s.ErrorIs(err, models.ErrCaseLocked)
	})
}

func (s *LifecycleSuite) TestUpdateNotesAndPolicy() {
	c := s.newCase()
	s.Require().NoError(c.UpdateNotes("initial interview done", s.cmd()))
	s.Equal("initial interview done", c.SupervisorNotes())

	before := c.AuditLen()
	s.Require().NoError(c.UpdateNotes("initial interview done", s.cmd()))
	s.Equal(before, c.AuditLen(), "unchanged notes record nothing")

	policyID := s.ids.NewUUID()
	s.Require().NoError(c.SetActivePolicy(domain.PolicyID(policyID), s.cmd()))
	s.Require().NotNil(c.ActivePolicyID())
	s.Equal(policyID.String(), c.ActivePolicyID().String())
}

func (s *LifecycleSuite) TestFailuresAreTyped() {
	c := s.newCase()
	err := c.Open(s.cmd())
	var de *dErrors.Error
	s.Require().True(errors.As(err, &de))
	s.Equal(dErrors.CodeInvariantViolation, de.Code)
}
