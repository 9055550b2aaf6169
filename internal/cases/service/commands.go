package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"casework/internal/cases/models"
	"casework/internal/policy"
	"casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
	"casework/pkg/platform/sentinel"
	"casework/pkg/requestcontext"
)

// Command names used for spans and metrics.
const (
	cmdAddEmployee         = "add_employee"
	cmdAttachDocument      = "attach_document"
	cmdRecordReview        = "record_review"
	cmdRecordSignature     = "record_signature"
	cmdCertify             = "certify_supervisor"
	cmdEditText            = "edit_text"
	cmdTransition          = "transition"
	cmdUpdateNotes         = "update_notes"
	cmdLinkPolicy          = "link_policy"
	cmdAcceptComparison    = "accept_comparison"
	cmdAddPolicyMatch      = "add_policy_match"
	cmdAddRecommendations  = "add_recommendations"
	cmdSelectAction        = "select_action"
	cmdAttachGenerated     = "attach_generated_document"
	cmdEditGenerated       = "edit_generated_document"
	cmdApproveGenerated    = "approve_generated_document"
	cmdExport              = "export"
	defaultSupervisorTitle = "supervisor"
)

// ExportFormatJSON is the only export rendering.
const ExportFormatJSON = "json"

// AddEmployee registers a party or witness and returns the employee id.
func (s *Service) AddEmployee(ctx context.Context, id domain.CaseID, e models.InvolvedEmployee) (domain.EmployeeID, *models.ConflictCase, error) {
	var added domain.EmployeeID
	c, err := s.Execute(ctx, id, cmdAddEmployee, func(c *models.ConflictCase, cmd models.Command) error {
		var err error
		added, err = c.AddEmployee(e, cmd)
		return err
	})
	return added, c, err
}

// AttachDocument adds a document to the ledger. Device and app version default to the values the
// submitting client announced for this request.
func (s *Service) AttachDocument(ctx context.Context, id domain.CaseID, doc models.CaseDocument) (domain.DocumentID, *models.ConflictCase, error) {
	if doc.Audit.DeviceID == "" {
		doc.Audit.DeviceID = requestcontext.DeviceID(ctx)
	}
	if doc.Audit.AppVersion == "" {
		doc.Audit.AppVersion = requestcontext.AppVersion(ctx)
	}
	if doc.SubmittedBy == "" {
		doc.SubmittedBy = requestcontext.ActorName(ctx)
	}
	var attached domain.DocumentID
	c, err := s.Execute(ctx, id, cmdAttachDocument, func(c *models.ConflictCase, cmd models.Command) error {
		var err error
		attached, err = c.AttachDocument(doc, cmd)
		return err
	})
	return attached, c, err
}

// RecordReview stamps the employee review of a document. A zero at uses the request time.
func (s *Service) RecordReview(ctx context.Context, id domain.CaseID, docID domain.DocumentID, at time.Time) (*models.ConflictCase, error) {
	return s.Execute(ctx, id, cmdRecordReview, func(c *models.ConflictCase, cmd models.Command) error {
		return c.RecordEmployeeReview(docID, orNow(at, cmd), cmd)
	})
}

// RecordSignature stamps the employee signature of a reviewed document.
func (s *Service) RecordSignature(ctx context.Context, id domain.CaseID, docID domain.DocumentID, signatureImage string, at time.Time) (*models.ConflictCase, error) {
	return s.Execute(ctx, id, cmdRecordSignature, func(c *models.ConflictCase, cmd models.Command) error {
		return c.RecordEmployeeSignature(docID, signatureImage, orNow(at, cmd), cmd)
	})
}

// CertifySupervisor records the certification of a signed document. The supervisor defaults to
// the acting user.
func (s *Service) CertifySupervisor(ctx context.Context, id domain.CaseID, docID domain.DocumentID, supervisorID, supervisorName string, at time.Time) (*models.ConflictCase, error) {
	return s.Execute(ctx, id, cmdCertify, func(c *models.ConflictCase, cmd models.Command) error {
		if strings.TrimSpace(supervisorID) == "" {
			supervisorID, supervisorName = cmd.Actor.ID, cmd.Actor.Name
		}
		if strings.TrimSpace(supervisorName) == "" {
			supervisorName = defaultSupervisorTitle
		}
		return c.CertifySupervisor(docID, supervisorID, supervisorName, orNow(at, cmd), cmd)
	})
}

// EditText replaces a document's cleaned text while the case is still being assembled.
func (s *Service) EditText(ctx context.Context, id domain.CaseID, docID domain.DocumentID, cleanedText string) (*models.ConflictCase, error) {
	return s.Execute(ctx, id, cmdEditText, func(c *models.ConflictCase, cmd models.Command) error {
		return c.EditText(docID, cleanedText, cmd)
	})
}

// Transition moves the case to target.
func (s *Service) Transition(ctx context.Context, id domain.CaseID, target models.CaseStatus) (*models.ConflictCase, error) {
	c, err := s.Execute(ctx, id, cmdTransition, func(c *models.ConflictCase, cmd models.Command) error {
		return c.TransitionTo(target, cmd)
	})
	result := "ok"
	if err != nil {
		result = string(dErrors.CodeOf(err))
	}
	s.metrics.IncrementTransition(string(target), result)
	return c, err
}

// UpdateNotes replaces the supervisor notes.
func (s *Service) UpdateNotes(ctx context.Context, id domain.CaseID, notes string) (*models.ConflictCase, error) {
	return s.Execute(ctx, id, cmdUpdateNotes, func(c *models.ConflictCase, cmd models.Command) error {
		return c.UpdateNotes(notes, cmd)
	})
}

// LinkPolicy sets the policy the case is assessed against. With a policy index configured the
// policy must be known to it.
func (s *Service) LinkPolicy(ctx context.Context, id domain.CaseID, policyID domain.PolicyID) (*models.ConflictCase, error) {
	if s.policies != nil {
		if _, err := s.policies.Search(policyID, ""); err != nil {
			return nil, policyError(err, "policy "+policyID.String()+" is not loaded")
		}
	}
	return s.Execute(ctx, id, cmdLinkPolicy, func(c *models.ConflictCase, cmd models.Command) error {
		return c.SetActivePolicy(policyID, cmd)
	})
}

// AcceptComparison stores the statement comparison. It can only be accepted once.
func (s *Service) AcceptComparison(ctx context.Context, id domain.CaseID, result models.AIComparisonResult) (*models.ConflictCase, error) {
	return s.Execute(ctx, id, cmdAcceptComparison, func(c *models.ConflictCase, cmd models.Command) error {
		return c.AcceptComparison(result, cmd)
	})
}

// AddPolicyMatch appends a policy match. When the case links a policy and an index is configured,
// the section must exist in that policy and its number and title are taken from it.
func (s *Service) AddPolicyMatch(ctx context.Context, id domain.CaseID, match models.PolicyMatch) (*models.ConflictCase, error) {
	return s.Execute(ctx, id, cmdAddPolicyMatch, func(c *models.ConflictCase, cmd models.Command) error {
		if policyID := c.ActivePolicyID(); policyID != nil && s.policies != nil {
			section, err := s.policies.Section(*policyID, match.PolicySectionID)
			if err != nil {
				return policyError(err, "section "+match.PolicySectionID.String()+" is not part of policy "+policyID.String())
			}
			match.SectionNumber = section.SectionNumber
			match.SectionTitle = section.Title
		}
		_, err := c.AddPolicyMatch(match, cmd)
		return err
	})
}

// AddRecommendations appends a batch of recommendations in one save. The first rejected entry
// fails the whole batch.
func (s *Service) AddRecommendations(ctx context.Context, id domain.CaseID, recs []models.AIRecommendation) (*models.ConflictCase, error) {
	if len(recs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one recommendation is required")
	}
	return s.Execute(ctx, id, cmdAddRecommendations, func(c *models.ConflictCase, cmd models.Command) error {
		for _, rec := range recs {
			if _, err := c.AddRecommendation(rec, cmd); err != nil {
				return err
			}
		}
		return nil
	})
}

// SelectAction records the supervisor's decision.
func (s *Service) SelectAction(ctx context.Context, id domain.CaseID, action models.RecommendedAction) (*models.ConflictCase, error) {
	return s.Execute(ctx, id, cmdSelectAction, func(c *models.ConflictCase, cmd models.Command) error {
		return c.SelectAction(action, cmd)
	})
}

// AttachGeneratedDocument stores the drafted document for the selected action.
func (s *Service) AttachGeneratedDocument(ctx context.Context, id domain.CaseID, content string) (*models.ConflictCase, error) {
	return s.Execute(ctx, id, cmdAttachGenerated, func(c *models.ConflictCase, cmd models.Command) error {
		_, err := c.AttachGeneratedDocument(content, cmd)
		return err
	})
}

// EditGeneratedDocument records supervisor edits to the draft.
func (s *Service) EditGeneratedDocument(ctx context.Context, id domain.CaseID, edits string) (*models.ConflictCase, error) {
	return s.Execute(ctx, id, cmdEditGenerated, func(c *models.ConflictCase, cmd models.Command) error {
		return c.EditGeneratedDocument(edits, cmd)
	})
}

// ApproveGeneratedDocument freezes the draft.
func (s *Service) ApproveGeneratedDocument(ctx context.Context, id domain.CaseID) (*models.ConflictCase, error) {
	return s.Execute(ctx, id, cmdApproveGenerated, func(c *models.ConflictCase, cmd models.Command) error {
		return c.ApproveGeneratedDocument(cmd)
	})
}

// ExportCase records the export and returns the case document as stored. Finalized cases can be
// exported.
func (s *Service) ExportCase(ctx context.Context, id domain.CaseID, format string) ([]byte, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatJSON
	}
	if format != ExportFormatJSON {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unsupported export format: "+format)
	}
	c, err := s.Execute(ctx, id, cmdExport, func(c *models.ConflictCase, cmd models.Command) error {
		return c.RecordExport(format, cmd)
	})
	if err != nil {
		return nil, err
	}
	out, err := c.MarshalJSON()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render case")
	}
	return out, nil
}

// Verify recomputes every document fingerprint and checks the ledger ordering.
func (s *Service) Verify(ctx context.Context, id domain.CaseID) ([]models.IntegrityProblem, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.VerifyIntegrity(), nil
}

// SearchPolicy searches the sections of a loaded policy.
func (s *Service) SearchPolicy(ctx context.Context, policyID domain.PolicyID, query string, types ...policy.SectionType) ([]policy.Section, error) {
	if s.policies == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "no policies are loaded")
	}
	sections, err := s.policies.Search(policyID, query, types...)
	if err != nil {
		return nil, policyError(err, "policy "+policyID.String()+" is not loaded")
	}
	return sections, nil
}

func orNow(at time.Time, cmd models.Command) time.Time {
	if at.IsZero() {
		return cmd.At
	}
	return at
}

func policyError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	}
	return translate(err, "look up policy")
}
