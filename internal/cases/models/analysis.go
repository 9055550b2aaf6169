package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CanRunComparison reports whether a comparison may be accepted: both complaint documents are
// present and no comparison has been accepted yet.
func (c *ConflictCase) CanRunComparison() bool {
	return c.HasAllRequiredDocuments() && c.comparison == nil
}

// AcceptComparison stores an externally produced comparison verbatim. Acceptance is one-shot.
func (c *ConflictCase) AcceptComparison(result AIComparisonResult, cmd Command) error {
	if err := c.begin(cmd); err != nil {
		return err
	}
	if c.comparison != nil {
		return violation(ErrComparisonAlreadyPresent, "case "+c.caseNumber+" already has an accepted comparison")
	}
	if !c.HasAllRequiredDocuments() {
		return violation(ErrMissingEvidence, "both complaint documents with cleaned text are required before comparison")
	}
	if err := result.Validate(); err != nil {
		return err
	}

	accepted := result.clone()
	c.comparison = &accepted
	c.touch(AuditComparisonAccepted, fmt.Sprintf("comparison accepted with %d side-by-side topics", len(accepted.SideBySide)), cmd)
	return nil
}

// AddPolicyMatch appends a policy match. Several matches may reference the same section.
func (c *ConflictCase) AddPolicyMatch(match PolicyMatch, cmd Command) (uuid.UUID, error) {
	if err := c.begin(cmd); err != nil {
		return uuid.Nil, err
	}
	if err := match.Validate(); err != nil {
		return uuid.Nil, err
	}
	if match.ID == uuid.Nil {
		match.ID = cmd.newID()
	}

	c.policyMatches = append(c.policyMatches, match)
	c.touch(AuditPolicyMatchAdded, fmt.Sprintf("policy section %s matched (confidence %.2f)", match.SectionNumber, match.MatchConfidence), cmd)
	return match.ID, nil
}

// AddRecommendation appends a candidate action from the external recommender.
func (c *ConflictCase) AddRecommendation(rec AIRecommendation, cmd Command) (uuid.UUID, error) {
	if err := c.begin(cmd); err != nil {
		return uuid.Nil, err
	}
	if err := rec.Validate(); err != nil {
		return uuid.Nil, err
	}
	rec = rec.clone()
	if rec.ID == uuid.Nil {
		rec.ID = cmd.newID()
	}

	c.recommendations = append(c.recommendations, rec)
	c.touch(AuditRecommendationAdded, fmt.Sprintf("%s recommended (confidence %.2f)", rec.Action, rec.Confidence), cmd)
	return rec.ID, nil
}

// IsRecommended reports whether any recommendation proposes action.
func (c *ConflictCase) IsRecommended(action RecommendedAction) bool {
	for _, r := range c.recommendations {
		if r.Action == action {
			return true
		}
	}
	return false
}

// SelectAction records the supervisor's decision. Only a previously recommended action may be
// chosen, and once chosen the decision is fixed. Selecting the same action again is a no-op.
func (c *ConflictCase) SelectAction(action RecommendedAction, cmd Command) error {
	if err := c.begin(cmd); err != nil {
		return err
	}
	if c.status != StatusPendingReview && c.status != StatusAwaitingAction {
		return violation(ErrActionSelectionNotAllowed, "an action can only be selected during review, case is "+string(c.status))
	}
	if c.selectedAction != "" {
		if c.selectedAction == action {
			return nil
		}
		return violation(ErrActionAlreadySelected, "case "+c.caseNumber+" already selected "+string(c.selectedAction))
	}
	if !c.IsRecommended(action) {
		return violation(ErrActionNotRecommended, string(action)+" was not recommended for case "+c.caseNumber)
	}

	c.selectedAction = action
	c.touch(AuditActionSelected, string(action)+" selected", cmd)
	return nil
}

// AttachGeneratedDocument stores the drafted document for the selected action, replacing an
// earlier unapproved draft.
func (c *ConflictCase) AttachGeneratedDocument(content string, cmd Command) (uuid.UUID, error) {
	if err := c.begin(cmd); err != nil {
		return uuid.Nil, err
	}
	if c.selectedAction == "" {
		return uuid.Nil, violation(ErrNoActionSelected, "an action must be selected before a document is generated")
	}
	if c.generatedDocument != nil && c.generatedDocument.IsApproved {
		return uuid.Nil, violation(ErrDocumentApproved, "the generated document is approved and frozen")
	}
	if strings.TrimSpace(content) == "" {
		return uuid.Nil, invalid("generated document content is required")
	}

	replaced := c.generatedDocument != nil
	c.generatedDocument = &GeneratedActionDocument{
		ID:        cmd.newID(),
		Action:    c.selectedAction,
		Content:   content,
		CreatedAt: cmd.At,
	}
	details := string(c.selectedAction) + " document generated"
	if replaced {
		details += ", replacing the previous draft"
	}
	c.touch(AuditGeneratedDocumentAttached, details, cmd)
	return c.generatedDocument.ID, nil
}

// EditGeneratedDocument stores the supervisor's revision of the generated text.
func (c *ConflictCase) EditGeneratedDocument(edits string, cmd Command) error {
	if err := c.begin(cmd); err != nil {
		return err
	}
	if c.generatedDocument == nil {
		return missing(ErrDocumentNotFound, "case "+c.caseNumber+" has no generated document")
	}
	if c.generatedDocument.IsApproved {
		return violation(ErrDocumentApproved, "the generated document is approved and frozen")
	}

	c.generatedDocument.SupervisorEdits = edits
	c.touch(AuditGeneratedDocumentEdited, "supervisor edited the generated document", cmd)
	return nil
}

// ApproveGeneratedDocument freezes the generated document.
func (c *ConflictCase) ApproveGeneratedDocument(cmd Command) error {
	if err := c.begin(cmd); err != nil {
		return err
	}
	if c.generatedDocument == nil {
		return missing(ErrDocumentNotFound, "case "+c.caseNumber+" has no generated document")
	}
	if c.generatedDocument.IsApproved {
		return violation(ErrDocumentApproved, "the generated document is already approved")
	}

	at := cmd.At
	c.generatedDocument.IsApproved = true
	c.generatedDocument.ApprovedAt = &at
	c.generatedDocument.ApprovedBy = cmd.Actor.ID
	c.touch(AuditGeneratedDocumentApproved, "generated "+string(c.generatedDocument.Action)+" document approved", cmd)
	return nil
}
