package models

import (
	"strings"

	"casework/pkg/domain"
)

// CanTransitionTo checks the edge and its evidence precondition without changing anything.
func (c *ConflictCase) CanTransitionTo(target CaseStatus) error {
	if !target.IsValid() {
		return invalid("invalid case status: " + string(target))
	}
	if c.status.IsTerminal() {
		return violation(ErrCaseLocked, "case "+c.caseNumber+" is "+string(c.status)+" and can no longer change")
	}
	if !c.status.CanTransitionTo(target) {
		return violation(ErrInvalidTransition, "cannot move case from "+string(c.status)+" to "+string(target))
	}

	switch target {
	case StatusInProgress:
		if len(c.complainants()) == 0 {
			return violation(ErrNoComplainant, "a complainant must be added before the case is opened")
		}
	case StatusPendingReview:
		if !c.HasAllRequiredDocuments() {
			return violation(ErrMissingEvidence, "both complaint documents with cleaned text are required for review")
		}
		if c.comparison == nil {
			return violation(ErrMissingEvidence, "an accepted comparison is required for review")
		}
	case StatusAwaitingAction:
		if len(c.recommendations) == 0 {
			return violation(ErrNoRecommendation, "at least one recommendation is required")
		}
	case StatusClosed:
		if c.selectedAction == "" {
			return violation(ErrNoActionSelected, "an action must be selected before the case is closed")
		}
		if c.generatedDocument != nil && !c.generatedDocument.IsApproved {
			return violation(ErrDocumentNotApproved, "the generated document must be approved before the case is closed")
		}
	case StatusEscalated:
		if c.selectedAction != ActionEscalateToHR {
			return violation(ErrEscalationNotSelected, "escalation requires the escalateToHR action to be selected")
		}
	}
	return nil
}

var transitionAudit = map[CaseStatus]AuditAction{
	StatusInProgress:     AuditCaseOpened,
	StatusPendingReview:  AuditCaseSubmittedForReview,
	StatusAwaitingAction: AuditCaseAwaitingAction,
	StatusClosed:         AuditCaseClosed,
	StatusEscalated:      AuditCaseEscalated,
}

// TransitionTo moves the case one step forward. Entering a terminal state stamps closedAt.
func (c *ConflictCase) TransitionTo(target CaseStatus, cmd Command) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	if err := c.CanTransitionTo(target); err != nil {
		return err
	}

	from := c.status
	c.status = target
	if target.IsTerminal() {
		at := cmd.At
		c.closedAt = &at
	}
	c.touch(transitionAudit[target], "status changed from "+string(from)+" to "+string(target), cmd)
	return nil
}

func (c *ConflictCase) Open(cmd Command) error {
	return c.TransitionTo(StatusInProgress, cmd)
}

func (c *ConflictCase) SubmitForReview(cmd Command) error {
	return c.TransitionTo(StatusPendingReview, cmd)
}

func (c *ConflictCase) AwaitAction(cmd Command) error {
	return c.TransitionTo(StatusAwaitingAction, cmd)
}

func (c *ConflictCase) Close(cmd Command) error {
	return c.TransitionTo(StatusClosed, cmd)
}

func (c *ConflictCase) Escalate(cmd Command) error {
	return c.TransitionTo(StatusEscalated, cmd)
}

// AddEmployee registers a party or witness. The first two complainants become Party A and
// Party B, so employees can only be added while the case is being assembled.
func (c *ConflictCase) AddEmployee(e InvolvedEmployee, cmd Command) (domain.EmployeeID, error) {
	if err := c.begin(cmd); err != nil {
		return domain.EmployeeID{}, err
	}
	if c.status != StatusDraft && c.status != StatusInProgress {
		return domain.EmployeeID{}, violation(ErrCaseLocked, "employees cannot be added once the case is "+string(c.status))
	}
	if e.ID.IsNil() {
		e.ID = domain.EmployeeID(cmd.newID())
	}
	e.Name = strings.TrimSpace(e.Name)
	if err := e.validate(); err != nil {
		return domain.EmployeeID{}, err
	}
	if c.hasEmployee(e.ID) {
		return domain.EmployeeID{}, invalid("employee " + e.ID.String() + " is already part of the case")
	}

	c.employees = append(c.employees, e)
	role := "witness"
	if e.IsComplainant {
		role = "complainant"
	}
	c.touch(AuditEmployeeAdded, e.Name+" added as "+role, cmd)
	return e.ID, nil
}

// UpdateNotes replaces the supervisor's free-text notes.
func (c *ConflictCase) UpdateNotes(notes string, cmd Command) error {
	if err := c.begin(cmd); err != nil {
		return err
	}
	if notes == c.supervisorNotes {
		return nil
	}
	c.supervisorNotes = notes
	c.touch(AuditNotesUpdated, "supervisor notes updated", cmd)
	return nil
}

// SetActivePolicy links the policy the case is assessed against.
func (c *ConflictCase) SetActivePolicy(id domain.PolicyID, cmd Command) error {
	if err := c.begin(cmd); err != nil {
		return err
	}
	if id.IsNil() {
		return invalid("policy id is required")
	}
	c.activePolicyID = &id
	c.touch(AuditPolicyLinked, "policy "+id.String()+" linked", cmd)
	return nil
}

// RecordExport notes that the case was rendered for an external package. It is the only command
// a finalized case accepts, and it only appends to the audit log: updatedAt and every other field
// stay as they were.
func (c *ConflictCase) RecordExport(format string, cmd Command) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	format = strings.TrimSpace(format)
	if format == "" {
		return invalid("export format is required")
	}
	c.appendAudit(AuditCaseExported, "case exported as "+format, cmd)
	return nil
}
