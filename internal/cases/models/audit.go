package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// AuditAction labels one kind of case mutation.
type AuditAction string

const (
	AuditCaseCreated               AuditAction = "case_created"
	AuditCaseOpened                AuditAction = "case_opened"
	AuditCaseSubmittedForReview    AuditAction = "case_submitted_for_review"
	AuditCaseAwaitingAction        AuditAction = "case_awaiting_action"
	AuditCaseClosed                AuditAction = "case_closed"
	AuditCaseEscalated             AuditAction = "case_escalated"
	AuditCaseExported              AuditAction = "case_exported"
	AuditEmployeeAdded             AuditAction = "employee_added"
	AuditNotesUpdated              AuditAction = "notes_updated"
	AuditPolicyLinked              AuditAction = "policy_linked"
	AuditDocumentAttached          AuditAction = "document_attached"
	AuditDocumentReviewed          AuditAction = "document_reviewed"
	AuditDocumentSigned            AuditAction = "document_signed"
	AuditDocumentCertified         AuditAction = "document_certified"
	AuditDocumentEdited            AuditAction = "document_edited"
	AuditComparisonAccepted        AuditAction = "comparison_accepted"
	AuditPolicyMatchAdded          AuditAction = "policy_match_added"
	AuditRecommendationAdded       AuditAction = "recommendation_added"
	AuditActionSelected            AuditAction = "action_selected"
	AuditGeneratedDocumentAttached AuditAction = "generated_document_attached"
	AuditGeneratedDocumentEdited   AuditAction = "generated_document_edited"
	AuditGeneratedDocumentApproved AuditAction = "generated_document_approved"
)

// AuditCategory groups actions for export routing and retention.
type AuditCategory string

const (
	// CategoryCompliance covers status transitions and document attestations; exporters must
	// persist these before acknowledging.
	CategoryCompliance AuditCategory = "compliance"
	// CategoryOperations covers routine edits and analysis intake.
	CategoryOperations AuditCategory = "operations"
)

var auditCategories = map[AuditAction]AuditCategory{
	AuditCaseCreated:               CategoryCompliance,
	AuditCaseOpened:                CategoryCompliance,
	AuditCaseSubmittedForReview:    CategoryCompliance,
	AuditCaseAwaitingAction:        CategoryCompliance,
	AuditCaseClosed:                CategoryCompliance,
	AuditCaseEscalated:             CategoryCompliance,
	AuditDocumentAttached:          CategoryCompliance,
	AuditDocumentReviewed:          CategoryCompliance,
	AuditDocumentSigned:            CategoryCompliance,
	AuditDocumentCertified:         CategoryCompliance,
	AuditDocumentEdited:            CategoryCompliance,
	AuditActionSelected:            CategoryCompliance,
	AuditGeneratedDocumentApproved: CategoryCompliance,
}

// Category returns the export category of the action. Unlisted actions are operational.
func (a AuditAction) Category() AuditCategory {
	if c, ok := auditCategories[a]; ok {
		return c
	}
	return CategoryOperations
}

// CaseAuditEntry is one immutable record of a case mutation.
type CaseAuditEntry struct {
	ID        uuid.UUID   `json:"id"`
	Action    AuditAction `json:"action"`
	Details   string      `json:"details"`
	ActorID   string      `json:"actorId"`
	ActorName string      `json:"actorName"`
	Timestamp time.Time   `json:"timestamp"`
}

// appendAudit is the only writer of the audit log. Every command calls it once, after all of its
// preconditions have passed.
func (c *ConflictCase) appendAudit(action AuditAction, details string, cmd Command) {
	c.auditLog = append(c.auditLog, CaseAuditEntry{
		ID:        cmd.newID(),
		Action:    action,
		Details:   details,
		ActorID:   cmd.Actor.ID,
		ActorName: cmd.Actor.Name,
		Timestamp: cmd.At,
	})
}

// AuditLog returns a copy of the trail ordered by timestamp, insertion order breaking ties.
func (c *ConflictCase) AuditLog() []CaseAuditEntry {
	out := slices.Clone(c.auditLog)
	slices.SortStableFunc(out, func(a, b CaseAuditEntry) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}

// AuditLen is the number of recorded entries. It never decreases.
func (c *ConflictCase) AuditLen() int {
	return len(c.auditLog)
}

// AuditSince returns entries appended after the first n, in insertion order. Publishers use it
// to export exactly the entries a command added.
func (c *ConflictCase) AuditSince(n int) []CaseAuditEntry {
	if n < 0 {
		n = 0
	}
	if n >= len(c.auditLog) {
		return nil
	}
	return slices.Clone(c.auditLog[n:])
}
