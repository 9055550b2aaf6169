package models

import (
	"fmt"

	"casework/pkg/domain"
)

// IntegrityProblem is one broken invariant found by VerifyIntegrity.
type IntegrityProblem struct {
	DocumentID domain.DocumentID `json:"documentId,omitzero"`
	Check      string            `json:"check"`
	Detail     string            `json:"detail"`
}

func (p IntegrityProblem) String() string {
	if p.DocumentID.IsNil() {
		return p.Check + ": " + p.Detail
	}
	return fmt.Sprintf("%s [%s]: %s", p.Check, p.DocumentID, p.Detail)
}

// Integrity check names.
const (
	CheckVersionHash      = "version_hash"
	CheckReviewOrder      = "review_order"
	CheckSignatureOrder   = "signature_order"
	CheckCertifyOrder     = "certification_order"
	CheckDuplicateType    = "duplicate_complaint"
	CheckReviewEvidence   = "review_evidence"
	CheckSelectedAction   = "selected_action"
	CheckClosedAt         = "closed_at"
	CheckGeneratedPremise = "generated_document"
)

// VerifyIntegrity re-derives every stored fingerprint and re-checks the ordering and evidence
// invariants. It is meant for documents that crossed a trust boundary, such as a case restored
// from storage or an exported file. It returns every problem found, or nil.
func (c *ConflictCase) VerifyIntegrity() []IntegrityProblem {
	var problems []IntegrityProblem
	add := func(id domain.DocumentID, check, detail string) {
		problems = append(problems, IntegrityProblem{DocumentID: id, Check: check, Detail: detail})
	}

	complaints := map[DocumentType]int{}
	for _, d := range c.documents {
		if d.Type.IsComplaint() {
			complaints[d.Type]++
		}
		if got := ComputeVersionHash(d); got != d.Audit.VersionHash {
			add(d.ID, CheckVersionHash, "stored "+d.Audit.VersionHash+" does not match content hash "+got)
		}
		review, signed, certified := d.Audit.EmployeeReviewTimestamp, d.Audit.EmployeeSignatureTimestamp, d.Audit.SupervisorCertificationTimestamp
		if review != nil && review.Before(d.CreatedAt) {
			add(d.ID, CheckReviewOrder, "review precedes document creation")
		}
		if signed != nil && (review == nil || signed.Before(*review)) {
			add(d.ID, CheckSignatureOrder, "signature without a preceding review")
		}
		if certified != nil && (signed == nil || certified.Before(*signed)) {
			add(d.ID, CheckCertifyOrder, "certification without a preceding signature")
		}
	}
	for _, t := range []DocumentType{DocumentComplaintA, DocumentComplaintB} {
		if n := complaints[t]; n > 1 {
			add(domain.DocumentID{}, CheckDuplicateType, fmt.Sprintf("%d %s documents", n, t))
		}
	}

	if c.status.AtLeast(StatusPendingReview) && (!c.HasAllRequiredDocuments() || c.comparison == nil) {
		add(domain.DocumentID{}, CheckReviewEvidence, "case reached "+string(c.status)+" without complete evidence")
	}
	if c.selectedAction != "" && !c.IsRecommended(c.selectedAction) {
		add(domain.DocumentID{}, CheckSelectedAction, string(c.selectedAction)+" was selected but never recommended")
	}
	if c.generatedDocument != nil && c.selectedAction == "" {
		add(domain.DocumentID{}, CheckGeneratedPremise, "generated document exists without a selected action")
	}
	if c.status.IsTerminal() != (c.closedAt != nil) {
		add(domain.DocumentID{}, CheckClosedAt, "closedAt does not agree with status "+string(c.status))
	}
	return problems
}
