package models

import (
	"strings"
	"time"

	"casework/pkg/domain"
)

// AttachDocument adds a scanned document to the case and fingerprints its content.
// A nil document id is assigned from the command's id source. createdAt defaults to the command
// time and may not lie in the future. At most one complaintA and one complaintB may exist.
func (c *ConflictCase) AttachDocument(doc CaseDocument, cmd Command) (domain.DocumentID, error) {
	if err := c.begin(cmd); err != nil {
		return domain.DocumentID{}, err
	}

	doc = doc.clone()
	if doc.ID.IsNil() {
		doc.ID = domain.DocumentID(cmd.newID())
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = cmd.At
	}
	if strings.TrimSpace(doc.Audit.SubmittedByID) == "" {
		doc.Audit.SubmittedByID = cmd.Actor.ID
	}
	if err := doc.validate(); err != nil {
		return domain.DocumentID{}, err
	}
	if doc.CreatedAt.After(cmd.At) {
		return domain.DocumentID{}, violation(ErrInvalidTimestamp, "document createdAt cannot be in the future")
	}
	if c.documentIndex(doc.ID) >= 0 {
		return domain.DocumentID{}, invalid("document " + doc.ID.String() + " is already attached")
	}
	if doc.EmployeeID != nil && !c.hasEmployee(*doc.EmployeeID) {
		return domain.DocumentID{}, invalid("document references unknown employee " + doc.EmployeeID.String())
	}
	if doc.Type.IsComplaint() && c.hasDocumentType(doc.Type) {
		return domain.DocumentID{}, violation(ErrDuplicateDocumentType, "case already has a "+string(doc.Type)+" document")
	}

	doc.HashHistory = nil
	doc.Audit.VersionHash = ComputeVersionHash(doc)
	c.documents = append(c.documents, doc)
	c.touch(AuditDocumentAttached, string(doc.Type)+" document "+doc.ID.String()+" attached", cmd)
	return doc.ID, nil
}

// RecordEmployeeReview stamps the moment the employee reviewed the extracted text. Reviews are
// one-shot and cannot precede the document's creation.
func (c *ConflictCase) RecordEmployeeReview(id domain.DocumentID, at time.Time, cmd Command) error {
	i, err := c.ledgerEntry(id, cmd)
	if err != nil {
		return err
	}
	doc := &c.documents[i]
	if doc.IsReviewed() {
		return violation(ErrAlreadyReviewed, "document "+id.String()+" was already reviewed")
	}
	if at.IsZero() || at.Before(doc.CreatedAt) {
		return violation(ErrInvalidTimestamp, "review cannot precede document creation")
	}

	doc.Audit.EmployeeReviewTimestamp = &at
	c.touch(AuditDocumentReviewed, "employee reviewed document "+id.String(), cmd)
	return nil
}

// RecordEmployeeSignature stamps the employee's signature. It requires a prior review with a
// timestamp not after the signature.
func (c *ConflictCase) RecordEmployeeSignature(id domain.DocumentID, signatureImage string, at time.Time, cmd Command) error {
	i, err := c.ledgerEntry(id, cmd)
	if err != nil {
		return err
	}
	doc := &c.documents[i]
	review := doc.Audit.EmployeeReviewTimestamp
	if review == nil || at.Before(*review) {
		return violation(ErrReviewRequiredFirst, "document "+id.String()+" must be reviewed before it is signed")
	}
	if doc.IsSigned() {
		return violation(ErrAlreadySigned, "document "+id.String()+" was already signed")
	}
	if strings.TrimSpace(signatureImage) == "" {
		return invalid("signature image is required")
	}

	doc.Audit.SignatureImage = signatureImage
	doc.Audit.EmployeeSignatureTimestamp = &at
	c.touch(AuditDocumentSigned, "employee signed document "+id.String(), cmd)
	return nil
}

// CertifySupervisor records the supervisor's acceptance of a signed document.
func (c *ConflictCase) CertifySupervisor(id domain.DocumentID, supervisorID, supervisorName string, at time.Time, cmd Command) error {
	i, err := c.ledgerEntry(id, cmd)
	if err != nil {
		return err
	}
	doc := &c.documents[i]
	signed := doc.Audit.EmployeeSignatureTimestamp
	if signed == nil || at.Before(*signed) {
		return violation(ErrSignatureRequiredFirst, "document "+id.String()+" must be signed before certification")
	}
	if doc.IsCertified() {
		return violation(ErrAlreadyCertified, "document "+id.String()+" was already certified")
	}
	if strings.TrimSpace(supervisorID) == "" {
		return invalid("supervisor id is required")
	}

	doc.Audit.SupervisorCertificationTimestamp = &at
	doc.Audit.SupervisorID = supervisorID
	doc.Audit.SupervisorName = supervisorName
	c.touch(AuditDocumentCertified, "supervisor "+supervisorID+" certified document "+id.String(), cmd)
	return nil
}

// EditText replaces a document's cleaned text while the case is still being assembled. The
// superseded hash is archived before the new one is computed. Submitting the current text
// again changes nothing and records nothing.
func (c *ConflictCase) EditText(id domain.DocumentID, cleanedText string, cmd Command) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	if c.status != StatusDraft && c.status != StatusInProgress {
		return violation(ErrCaseLocked, "document text is locked once the case is "+string(c.status))
	}
	i := c.documentIndex(id)
	if i < 0 {
		return missing(ErrDocumentNotFound, "document "+id.String()+" is not part of case "+c.caseNumber)
	}
	doc := &c.documents[i]
	if doc.CleanedText == cleanedText {
		return nil
	}

	doc.HashHistory = append(doc.HashHistory, ArchivedHash{
		Hash:       doc.Audit.VersionHash,
		ArchivedAt: cmd.At,
		Reason:     "cleanedText edited",
	})
	doc.CleanedText = cleanedText
	doc.Audit.VersionHash = ComputeVersionHash(*doc)
	c.touch(AuditDocumentEdited, "cleaned text of document "+id.String()+" edited", cmd)
	return nil
}

// HasAllRequiredDocuments reports whether both complaint documents exist with non-empty
// cleaned text.
func (c *ConflictCase) HasAllRequiredDocuments() bool {
	var a, b bool
	for _, d := range c.documents {
		if strings.TrimSpace(d.CleanedText) == "" {
			continue
		}
		switch d.Type {
		case DocumentComplaintA:
			a = true
		case DocumentComplaintB:
			b = true
		}
	}
	return a && b
}

func (c *ConflictCase) hasDocumentType(t DocumentType) bool {
	for _, d := range c.documents {
		if d.Type == t {
			return true
		}
	}
	return false
}

// ledgerEntry resolves a document for an attestation command.
func (c *ConflictCase) ledgerEntry(id domain.DocumentID, cmd Command) (int, error) {
	if err := c.begin(cmd); err != nil {
		return -1, err
	}
	i := c.documentIndex(id)
	if i < 0 {
		return -1, missing(ErrDocumentNotFound, "document "+id.String()+" is not part of case "+c.caseNumber)
	}
	return i, nil
}
