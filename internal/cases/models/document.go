package models

import (
	"slices"
	"strings"
	"time"

	"casework/pkg/domain"
)

// DocumentType classifies a scanned document.
type DocumentType string

const (
	DocumentComplaintA       DocumentType = "complaintA"
	DocumentComplaintB       DocumentType = "complaintB"
	DocumentWitnessStatement DocumentType = "witnessStatement"
	DocumentPriorRecord      DocumentType = "priorRecord"
	DocumentCounselingRecord DocumentType = "counselingRecord"
	DocumentWarningDocument  DocumentType = "warningDocument"
	DocumentEvidence         DocumentType = "evidence"
	DocumentOther            DocumentType = "other"
)

func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentComplaintA, DocumentComplaintB, DocumentWitnessStatement, DocumentPriorRecord,
		DocumentCounselingRecord, DocumentWarningDocument, DocumentEvidence, DocumentOther:
		return true
	}
	return false
}

// IsComplaint reports whether at most one document of this type may exist per case.
func (t DocumentType) IsComplaint() bool {
	return t == DocumentComplaintA || t == DocumentComplaintB
}

// CaseDocument is one scanned document and its integrity bookkeeping.
//
// Invariants:
//   - RawText never changes after attachment
//   - Audit.VersionHash == ComputeVersionHash(doc) at all times
//   - every superseded hash is kept in HashHistory
//   - createdAt <= review <= signature <= certification
type CaseDocument struct {
	ID                 domain.DocumentID  `json:"id"`
	Type               DocumentType       `json:"type"`
	OriginalImageRefs  []string           `json:"originalImageRefs"`
	ProcessedImageRefs []string           `json:"processedImageRefs"`
	RawText            string             `json:"rawText"`
	TranslatedText     string             `json:"translatedText,omitempty"`
	CleanedText        string             `json:"cleanedText"`
	DetectedLanguage   string             `json:"detectedLanguage"`
	IsHandwritten      bool               `json:"isHandwritten"`
	EmployeeID         *domain.EmployeeID `json:"employeeId,omitempty"`
	SubmittedBy        string             `json:"submittedBy"`
	PageCount          int                `json:"pageCount"`
	CreatedAt          time.Time          `json:"createdAt"`
	Audit              DocumentAudit      `json:"audit"`
	HashHistory        []ArchivedHash     `json:"hashHistory,omitempty"`
}

// DocumentAudit carries attestation timestamps and provenance for a document.
type DocumentAudit struct {
	SignatureImage                   string     `json:"signatureImage,omitempty"`
	EmployeeReviewTimestamp          *time.Time `json:"employeeReviewTimestamp,omitempty"`
	EmployeeSignatureTimestamp       *time.Time `json:"employeeSignatureTimestamp,omitempty"`
	SupervisorCertificationTimestamp *time.Time `json:"supervisorCertificationTimestamp,omitempty"`
	SupervisorID                     string     `json:"supervisorId,omitempty"`
	SupervisorName                   string     `json:"supervisorName,omitempty"`
	SubmittedByID                    string     `json:"submittedById,omitempty"`
	DeviceID                         string     `json:"deviceId,omitempty"`
	AppVersion                       string     `json:"appVersion,omitempty"`
	VersionHash                      string     `json:"versionHash"`
}

// ArchivedHash is a superseded versionHash.
type ArchivedHash struct {
	Hash       string    `json:"hash"`
	ArchivedAt time.Time `json:"archivedAt"`
	Reason     string    `json:"reason"`
}

func (d CaseDocument) validate() error {
	if d.ID.IsNil() {
		return invalid("document id is required")
	}
	if !d.Type.IsValid() {
		return invalid("invalid document type: " + string(d.Type))
	}
	if d.PageCount < 0 {
		return invalid("page count cannot be negative")
	}
	if strings.TrimSpace(d.SubmittedBy) == "" {
		return invalid("document submitter is required")
	}
	if d.Audit.EmployeeReviewTimestamp != nil || d.Audit.EmployeeSignatureTimestamp != nil ||
		d.Audit.SupervisorCertificationTimestamp != nil {
		return invalid("attestations must be recorded through the ledger, not at attachment")
	}
	return nil
}

func (d CaseDocument) clone() CaseDocument {
	out := d
	out.OriginalImageRefs = slices.Clone(d.OriginalImageRefs)
	out.ProcessedImageRefs = slices.Clone(d.ProcessedImageRefs)
	out.HashHistory = slices.Clone(d.HashHistory)
	if d.EmployeeID != nil {
		id := *d.EmployeeID
		out.EmployeeID = &id
	}
	out.Audit.EmployeeReviewTimestamp = cloneTime(d.Audit.EmployeeReviewTimestamp)
	out.Audit.EmployeeSignatureTimestamp = cloneTime(d.Audit.EmployeeSignatureTimestamp)
	out.Audit.SupervisorCertificationTimestamp = cloneTime(d.Audit.SupervisorCertificationTimestamp)
	return out
}

// IsReviewed reports whether the employee has reviewed the extracted text.
func (d CaseDocument) IsReviewed() bool { return d.Audit.EmployeeReviewTimestamp != nil }

// IsSigned reports whether the employee has signed the document.
func (d CaseDocument) IsSigned() bool { return d.Audit.EmployeeSignatureTimestamp != nil }

// IsCertified reports whether a supervisor has certified the document.
func (d CaseDocument) IsCertified() bool { return d.Audit.SupervisorCertificationTimestamp != nil }

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
