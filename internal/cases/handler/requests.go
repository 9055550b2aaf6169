package handler

import (
	"strings"
	"time"

	"casework/internal/cases/models"
	"casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
)

const (
	maxTextLength      = 200_000
	maxShortField      = 200
	maxSignatureLength = 1 << 20
)

// CreateCaseRequest is the body of POST /cases.
type CreateCaseRequest struct {
	Type           string    `json:"type"`
	IncidentDate   time.Time `json:"incidentDate"`
	Location       string    `json:"location"`
	Department     string    `json:"department"`
	Shift          string    `json:"shift"`
	ActivePolicyID string    `json:"activePolicyId,omitempty"`

	parsedPolicyID *domain.PolicyID
}

func (r *CreateCaseRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Location) > maxShortField || len(r.Department) > maxShortField || len(r.Shift) > maxShortField {
		return dErrors.New(dErrors.CodeValidation, "location, department and shift must be at most 200 characters")
	}
	r.Type = strings.TrimSpace(r.Type)
	if !models.CaseType(r.Type).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid case type: "+r.Type)
	}
	if r.IncidentDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "incidentDate is required")
	}
	if id := strings.TrimSpace(r.ActivePolicyID); id != "" {
		parsed, err := domain.ParsePolicyID(id)
		if err != nil {
			return err
		}
		r.parsedPolicyID = &parsed
	}
	return nil
}

// AddEmployeeRequest is the body of POST /cases/{caseID}/employees.
type AddEmployeeRequest struct {
	Name           string `json:"name"`
	Role           string `json:"role"`
	Department     string `json:"department"`
	EmployeeNumber string `json:"employeeId,omitempty"`
	IsComplainant  bool   `json:"isComplainant"`
}

func (r *AddEmployeeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Name) > maxShortField {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 200 characters")
	}
	return nil
}

func (r *AddEmployeeRequest) employee() models.InvolvedEmployee {
	return models.InvolvedEmployee{
		Name:           r.Name,
		Role:           strings.TrimSpace(r.Role),
		Department:     strings.TrimSpace(r.Department),
		EmployeeNumber: strings.TrimSpace(r.EmployeeNumber),
		IsComplainant:  r.IsComplainant,
	}
}

// AttachDocumentRequest is the body of POST /cases/{caseID}/documents.
type AttachDocumentRequest struct {
	Type               string     `json:"type"`
	OriginalImageRefs  []string   `json:"originalImageRefs"`
	ProcessedImageRefs []string   `json:"processedImageRefs"`
	RawText            string     `json:"rawText"`
	TranslatedText     string     `json:"translatedText,omitempty"`
	CleanedText        string     `json:"cleanedText"`
	DetectedLanguage   string     `json:"detectedLanguage"`
	IsHandwritten      bool       `json:"isHandwritten"`
	EmployeeID         string     `json:"employeeId,omitempty"`
	SubmittedBy        string     `json:"submittedBy,omitempty"`
	PageCount          int        `json:"pageCount"`
	CreatedAt          *time.Time `json:"createdAt,omitempty"`

	parsedEmployeeID *domain.EmployeeID
}

func (r *AttachDocumentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.RawText) > maxTextLength || len(r.CleanedText) > maxTextLength || len(r.TranslatedText) > maxTextLength {
		return dErrors.New(dErrors.CodeValidation, "document text exceeds 200000 characters")
	}
	r.Type = strings.TrimSpace(r.Type)
	if !models.DocumentType(r.Type).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid document type: "+r.Type)
	}
	if r.PageCount < 0 {
		return dErrors.New(dErrors.CodeValidation, "pageCount cannot be negative")
	}
	if id := strings.TrimSpace(r.EmployeeID); id != "" {
		parsed, err := domain.ParseEmployeeID(id)
		if err != nil {
			return err
		}
		r.parsedEmployeeID = &parsed
	}
	return nil
}

func (r *AttachDocumentRequest) document() models.CaseDocument {
	doc := models.CaseDocument{
		Type:               models.DocumentType(r.Type),
		OriginalImageRefs:  r.OriginalImageRefs,
		ProcessedImageRefs: r.ProcessedImageRefs,
		RawText:            r.RawText,
		TranslatedText:     r.TranslatedText,
		CleanedText:        r.CleanedText,
		DetectedLanguage:   strings.TrimSpace(r.DetectedLanguage),
		IsHandwritten:      r.IsHandwritten,
		EmployeeID:         r.parsedEmployeeID,
		SubmittedBy:        strings.TrimSpace(r.SubmittedBy),
		PageCount:          r.PageCount,
	}
	if r.CreatedAt != nil {
		doc.CreatedAt = r.CreatedAt.UTC()
	}
	return doc
}

// AttestationRequest is the body of the review, signature and certification endpoints. A missing
// timestamp means now.
type AttestationRequest struct {
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	SignatureImage string     `json:"signatureImage,omitempty"`
	SupervisorID   string     `json:"supervisorId,omitempty"`
	SupervisorName string     `json:"supervisorName,omitempty"`
}

func (r *AttestationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.SignatureImage) > maxSignatureLength {
		return dErrors.New(dErrors.CodeValidation, "signatureImage exceeds 1 MiB")
	}
	r.SupervisorID = strings.TrimSpace(r.SupervisorID)
	r.SupervisorName = strings.TrimSpace(r.SupervisorName)
	return nil
}

func (r *AttestationRequest) at() time.Time {
	if r.Timestamp == nil {
		return time.Time{}
	}
	return r.Timestamp.UTC()
}

// EditTextRequest is the body of PUT /cases/{caseID}/documents/{documentID}/text.
type EditTextRequest struct {
	CleanedText string `json:"cleanedText"`
}

func (r *EditTextRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.CleanedText) > maxTextLength {
		return dErrors.New(dErrors.CodeValidation, "cleanedText exceeds 200000 characters")
	}
	return nil
}

// TransitionRequest is the body of POST /cases/{caseID}/transitions.
type TransitionRequest struct {
	Status string `json:"status"`
}

func (r *TransitionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Status = strings.TrimSpace(r.Status)
	if !models.CaseStatus(r.Status).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid case status: "+r.Status)
	}
	return nil
}

// NotesRequest is the body of PUT /cases/{caseID}/notes.
type NotesRequest struct {
	Notes string `json:"notes"`
}

func (r *NotesRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Notes) > maxTextLength {
		return dErrors.New(dErrors.CodeValidation, "notes exceed 200000 characters")
	}
	return nil
}

// LinkPolicyRequest is the body of PUT /cases/{caseID}/policy.
type LinkPolicyRequest struct {
	PolicyID string `json:"policyId"`

	parsed domain.PolicyID
}

func (r *LinkPolicyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	parsed, err := domain.ParsePolicyID(strings.TrimSpace(r.PolicyID))
	if err != nil {
		return err
	}
	r.parsed = parsed
	return nil
}

// SelectActionRequest is the body of PUT /cases/{caseID}/selected-action.
type SelectActionRequest struct {
	Action string `json:"action"`
}

func (r *SelectActionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Action = strings.TrimSpace(r.Action)
	if !models.RecommendedAction(r.Action).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid action: "+r.Action)
	}
	return nil
}

// GeneratedDocumentRequest is the body of the generated-document endpoints. POST sends content,
// PUT sends edits.
type GeneratedDocumentRequest struct {
	Content string `json:"content,omitempty"`
	Edits   string `json:"edits,omitempty"`
}

func (r *GeneratedDocumentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Content) > maxTextLength || len(r.Edits) > maxTextLength {
		return dErrors.New(dErrors.CodeValidation, "generated document exceeds 200000 characters")
	}
	return nil
}
