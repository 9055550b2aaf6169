package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"casework/pkg/domain"
)

// CaseType classifies the conflict under investigation.
type CaseType string

const (
	CaseTypeInterpersonal   CaseType = "interpersonal"
	CaseTypeHarassment      CaseType = "harassment"
	CaseTypePerformance     CaseType = "performance"
	CaseTypeAttendance      CaseType = "attendance"
	CaseTypePolicyViolation CaseType = "policyViolation"
	CaseTypeSafety          CaseType = "safety"
	CaseTypeOther           CaseType = "other"
)

func (t CaseType) IsValid() bool {
	switch t {
	case CaseTypeInterpersonal, CaseTypeHarassment, CaseTypePerformance, CaseTypeAttendance,
		CaseTypePolicyViolation, CaseTypeSafety, CaseTypeOther:
		return true
	}
	return false
}

// Actor is the person or system a mutation is attributed to.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Command carries everything a case operation needs besides its own arguments: who is acting,
// the request-scoped time, and the identifier source for new audit entries.
type Command struct {
	Actor Actor
	At    time.Time
	IDs   domain.IDGenerator
}

func (c Command) newID() uuid.UUID {
	if c.IDs == nil {
		return domain.RandomIDs{}.NewUUID()
	}
	return c.IDs.NewUUID()
}

func (c Command) validate() error {
	if strings.TrimSpace(c.Actor.ID) == "" {
		return invalid("actor id is required")
	}
	if c.At.IsZero() {
		return invalid("command time is required")
	}
	return nil
}

// ConflictCase is the aggregate root for one workplace-conflict investigation.
//
// Invariants:
//   - status only moves forward along draft → inProgress → pendingReview → awaitingAction →
//     {closed | escalated}, each edge guarded by its evidence precondition
//   - closed and escalated cases reject every mutation except export records
//   - at most one complaintA and one complaintB document
//   - comparisonResult is accepted once and never replaced
//   - selectedAction, once set, never changes and always names a recommended action
//   - the audit log only grows; every successful command appends exactly one entry
//
// Fields are unexported so collaborators can only mutate through commands. Accessors return
// copies.
type ConflictCase struct {
	id                 domain.CaseID
	caseNumber         string
	caseType           CaseType
	status             CaseStatus
	incidentDate       time.Time
	location           string
	department         string
	shift              string
	employees          []InvolvedEmployee
	documents          []CaseDocument
	comparison         *AIComparisonResult
	policyMatches      []PolicyMatch
	recommendations    []AIRecommendation
	selectedAction     RecommendedAction
	generatedDocument  *GeneratedActionDocument
	supervisorNotes    string
	auditLog           []CaseAuditEntry
	createdBy          string
	createdAt          time.Time
	updatedAt          time.Time
	closedAt           *time.Time
	activePolicyID     *domain.PolicyID
	persistedUpdatedAt time.Time
	persistedAuditLen  int
}

// NewCaseParams describes a case header at creation time.
type NewCaseParams struct {
	CaseNumber     string
	Type           CaseType
	IncidentDate   time.Time
	Location       string
	Department     string
	Shift          string
	ActivePolicyID *domain.PolicyID
}

// NewCase creates a draft case and records its creation in the audit log.
func NewCase(p NewCaseParams, cmd Command) (*ConflictCase, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	if _, err := ParseCaseNumber(p.CaseNumber); err != nil {
		return nil, err
	}
	if !p.Type.IsValid() {
		return nil, invalid("invalid case type: " + string(p.Type))
	}
	if p.IncidentDate.IsZero() {
		return nil, invalid("incident date is required")
	}
	if p.IncidentDate.After(cmd.At) {
		return nil, invalid("incident date cannot be in the future")
	}
	location := strings.TrimSpace(p.Location)
	if location == "" {
		return nil, invalid("location is required")
	}
	department := strings.TrimSpace(p.Department)
	if department == "" {
		return nil, invalid("department is required")
	}

	c := &ConflictCase{
		id:           domain.CaseID(cmd.newID()),
		caseNumber:   p.CaseNumber,
		caseType:     p.Type,
		status:       StatusDraft,
		incidentDate: p.IncidentDate,
		location:     location,
		department:   department,
		shift:        strings.TrimSpace(p.Shift),
		createdBy:    cmd.Actor.ID,
		createdAt:    cmd.At,
		updatedAt:    cmd.At,
	}
	if p.ActivePolicyID != nil {
		pid := *p.ActivePolicyID
		c.activePolicyID = &pid
	}
	c.appendAudit(AuditCaseCreated, "case "+c.caseNumber+" created", cmd)
	return c, nil
}

// begin validates the command and rejects mutations of finalized cases. Every command calls it
// first.
func (c *ConflictCase) begin(cmd Command) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	if c.status.IsTerminal() {
		return violation(ErrCaseLocked, "case "+c.caseNumber+" is "+string(c.status)+" and can no longer change")
	}
	return nil
}

// touch stamps updatedAt and records the audit entry for a successful command.
func (c *ConflictCase) touch(action AuditAction, details string, cmd Command) {
	c.updatedAt = cmd.At
	c.appendAudit(action, details, cmd)
}

func (c *ConflictCase) ID() domain.CaseID        { return c.id }
func (c *ConflictCase) CaseNumber() string       { return c.caseNumber }
func (c *ConflictCase) Type() CaseType           { return c.caseType }
func (c *ConflictCase) Status() CaseStatus       { return c.status }
func (c *ConflictCase) IncidentDate() time.Time  { return c.incidentDate }
func (c *ConflictCase) Location() string         { return c.location }
func (c *ConflictCase) Department() string       { return c.department }
func (c *ConflictCase) Shift() string            { return c.shift }
func (c *ConflictCase) SupervisorNotes() string  { return c.supervisorNotes }
func (c *ConflictCase) CreatedBy() string        { return c.createdBy }
func (c *ConflictCase) CreatedAt() time.Time     { return c.createdAt }
func (c *ConflictCase) UpdatedAt() time.Time     { return c.updatedAt }
func (c *ConflictCase) ClosedAt() *time.Time     { return cloneTime(c.closedAt) }
func (c *ConflictCase) IsTerminal() bool         { return c.status.IsTerminal() }
func (c *ConflictCase) HasComparison() bool      { return c.comparison != nil }
func (c *ConflictCase) RecommendationCount() int { return len(c.recommendations) }

func (c *ConflictCase) ActivePolicyID() *domain.PolicyID {
	if c.activePolicyID == nil {
		return nil
	}
	pid := *c.activePolicyID
	return &pid
}

func (c *ConflictCase) Employees() []InvolvedEmployee {
	return slices.Clone(c.employees)
}

func (c *ConflictCase) Documents() []CaseDocument {
	out := make([]CaseDocument, len(c.documents))
	for i, d := range c.documents {
		out[i] = d.clone()
	}
	return out
}

// Document returns a copy of the document with the given id.
func (c *ConflictCase) Document(id domain.DocumentID) (CaseDocument, bool) {
	if i := c.documentIndex(id); i >= 0 {
		return c.documents[i].clone(), true
	}
	return CaseDocument{}, false
}

func (c *ConflictCase) Comparison() (AIComparisonResult, bool) {
	if c.comparison == nil {
		return AIComparisonResult{}, false
	}
	return c.comparison.clone(), true
}

func (c *ConflictCase) PolicyMatches() []PolicyMatch {
	return slices.Clone(c.policyMatches)
}

func (c *ConflictCase) Recommendations() []AIRecommendation {
	out := make([]AIRecommendation, len(c.recommendations))
	for i, r := range c.recommendations {
		out[i] = r.clone()
	}
	return out
}

func (c *ConflictCase) SelectedAction() (RecommendedAction, bool) {
	return c.selectedAction, c.selectedAction != ""
}

func (c *ConflictCase) GeneratedDocument() (GeneratedActionDocument, bool) {
	if c.generatedDocument == nil {
		return GeneratedActionDocument{}, false
	}
	return c.generatedDocument.clone(), true
}

// PersistedUpdatedAt is the updatedAt value the case had when it was last loaded or saved.
// Repositories compare it against storage to detect concurrent writers.
func (c *ConflictCase) PersistedUpdatedAt() time.Time {
	return c.persistedUpdatedAt
}

// PersistedAuditLen is the audit log length the case had when it was last loaded or saved. It
// orders writes that append to the log without moving updatedAt.
func (c *ConflictCase) PersistedAuditLen() int {
	return c.persistedAuditLen
}

// MarkPersisted records that the current state matches storage. Repositories call it after a
// successful load or save.
func (c *ConflictCase) MarkPersisted() {
	c.persistedUpdatedAt = c.updatedAt
	c.persistedAuditLen = len(c.auditLog)
}

func (c *ConflictCase) documentIndex(id domain.DocumentID) int {
	return slices.IndexFunc(c.documents, func(d CaseDocument) bool { return d.ID == id })
}

// caseJSON is the persisted and exchanged shape of a case.
type caseJSON struct {
	ID                domain.CaseID            `json:"id"`
	CaseNumber        string                   `json:"caseNumber"`
	Type              CaseType                 `json:"type"`
	Status            CaseStatus               `json:"status"`
	IncidentDate      time.Time                `json:"incidentDate"`
	Location          string                   `json:"location"`
	Department        string                   `json:"department"`
	Shift             string                   `json:"shift,omitempty"`
	InvolvedEmployees []InvolvedEmployee       `json:"involvedEmployees"`
	Documents         []CaseDocument           `json:"documents"`
	ComparisonResult  *AIComparisonResult      `json:"comparisonResult,omitempty"`
	PolicyMatches     []PolicyMatch            `json:"policyMatches"`
	Recommendations   []AIRecommendation       `json:"recommendations"`
	SelectedAction    RecommendedAction        `json:"selectedAction,omitempty"`
	GeneratedDocument *GeneratedActionDocument `json:"generatedDocument,omitempty"`
	SupervisorNotes   string                   `json:"supervisorNotes"`
	AuditLog          []CaseAuditEntry         `json:"auditLog"`
	CreatedBy         string                   `json:"createdBy"`
	CreatedAt         time.Time                `json:"createdAt"`
	UpdatedAt         time.Time                `json:"updatedAt"`
	ClosedAt          *time.Time               `json:"closedAt,omitempty"`
	ActivePolicyID    *domain.PolicyID         `json:"activePolicyId,omitempty"`
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (c *ConflictCase) MarshalJSON() ([]byte, error) {
	return json.Marshal(caseJSON{
		ID:                c.id,
		CaseNumber:        c.caseNumber,
		Type:              c.caseType,
		Status:            c.status,
		IncidentDate:      c.incidentDate,
		Location:          c.location,
		Department:        c.department,
		Shift:             c.shift,
		InvolvedEmployees: nonNil(c.employees),
		Documents:         nonNil(c.documents),
		ComparisonResult:  c.comparison,
		PolicyMatches:     nonNil(c.policyMatches),
		Recommendations:   nonNil(c.recommendations),
		SelectedAction:    c.selectedAction,
		GeneratedDocument: c.generatedDocument,
		SupervisorNotes:   c.supervisorNotes,
		AuditLog:          nonNil(c.auditLog),
		CreatedBy:         c.createdBy,
		CreatedAt:         c.createdAt,
		UpdatedAt:         c.updatedAt,
		ClosedAt:          c.closedAt,
		ActivePolicyID:    c.activePolicyID,
	})
}

// UnmarshalJSON restores a case from its persisted document. Only shape is checked here;
// VerifyIntegrity audits the content.
func (c *ConflictCase) UnmarshalJSON(data []byte) error {
	var raw caseJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode case: %w", err)
	}
	if raw.ID.IsNil() {
		return invalid("case id is required")
	}
	if !raw.Status.IsValid() {
		return invalid("invalid case status: " + string(raw.Status))
	}
	if !raw.Type.IsValid() {
		return invalid("invalid case type: " + string(raw.Type))
	}
	*c = ConflictCase{
		id:                raw.ID,
		caseNumber:        raw.CaseNumber,
		caseType:          raw.Type,
		status:            raw.Status,
		incidentDate:      raw.IncidentDate,
		location:          raw.Location,
		department:        raw.Department,
		shift:             raw.Shift,
		employees:         raw.InvolvedEmployees,
		documents:         raw.Documents,
		comparison:        raw.ComparisonResult,
		policyMatches:     raw.PolicyMatches,
		recommendations:   raw.Recommendations,
		selectedAction:    raw.SelectedAction,
		generatedDocument: raw.GeneratedDocument,
		supervisorNotes:   raw.SupervisorNotes,
		auditLog:          raw.AuditLog,
		createdBy:         raw.CreatedBy,
		createdAt:         raw.CreatedAt,
		updatedAt:         raw.UpdatedAt,
		closedAt:          raw.ClosedAt,
		activePolicyID:    raw.ActivePolicyID,
	}
	return nil
}
