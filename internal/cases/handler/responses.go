package handler

import (
	"time"

	"casework/internal/cases/models"
	"casework/internal/policy"
)

// CaseCreatedResponse is the body of a successful POST /cases.
type CaseCreatedResponse struct {
	ID         string    `json:"id"`
	CaseNumber string    `json:"caseNumber"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CreatedIDResponse names the entity a command created, alongside the case state.
type CreatedIDResponse struct {
	ID   string               `json:"id"`
	Case *models.ConflictCase `json:"case"`
}

// IntegrityResponse is the body of GET /cases/{caseID}/integrity.
type IntegrityResponse struct {
	CaseID   string            `json:"caseId"`
	Valid    bool              `json:"valid"`
	Problems []IntegrityDetail `json:"problems"`
}

type IntegrityDetail struct {
	DocumentID string `json:"documentId,omitempty"`
	Check      string `json:"check"`
	Detail     string `json:"detail"`
}

func fromProblems(caseID string, problems []models.IntegrityProblem) *IntegrityResponse {
	resp := &IntegrityResponse{CaseID: caseID, Valid: len(problems) == 0, Problems: []IntegrityDetail{}}
	for _, p := range problems {
		d := IntegrityDetail{Check: p.Check, Detail: p.Detail}
		if !p.DocumentID.IsNil() {
			d.DocumentID = p.DocumentID.String()
		}
		resp.Problems = append(resp.Problems, d)
	}
	return resp
}

// SectionsResponse is the body of GET /policies/{policyID}/sections.
type SectionsResponse struct {
	PolicyID string           `json:"policyId"`
	Query    string           `json:"query"`
	Sections []policy.Section `json:"sections"`
}
