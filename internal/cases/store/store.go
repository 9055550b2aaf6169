// Package store persists conflict cases as one JSON document per case.
//
// All repositories share the same contract:
//   - Create fails with models.ErrCaseNumberTaken when another case holds the number.
//   - Save fails with models.ErrStaleWrite when the stored updatedAt or audit log length no longer
//     matches the value the case was loaded with (optimistic concurrency).
//   - Load and FindByNumber return sentinel.ErrNotFound wrapped in a not-found domain error.
//
// Successful Create, Load, FindByNumber and Save calls leave the case marked as persisted.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"casework/internal/cases/models"
	"casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
	"casework/pkg/platform/sentinel"
)

// Repository is the persistence port of the case service.
type Repository interface {
	Create(ctx context.Context, c *models.ConflictCase) error
	Load(ctx context.Context, id domain.CaseID) (*models.ConflictCase, error)
	FindByNumber(ctx context.Context, caseNumber string) (*models.ConflictCase, error)
	Save(ctx context.Context, c *models.ConflictCase) error
}

// Marshal renders the persisted document of a case.
func Marshal(c *models.ConflictCase) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal case %s: %w", c.ID(), err)
	}
	return data, nil
}

// Unmarshal restores a case from its persisted document and marks it persisted.
func Unmarshal(data []byte) (*models.ConflictCase, error) {
	c := new(models.ConflictCase)
	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	c.MarkPersisted()
	return c, nil
}

// revision is the optimistic-concurrency token of a stored case. Exports of a finalized case
// append to the audit log without moving updatedAt, so both parts are compared.
type revision struct {
	updatedAt time.Time
	auditLen  int
}

func (r revision) matches(c *models.ConflictCase) bool {
	return r.updatedAt.Equal(c.PersistedUpdatedAt()) && r.auditLen == c.PersistedAuditLen()
}

// stamp reads only the revision of a stored document.
func stamp(data []byte) (revision, error) {
	var head struct {
		UpdatedAt time.Time         `json:"updatedAt"`
		AuditLog  []json.RawMessage `json:"auditLog"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return revision{}, fmt.Errorf("decode case stamp: %w", err)
	}
	return revision{updatedAt: head.UpdatedAt, auditLen: len(head.AuditLog)}, nil
}

func caseNotFound(what string) error {
	return dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "case "+what+" not found")
}

func numberTaken(number string) error {
	return dErrors.Wrap(fmt.Errorf("%w: %w", models.ErrCaseNumberTaken, sentinel.ErrAlreadyUsed), dErrors.CodeConflict, "case number "+number+" is already in use")
}

func staleWrite(c *models.ConflictCase) error {
	return dErrors.Wrap(fmt.Errorf("%w: %w", models.ErrStaleWrite, sentinel.ErrConflict), dErrors.CodeConflict, "case "+c.CaseNumber()+" was modified concurrently")
}

func caseExists(id domain.CaseID) error {
	return dErrors.Wrap(sentinel.ErrAlreadyUsed, dErrors.CodeConflict, "case "+id.String()+" already exists")
}
