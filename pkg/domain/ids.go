// Package domain holds identifier types shared across the case and policy modules.
//
// Each identifier wraps a UUID in its own named type so a DocumentID can never be passed where a
// CaseID is expected. All identifiers serialize as canonical UUID strings.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "casework/pkg/domain-errors"
)

type (
	CaseID     uuid.UUID
	DocumentID uuid.UUID
	EmployeeID uuid.UUID
	PolicyID   uuid.UUID
	SectionID  uuid.UUID
)

// maxIDLength bounds input before parsing; canonical UUIDs with braces or urn prefix stay below it.
const maxIDLength = 64

func parseUUID(kind, s string) (uuid.UUID, error) {
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is too long")
	}
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be nil")
	}
	return parsed, nil
}

func ParseCaseID(s string) (CaseID, error) {
	u, err := parseUUID("case", s)
	return CaseID(u), err
}

func (i CaseID) String() string                { return uuid.UUID(i).String() }
func (i CaseID) IsNil() bool                   { return uuid.UUID(i) == uuid.Nil }
func (i CaseID) MarshalText() ([]byte, error)  { return uuid.UUID(i).MarshalText() }
func (i *CaseID) UnmarshalText(b []byte) error { return (*uuid.UUID)(i).UnmarshalText(b) }

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID("document", s)
	return DocumentID(u), err
}

func (i DocumentID) String() string                { return uuid.UUID(i).String() }
func (i DocumentID) IsNil() bool                   { return uuid.UUID(i) == uuid.Nil }
func (i DocumentID) MarshalText() ([]byte, error)  { return uuid.UUID(i).MarshalText() }
func (i *DocumentID) UnmarshalText(b []byte) error { return (*uuid.UUID)(i).UnmarshalText(b) }

func ParseEmployeeID(s string) (EmployeeID, error) {
	u, err := parseUUID("employee", s)
	return EmployeeID(u), err
}

func (i EmployeeID) String() string                { return uuid.UUID(i).String() }
func (i EmployeeID) IsNil() bool                   { return uuid.UUID(i) == uuid.Nil }
func (i EmployeeID) MarshalText() ([]byte, error)  { return uuid.UUID(i).MarshalText() }
func (i *EmployeeID) UnmarshalText(b []byte) error { return (*uuid.UUID)(i).UnmarshalText(b) }

func ParsePolicyID(s string) (PolicyID, error) {
	u, err := parseUUID("policy", s)
	return PolicyID(u), err
}

func (i PolicyID) String() string                { return uuid.UUID(i).String() }
func (i PolicyID) IsNil() bool                   { return uuid.UUID(i) == uuid.Nil }
func (i PolicyID) MarshalText() ([]byte, error)  { return uuid.UUID(i).MarshalText() }
func (i *PolicyID) UnmarshalText(b []byte) error { return (*uuid.UUID)(i).UnmarshalText(b) }

func ParseSectionID(s string) (SectionID, error) {
	u, err := parseUUID("section", s)
	return SectionID(u), err
}

func (i SectionID) String() string                { return uuid.UUID(i).String() }
func (i SectionID) IsNil() bool                   { return uuid.UUID(i) == uuid.Nil }
func (i SectionID) MarshalText() ([]byte, error)  { return uuid.UUID(i).MarshalText() }
func (i *SectionID) UnmarshalText(b []byte) error { return (*uuid.UUID)(i).UnmarshalText(b) }
