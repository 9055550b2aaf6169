package policy

import (
	"slices"
	"time"

	"casework/pkg/domain"
)

// Status is the publication state of a workplace policy.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusActive     Status = "active"
	StatusArchived   Status = "archived"
	StatusSuperseded Status = "superseded"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusArchived, StatusSuperseded:
		return true
	}
	return false
}

// SectionType classifies a policy section for filtering.
type SectionType string

const (
	SectionGeneral    SectionType = "general"
	SectionConduct    SectionType = "conduct"
	SectionHarassment SectionType = "harassment"
	SectionAttendance SectionType = "attendance"
	SectionSafety     SectionType = "safety"
	SectionDiscipline SectionType = "discipline"
	SectionGrievance  SectionType = "grievance"
	SectionOther      SectionType = "other"
)

// Normalize maps unknown types to SectionOther.
func (t SectionType) Normalize() SectionType {
	switch t {
	case SectionGeneral, SectionConduct, SectionHarassment, SectionAttendance,
		SectionSafety, SectionDiscipline, SectionGrievance:
		return t
	}
	return SectionOther
}

// Section is one numbered clause of a policy. Sections nest through ParentID.
type Section struct {
	ID            domain.SectionID  `json:"id" yaml:"id"`
	SectionNumber string            `json:"sectionNumber" yaml:"sectionNumber"`
	Title         string            `json:"title" yaml:"title"`
	Content       string            `json:"content" yaml:"content"`
	Type          SectionType       `json:"type" yaml:"type"`
	Keywords      []string          `json:"keywords" yaml:"keywords"`
	ParentID      *domain.SectionID `json:"parentSectionId,omitempty" yaml:"parentSectionId,omitempty"`
	OrderIndex    int               `json:"orderIndex" yaml:"orderIndex"`
}

func (s Section) clone() Section {
	out := s
	out.Keywords = slices.Clone(s.Keywords)
	if s.ParentID != nil {
		p := *s.ParentID
		out.ParentID = &p
	}
	return out
}

// Policy is a versioned workplace policy owned by one organization.
type Policy struct {
	ID             domain.PolicyID `json:"id" yaml:"id"`
	OrganizationID string          `json:"organizationId" yaml:"organizationId"`
	Name           string          `json:"name" yaml:"name"`
	Version        string          `json:"version" yaml:"version"`
	Status         Status          `json:"status" yaml:"status"`
	EffectiveDate  *time.Time      `json:"effectiveDate,omitempty" yaml:"effectiveDate,omitempty"`
	Sections       []Section       `json:"sections" yaml:"sections"`
}

// Clone returns a deep copy.
func (p Policy) Clone() Policy {
	out := p
	if p.EffectiveDate != nil {
		d := *p.EffectiveDate
		out.EffectiveDate = &d
	}
	out.Sections = make([]Section, len(p.Sections))
	for i, s := range p.Sections {
		out.Sections[i] = s.clone()
	}
	return out
}
