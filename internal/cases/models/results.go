package models

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"casework/pkg/domain"
)

// ComparisonStatus is how the two parties' accounts relate on one topic.
type ComparisonStatus string

const (
	ComparisonAgreement     ComparisonStatus = "agreement"
	ComparisonContradiction ComparisonStatus = "contradiction"
	ComparisonPartial       ComparisonStatus = "partial"
	ComparisonUnclear       ComparisonStatus = "unclear"
)

func (s ComparisonStatus) IsValid() bool {
	switch s {
	case ComparisonAgreement, ComparisonContradiction, ComparisonPartial, ComparisonUnclear:
		return true
	}
	return false
}

// SideBySideItem aligns Party A's and Party B's versions of one topic.
type SideBySideItem struct {
	Topic         string           `json:"topic"`
	PartyAVersion string           `json:"partyAVersion"`
	PartyBVersion string           `json:"partyBVersion"`
	Status        ComparisonStatus `json:"status"`
}

// AIComparisonResult is the external comparison of the two complaint statements. The case stores
// it verbatim and never recomputes any part of it.
type AIComparisonResult struct {
	TimelineDifferences         []string         `json:"timelineDifferences"`
	AgreementPoints             []string         `json:"agreementPoints"`
	Contradictions              []string         `json:"contradictions"`
	EmotionallyEscalatedPhrases []string         `json:"emotionallyEscalatedPhrases"`
	MissingDetails              []string         `json:"missingDetails"`
	NeutralSummary              string           `json:"neutralSummary"`
	SideBySide                  []SideBySideItem `json:"sideBySide"`
	PartyAName                  string           `json:"partyAName"`
	PartyBName                  string           `json:"partyBName"`
	GeneratedAt                 time.Time        `json:"generatedAt"`
}

// Validate checks structural shape only; AI content is never judged.
func (r AIComparisonResult) Validate() error {
	if r.GeneratedAt.IsZero() {
		return invalid("comparison generatedAt is required")
	}
	for i, item := range r.SideBySide {
		if strings.TrimSpace(item.Topic) == "" {
			return invalid("sideBySide topic is required")
		}
		if !item.Status.IsValid() {
			return invalid("sideBySide[" + strconv.Itoa(i) + "] has invalid status: " + string(item.Status))
		}
	}
	return nil
}

func (r AIComparisonResult) clone() AIComparisonResult {
	out := r
	out.TimelineDifferences = slices.Clone(r.TimelineDifferences)
	out.AgreementPoints = slices.Clone(r.AgreementPoints)
	out.Contradictions = slices.Clone(r.Contradictions)
	out.EmotionallyEscalatedPhrases = slices.Clone(r.EmotionallyEscalatedPhrases)
	out.MissingDetails = slices.Clone(r.MissingDetails)
	out.SideBySide = slices.Clone(r.SideBySide)
	return out
}

// PolicyMatch links the case to a policy section the external matcher judged relevant.
type PolicyMatch struct {
	ID                   uuid.UUID        `json:"id"`
	PolicySectionID      domain.SectionID `json:"policySectionId"`
	SectionTitle         string           `json:"sectionTitle"`
	SectionNumber        string           `json:"sectionNumber"`
	RelevanceExplanation string           `json:"relevanceExplanation"`
	MatchConfidence      float64          `json:"matchConfidence"`
}

func (m PolicyMatch) Validate() error {
	if m.PolicySectionID.IsNil() {
		return invalid("policySectionId is required")
	}
	if !inUnitRange(m.MatchConfidence) {
		return invalid("matchConfidence must be within [0,1]")
	}
	return nil
}

// RecommendedAction is a disciplinary outcome.
type RecommendedAction string

const (
	ActionCoaching       RecommendedAction = "coaching"
	ActionCounseling     RecommendedAction = "counseling"
	ActionWrittenWarning RecommendedAction = "writtenWarning"
	ActionEscalateToHR   RecommendedAction = "escalateToHR"
)

func (a RecommendedAction) IsValid() bool {
	switch a {
	case ActionCoaching, ActionCounseling, ActionWrittenWarning, ActionEscalateToHR:
		return true
	}
	return false
}

// AIRecommendation is one candidate action proposed by the external recommender.
type AIRecommendation struct {
	ID                 uuid.UUID         `json:"id"`
	Action             RecommendedAction `json:"action"`
	Reasoning          string            `json:"reasoning"`
	RiskAssessment     string            `json:"riskAssessment"`
	SuggestedNextSteps []string          `json:"suggestedNextSteps"`
	Confidence         float64           `json:"confidence"`
}

func (r AIRecommendation) Validate() error {
	if !r.Action.IsValid() {
		return invalid("invalid recommended action: " + string(r.Action))
	}
	if !inUnitRange(r.Confidence) {
		return invalid("confidence must be within [0,1]")
	}
	return nil
}

func (r AIRecommendation) clone() AIRecommendation {
	out := r
	out.SuggestedNextSteps = slices.Clone(r.SuggestedNextSteps)
	return out
}

// GeneratedActionDocument is the disciplinary document drafted for the selected action.
// Frozen once approved.
type GeneratedActionDocument struct {
	ID              uuid.UUID         `json:"id"`
	Action          RecommendedAction `json:"action"`
	Content         string            `json:"content"`
	SupervisorEdits string            `json:"supervisorEdits,omitempty"`
	IsApproved      bool              `json:"isApproved"`
	ApprovedAt      *time.Time        `json:"approvedAt,omitempty"`
	ApprovedBy      string            `json:"approvedBy,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// EffectiveContent is the supervisor's edited text when present, else the generated text.
func (g GeneratedActionDocument) EffectiveContent() string {
	if g.SupervisorEdits != "" {
		return g.SupervisorEdits
	}
	return g.Content
}

func (g GeneratedActionDocument) clone() GeneratedActionDocument {
	out := g
	out.ApprovedAt = cloneTime(g.ApprovedAt)
	return out
}

func inUnitRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
