// Package intake decodes results produced by the external AI services.
//
// Only structure and numeric ranges are checked. The content of a comparison or recommendation
// is never judged. Every failure is a validation error so callers can tell a malformed payload
// apart from a rejected case transition.
package intake

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"casework/internal/cases/models"
	"casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
)

// maxPayloadBytes bounds a single decoded result.
const maxPayloadBytes = 1 << 20

// decode reads one JSON document into v. Fields the wire structs do not name are ignored so that
// producers can add metadata without breaking intake.
func decode(r io.Reader, v any) error {
	raw, err := io.ReadAll(io.LimitReader(r, maxPayloadBytes+1))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "read payload")
	}
	if len(raw) > maxPayloadBytes {
		return dErrors.New(dErrors.CodeValidation, "payload exceeds 1 MiB")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "malformed json")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return dErrors.New(dErrors.CodeValidation, "trailing data after json document")
	}
	return nil
}

func required(field string) error {
	return dErrors.New(dErrors.CodeValidation, field+" is required")
}

type comparisonWire struct {
	TimelineDifferences         []string                `json:"timelineDifferences"`
	AgreementPoints             []string                `json:"agreementPoints"`
	Contradictions              []string                `json:"contradictions"`
	EmotionallyEscalatedPhrases []string                `json:"emotionallyEscalatedPhrases"`
	MissingDetails              []string                `json:"missingDetails"`
	NeutralSummary              *string                 `json:"neutralSummary"`
	SideBySide                  []models.SideBySideItem `json:"sideBySide"`
	PartyAName                  string                  `json:"partyAName"`
	PartyBName                  string                  `json:"partyBName"`
	GeneratedAt                 *time.Time              `json:"generatedAt"`
}

// DecodeComparison reads an AIComparisonResult. neutralSummary and generatedAt must be present.
// Strings and lists are kept exactly as produced.
func DecodeComparison(r io.Reader) (models.AIComparisonResult, error) {
	var w comparisonWire
	if err := decode(r, &w); err != nil {
		return models.AIComparisonResult{}, err
	}
	if w.NeutralSummary == nil {
		return models.AIComparisonResult{}, required("neutralSummary")
	}
	if w.GeneratedAt == nil {
		return models.AIComparisonResult{}, required("generatedAt")
	}
	out := models.AIComparisonResult{
		TimelineDifferences:         w.TimelineDifferences,
		AgreementPoints:             w.AgreementPoints,
		Contradictions:              w.Contradictions,
		EmotionallyEscalatedPhrases: w.EmotionallyEscalatedPhrases,
		MissingDetails:              w.MissingDetails,
		NeutralSummary:              *w.NeutralSummary,
		SideBySide:                  w.SideBySide,
		PartyAName:                  w.PartyAName,
		PartyBName:                  w.PartyBName,
		GeneratedAt:                 w.GeneratedAt.UTC(),
	}
	if err := out.Validate(); err != nil {
		return models.AIComparisonResult{}, err
	}
	return out, nil
}

type policyMatchWire struct {
	ID                   *uuid.UUID `json:"id"`
	PolicySectionID      *string    `json:"policySectionId"`
	SectionTitle         string     `json:"sectionTitle"`
	SectionNumber        string     `json:"sectionNumber"`
	RelevanceExplanation string     `json:"relevanceExplanation"`
	MatchConfidence      *float64   `json:"matchConfidence"`
}

// DecodePolicyMatch reads a PolicyMatch. policySectionId and matchConfidence must be present.
func DecodePolicyMatch(r io.Reader) (models.PolicyMatch, error) {
	var w policyMatchWire
	if err := decode(r, &w); err != nil {
		return models.PolicyMatch{}, err
	}
	if w.PolicySectionID == nil {
		return models.PolicyMatch{}, required("policySectionId")
	}
	if w.MatchConfidence == nil {
		return models.PolicyMatch{}, required("matchConfidence")
	}
	section, err := domain.ParseSectionID(*w.PolicySectionID)
	if err != nil {
		return models.PolicyMatch{}, dErrors.Wrap(err, dErrors.CodeValidation, "policySectionId")
	}
	out := models.PolicyMatch{
		PolicySectionID:      section,
		SectionTitle:         w.SectionTitle,
		SectionNumber:        w.SectionNumber,
		RelevanceExplanation: w.RelevanceExplanation,
		MatchConfidence:      *w.MatchConfidence,
	}
	if w.ID != nil {
		out.ID = *w.ID
	}
	if err := out.Validate(); err != nil {
		return models.PolicyMatch{}, err
	}
	return out, nil
}

type recommendationWire struct {
	ID                 *uuid.UUID `json:"id"`
	Action             *string    `json:"action"`
	Reasoning          string     `json:"reasoning"`
	RiskAssessment     string     `json:"riskAssessment"`
	SuggestedNextSteps []string   `json:"suggestedNextSteps"`
	Confidence         *float64   `json:"confidence"`
}

// DecodeRecommendation reads an AIRecommendation. action and confidence must be present.
func DecodeRecommendation(r io.Reader) (models.AIRecommendation, error) {
	var w recommendationWire
	if err := decode(r, &w); err != nil {
		return models.AIRecommendation{}, err
	}
	if w.Action == nil {
		return models.AIRecommendation{}, required("action")
	}
	if w.Confidence == nil {
		return models.AIRecommendation{}, required("confidence")
	}
	out := models.AIRecommendation{
		Action:             models.RecommendedAction(*w.Action),
		Reasoning:          w.Reasoning,
		RiskAssessment:     w.RiskAssessment,
		SuggestedNextSteps: w.SuggestedNextSteps,
		Confidence:         *w.Confidence,
	}
	if w.ID != nil {
		out.ID = *w.ID
	}
	if err := out.Validate(); err != nil {
		return models.AIRecommendation{}, err
	}
	return out, nil
}

// DecodeRecommendations reads a JSON array of recommendations. The first invalid entry fails the
// whole batch.
func DecodeRecommendations(r io.Reader) ([]models.AIRecommendation, error) {
	var raws []json.RawMessage
	if err := decode(r, &raws); err != nil {
		return nil, err
	}
	out := make([]models.AIRecommendation, 0, len(raws))
	for i, raw := range raws {
		rec, err := DecodeRecommendation(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("recommendation %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
