package intake_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casework/internal/cases/intake"
	"casework/internal/cases/models"
)

const comparisonJSON = `{
  "timelineDifferences": ["A says 9am, B says 10am"],
  "agreementPoints": ["Both were at dock 4"],
  "contradictions": [],
  "emotionallyEscalatedPhrases": ["you always do this"],
  "missingDetails": ["No witness named"],
  "neutralSummary": "  Accounts diverge on timing. ",
  "sideBySide": [
    {"topic": "Time", "partyAVersion": "9am", "partyBVersion": "10am", "status": "contradiction"}
  ],
  "partyAName": "Alex Rivera",
  "partyBName": "Sam Chen",
  "generatedAt": "2025-06-01T10:15:00+02:00",
  "modelVersion": "ignored"
}`

func TestDecodeComparison(t *testing.T) {
	got, err := intake.DecodeComparison(strings.NewReader(comparisonJSON))
	require.NoError(t, err)

	assert.Equal(t, "  Accounts diverge on timing. ", got.NeutralSummary, "content is stored as produced")
	assert.Equal(t, time.Date(2025, 6, 1, 8, 15, 0, 0, time.UTC), got.GeneratedAt)
	require.Len(t, got.SideBySide, 1)
	assert.Equal(t, models.ComparisonContradiction, got.SideBySide[0].Status)
	assert.Equal(t, []string{"you always do this"}, got.EmotionallyEscalatedPhrases)
}

func TestDecodeKeepsContentVerbatim(t *testing.T) {
	match, err := intake.DecodePolicyMatch(strings.NewReader(`{
		"policySectionId": "5e4d3c2b-1a09-4f8e-9d7c-6b5a49382716",
		"sectionTitle": " Verbal abuse\n",
		"relevanceExplanation": "  Both statements mention shouting.  ",
		"matchConfidence": 0.5,
		"matcherVersion": "v3"
	}`))
	require.NoError(t, err)
	assert.Equal(t, " Verbal abuse\n", match.SectionTitle)
	assert.Equal(t, "  Both statements mention shouting.  ", match.RelevanceExplanation)

	rec, err := intake.DecodeRecommendation(strings.NewReader(`{
		"action": "coaching",
		"reasoning": "\tFirst incident. ",
		"confidence": 0.4,
		"model": "ignored"
	}`))
	require.NoError(t, err)
	assert.Equal(t, "\tFirst incident. ", rec.Reasoning)

	_, err = intake.DecodeRecommendation(strings.NewReader(`{"action":" coaching","confidence":0.4}`))
	assert.True(t, models.IsValidation(err), "action values are matched exactly")
}

func TestDecodeComparisonRejectsBadShape(t *testing.T) {
	tests := map[string]string{
		"not json":         `{"neutralSummary":`,
		"trailing data":    `{"neutralSummary":"x","generatedAt":"2025-06-01T10:15:00Z"} {}`,
		"missing summary":  `{"generatedAt":"2025-06-01T10:15:00Z"}`,
		"missing time":     `{"neutralSummary":"x"}`,
		"bad status":       `{"neutralSummary":"x","generatedAt":"2025-06-01T10:15:00Z","sideBySide":[{"topic":"t","status":"sure"}]}`,
		"wrong field type": `{"neutralSummary":"x","generatedAt":"2025-06-01T10:15:00Z","agreementPoints":"one"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := intake.DecodeComparison(strings.NewReader(body))
			require.Error(t, err)
			assert.True(t, models.IsValidation(err))
		})
	}
}

func TestDecodePolicyMatch(t *testing.T) {
	got, err := intake.DecodePolicyMatch(strings.NewReader(`{
		"policySectionId": "5e4d3c2b-1a09-4f8e-9d7c-6b5a49382716",
		"sectionTitle": "Verbal abuse",
		"sectionNumber": "2.1",
		"relevanceExplanation": "Shouting is described in both statements.",
		"matchConfidence": 0.87
	}`))
	require.NoError(t, err)
	assert.Equal(t, "5e4d3c2b-1a09-4f8e-9d7c-6b5a49382716", got.PolicySectionID.String())
	assert.InDelta(t, 0.87, got.MatchConfidence, 1e-9)

	for name, body := range map[string]string{
		"missing section":    `{"matchConfidence": 0.5}`,
		"bad section":        `{"policySectionId": "abc", "matchConfidence": 0.5}`,
		"missing confidence": `{"policySectionId": "5e4d3c2b-1a09-4f8e-9d7c-6b5a49382716"}`,
		"out of range":       `{"policySectionId": "5e4d3c2b-1a09-4f8e-9d7c-6b5a49382716", "matchConfidence": 1.5}`,
	} {
		_, err := intake.DecodePolicyMatch(strings.NewReader(body))
		assert.True(t, models.IsValidation(err), name)
	}
}

func TestDecodeRecommendation(t *testing.T) {
	got, err := intake.DecodeRecommendation(strings.NewReader(`{
		"action": "writtenWarning",
		"reasoning": "Second documented incident.",
		"riskAssessment": "moderate",
		"suggestedNextSteps": ["Meet with HR", "Document outcome"],
		"confidence": 0.7
	}`))
	require.NoError(t, err)
	assert.Equal(t, models.ActionWrittenWarning, got.Action)
	assert.Len(t, got.SuggestedNextSteps, 2)

	zero, err := intake.DecodeRecommendation(strings.NewReader(`{"action":"coaching","confidence":0}`))
	require.NoError(t, err, "zero confidence is a value, not an absence")
	assert.Zero(t, zero.Confidence)

	for name, body := range map[string]string{
		"unknown action":     `{"action":"terminate","confidence":0.5}`,
		"missing action":     `{"confidence":0.5}`,
		"missing confidence": `{"action":"coaching"}`,
		"negative":           `{"action":"coaching","confidence":-0.1}`,
	} {
		_, err := intake.DecodeRecommendation(strings.NewReader(body))
		assert.True(t, models.IsValidation(err), name)
	}
}

func TestDecodeRecommendations(t *testing.T) {
	got, err := intake.DecodeRecommendations(strings.NewReader(`[
		{"action":"coaching","confidence":0.6},
		{"action":"escalateToHR","confidence":0.3}
	]`))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.ActionEscalateToHR, got[1].Action)

	_, err = intake.DecodeRecommendations(strings.NewReader(`[{"action":"coaching","confidence":0.6},{"action":"fire"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recommendation 1")
	assert.True(t, models.IsValidation(err))
}

func TestPayloadLimit(t *testing.T) {
	big := `{"neutralSummary":"` + strings.Repeat("a", 1<<20) + `","generatedAt":"2025-06-01T10:15:00Z"}`
	_, err := intake.DecodeComparison(strings.NewReader(big))
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}
