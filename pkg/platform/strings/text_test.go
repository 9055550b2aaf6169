package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanList(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil stays nil", input: nil, expected: nil},
		{name: "trims and drops blanks", input: []string{"  bullying ", "", "  "}, expected: []string{"bullying"}},
		{name: "first occurrence wins", input: []string{"theft", "leave", "theft"}, expected: []string{"theft", "leave"}},
		{name: "case is kept", input: []string{"PPE", "ppe"}, expected: []string{"PPE", "ppe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanList(tt.input))
		})
	}
}

func TestFoldList(t *testing.T) {
	assert.Equal(t, []string{"ppe", "harassment"}, FoldList([]string{"PPE", " ppe", "Harassment", "harassment "}))
	assert.Empty(t, FoldList([]string{}))
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("Respectful Workplace", "WORKPLACE"))
	assert.False(t, ContainsFold("Respectful Workplace", "safety"))
	assert.False(t, ContainsFold("anything", ""))
	assert.True(t, AnyContainsFold([]string{"verbal abuse", "threats"}, "Abuse"))
	assert.False(t, AnyContainsFold(nil, "abuse"))
}
