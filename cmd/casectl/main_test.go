package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casework/internal/cases/models"
	"casework/internal/cases/store"
	"casework/internal/platform/actor"
	"casework/pkg/domain"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func exportedCase(t *testing.T) []byte {
	t.Helper()
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	ids := domain.NewSeededIDs(3)
	cmd := func() models.Command {
		at = at.Add(time.Minute)
		return models.Command{Actor: models.Actor{ID: "sup-1", Name: "Dana Supervisor"}, At: at, IDs: ids}
	}
	c, err := models.NewCase(models.NewCaseParams{
		CaseNumber:   "CR-20250601-4821",
		Type:         models.CaseTypeInterpersonal,
		IncidentDate: at.Add(-24 * time.Hour),
		Location:     "Warehouse B",
		Department:   "Logistics",
	}, cmd())
	require.NoError(t, err)
	_, err = c.AddEmployee(models.InvolvedEmployee{Name: "Alex Rivera", Role: "Picker", Department: "Logistics", IsComplainant: true}, cmd())
	require.NoError(t, err)
	_, err = c.AttachDocument(models.CaseDocument{
		Type:              models.DocumentComplaintA,
		OriginalImageRefs: []string{"img/a-1.jpg"},
		RawText:           "RAW He shouted at me near dock 4.",
		CleanedText:       "He shouted at me near dock 4.",
		DetectedLanguage:  "en",
		SubmittedBy:       "sup-1",
		PageCount:         1,
	}, cmd())
	require.NoError(t, err)

	data, err := store.Marshal(c)
	require.NoError(t, err)
	return data
}

func TestVerify(t *testing.T) {
	data := exportedCase(t)

	t.Run("clean case", func(t *testing.T) {
		out, err := execute(t, "", "verify", writeFile(t, "case.json", data))
		require.NoError(t, err)
		assert.Contains(t, out, "CR-20250601-4821")
		assert.Contains(t, out, "Integrity: ok")
	})

	t.Run("tampered text is reported", func(t *testing.T) {
		tampered := bytes.Replace(data, []byte("near dock 4."), []byte("near dock 5."), -1)
		require.NotEqual(t, data, tampered)

		out, err := execute(t, string(tampered), "verify", "--json", "-")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "integrity problem")

		var report verifyReport
		require.NoError(t, json.Unmarshal([]byte(out[:strings.LastIndex(out, "}")+1]), &report))
		var checks []string
		for _, p := range report.Problems {
			checks = append(checks, p.Check)
		}
		if diff := cmp.Diff([]string{models.CheckVersionHash}, checks); diff != "" {
			t.Errorf("problems mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("not a case", func(t *testing.T) {
		_, err := execute(t, "", "verify", writeFile(t, "bad.json", []byte(`[1,2]`)))
		assert.ErrorContains(t, err, "decode case")
	})
}

const policyYAML = `
policies:
  - id: 3f0c2b1e-6d8a-4b5e-9f10-1a2b3c4d5e6f
    organizationId: acme
    name: Code of Conduct
    version: "2025.1"
    status: active
    sections:
      - id: 0b7d9a52-2f61-4c1b-8e0a-6f3e2d1c0b9a
        sectionNumber: "2"
        title: Respectful Workplace
        content: Treat colleagues with respect.
        type: conduct
        orderIndex: 1
      - id: 5e4d3c2b-1a09-4f8e-9d7c-6b5a49382716
        sectionNumber: "2.1"
        title: Verbal abuse
        content: Shouting and insults are not tolerated.
        type: conduct
        keywords: [yelling]
        parentSectionId: 0b7d9a52-2f61-4c1b-8e0a-6f3e2d1c0b9a
        orderIndex: 2
      - id: 6f5e4d3c-2b1a-4f9e-8d7c-6b5a49382717
        sectionNumber: "3"
        title: Protective equipment
        content: Wear PPE on the floor and treat spills at once.
        type: safety
        orderIndex: 3
`

func TestPolicySearch(t *testing.T) {
	path := writeFile(t, "policies.yaml", []byte(policyYAML))

	out, err := execute(t, "", "policy", "search", "-f", path, "treat")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	var numbers []string
	for _, line := range lines[1:] {
		numbers = append(numbers, strings.Fields(line)[0])
	}
	if diff := cmp.Diff([]string{"2", "3"}, numbers); diff != "" {
		t.Errorf("section order mismatch (-want +got):\n%s", diff)
	}

	out, err = execute(t, "", "policy", "search", "-f", path, "--type", "safety", "treat")
	require.NoError(t, err)
	assert.NotContains(t, out, "Respectful")
	assert.Contains(t, out, "Protective")

	_, err = execute(t, "", "policy", "search", "-f", path, "--policy", "0d9c8b7a-6f5e-4d3c-8b2a-190817263544", "x")
	assert.Error(t, err)

	out, err = execute(t, "", "policy", "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "(active, 3 sections)")
}

func TestNumber(t *testing.T) {
	out, err := execute(t, "", "number", "generate", "--date", "2025-06-01", "--seed", "7", "-n", "3")
	require.NoError(t, err)
	generated := strings.Fields(out)
	require.Len(t, generated, 3)
	for _, n := range generated {
		assert.True(t, models.ValidCaseNumber(n), n)
		assert.True(t, strings.HasPrefix(n, "CR-20250601-"), n)
	}

	again, err := execute(t, "", "number", "generate", "--date", "2025-06-01", "--seed", "7", "-n", "3")
	require.NoError(t, err)
	assert.Equal(t, out, again, "seeded output is reproducible")

	out, err = execute(t, "", "number", "validate", "CR-20250601-4821", "CR-20250231-4821", "CR-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3")
	assert.Contains(t, out, "CR-20250601-4821\tok")

	_, err = execute(t, "", "number", "generate", "--date", "June 1st")
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	out, err := execute(t, "", "token", "--id", "hr-2", "--name", "Robin HR", "--role", "hr", "--signing-key", "cli-key")
	require.NoError(t, err)

	claims, err := actor.NewTokenService("cli-key", "casework", "casework-api").ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "hr-2", claims.ActorID)
	assert.Equal(t, "hr", claims.Role)

	t.Setenv("CASEWORK_JWT_SIGNING_KEY", "")
	_, err = execute(t, "", "token", "--id", "hr-2")
	assert.ErrorContains(t, err, "signing-key")
}
