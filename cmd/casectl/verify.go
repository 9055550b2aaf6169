package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"casework/internal/cases/models"
	"casework/internal/cases/store"
)

type verifyReport struct {
	CaseID     string                    `json:"caseId"`
	CaseNumber string                    `json:"caseNumber"`
	Status     models.CaseStatus         `json:"status"`
	Documents  int                       `json:"documents"`
	Problems   []models.IntegrityProblem `json:"problems"`
}

func newVerifyCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "verify <case.json | ->",
		Short: "Re-derive document fingerprints and check ledger invariants of an exported case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			c, err := store.Unmarshal(data)
			if err != nil {
				return fmt.Errorf("decode case: %w", err)
			}
			report := verifyReport{
				CaseID:     c.ID().String(),
				CaseNumber: c.CaseNumber(),
				Status:     c.Status(),
				Documents:  len(c.Documents()),
				Problems:   c.VerifyIntegrity(),
			}
			if report.Problems == nil {
				report.Problems = []models.IntegrityProblem{}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Case:      %s (%s)\n", report.CaseNumber, report.CaseID)
				fmt.Fprintf(out, "Status:    %s\n", report.Status)
				fmt.Fprintf(out, "Documents: %d\n", report.Documents)
				if len(report.Problems) == 0 {
					fmt.Fprintln(out, "Integrity: ok")
				}
				for _, p := range report.Problems {
					fmt.Fprintf(out, "  FAIL %s\n", p)
				}
			}
			if n := len(report.Problems); n > 0 {
				return fmt.Errorf("%d integrity problem(s) found", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
