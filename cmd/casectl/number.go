package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"casework/internal/cases/models"
)

func newNumberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "number",
		Short: "Generate or validate case numbers",
	}
	cmd.AddCommand(newNumberGenerateCmd(), newNumberValidateCmd())
	return cmd
}

func newNumberGenerateCmd() *cobra.Command {
	var (
		date  string
		count int
		seed  uint64
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print candidate case numbers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			created := time.Now().UTC()
			if date != "" {
				parsed, err := time.Parse(time.DateOnly, date)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				created = parsed
			}
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			var src models.NumberSource = models.RandomNumbers{}
			if cmd.Flags().Changed("seed") {
				src = models.NewSeededNumbers(seed)
			}
			for range count {
				fmt.Fprintln(cmd.OutOrStdout(), models.NextCaseNumber(created, src))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&date, "date", "", "creation date (YYYY-MM-DD), defaults to today in UTC")
	f.IntVarP(&count, "count", "n", 1, "how many numbers to print")
	f.Uint64Var(&seed, "seed", 0, "seed for a reproducible sequence")
	return cmd
}

func newNumberValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <case-number>...",
		Short: "Check case numbers against CR-YYYYMMDD-NNNN",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bad := 0
			for _, raw := range args {
				n, err := models.ParseCaseNumber(raw)
				if err != nil {
					bad++
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tinvalid: %v\n", raw, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tok (%s, suffix %d)\n", raw, n.Date.Format(time.DateOnly), n.Suffix)
			}
			if bad > 0 {
				return fmt.Errorf("%d of %d case numbers are invalid", bad, len(args))
			}
			return nil
		},
	}
}
