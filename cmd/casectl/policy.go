package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"casework/internal/policy"
	"casework/pkg/domain"
)

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect policy YAML files",
	}
	cmd.AddCommand(newPolicySearchCmd(), newPolicyCheckCmd())
	return cmd
}

func newPolicySearchCmd() *cobra.Command {
	var (
		file     string
		policyID string
		types    []string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find sections whose title, content or keywords contain the query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policies, err := policy.LoadFile(file)
			if err != nil {
				return err
			}
			id, err := pickPolicy(policies, policyID)
			if err != nil {
				return err
			}
			ix, err := policy.NewIndex(policies...)
			if err != nil {
				return err
			}
			sectionTypes := make([]policy.SectionType, 0, len(types))
			for _, t := range types {
				sectionTypes = append(sectionTypes, policy.SectionType(strings.TrimSpace(t)))
			}
			sections, err := ix.Search(id, args[0], sectionTypes...)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NUMBER\tTITLE\tTYPE\tID")
			for _, s := range sections {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.SectionNumber, s.Title, s.Type, s.ID)
			}
			return tw.Flush()
		},
	}
	f := cmd.Flags()
	f.StringVarP(&file, "file", "f", "", "policy YAML file (required)")
	f.StringVar(&policyID, "policy", "", "policy id; optional when the file holds one policy")
	f.StringSliceVar(&types, "type", nil, "restrict to section types (repeatable)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newPolicyCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a policy YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policies, err := policy.LoadFile(args[0])
			if err != nil {
				return err
			}
			reg := policy.NewRegistry(nil)
			for _, p := range policies {
				if err := reg.Register(p); err != nil {
					return fmt.Errorf("policy %s: %w", p.ID, err)
				}
			}
			out := cmd.OutOrStdout()
			for _, p := range policies {
				current, err := reg.Get(p.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  %s %s (%s, %d sections)\n", current.ID, current.Name, current.Version, current.Status, len(current.Sections))
			}
			return nil
		},
	}
}

func pickPolicy(policies []policy.Policy, raw string) (domain.PolicyID, error) {
	if raw != "" {
		return domain.ParsePolicyID(raw)
	}
	if len(policies) != 1 {
		return domain.PolicyID{}, fmt.Errorf("file holds %d policies, pass --policy", len(policies))
	}
	return policies[0].ID, nil
}
