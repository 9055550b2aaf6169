// Command casectl is the offline companion to the casework server: it verifies exported case
// files, searches policy files, generates case numbers, issues tokens and tails the audit topic.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "casectl",
		Short:         "Operator tooling for workplace-conflict cases",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.AddCommand(newVerifyCmd())
	root.AddCommand(newPolicyCmd())
	root.AddCommand(newNumberCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newEventsCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
