// Package cli implements dvctl, the operator tool for issuing client
// credentials and running verifications against local files.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the dvctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dvctl",
		Short:         "Operator tool for the docverify service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(NewTokenCmd())
	root.AddCommand(NewHashKeyCmd())
	root.AddCommand(NewVerifyCmd())
	root.AddCommand(NewDetectEdgesCmd())
	return root
}
