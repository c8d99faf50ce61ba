package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/scate/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "scate %s\n", version.String())
			return err
		},
	}
}
