package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand adds a `version` subcommand printing Full, or Short with --short.
func AttachCobraVersionCommand(root *cobra.Command) {
	var short bool

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the packager's own version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			if short {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), Short())
				return
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), Full())
		},
	}

	versionCmd.Flags().BoolVar(&short, "short", false, "print only the version number")
	root.AddCommand(versionCmd)
}
