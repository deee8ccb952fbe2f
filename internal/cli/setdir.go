package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSetDirCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set-dir <path>",
		Short: "Change the destination directory of a running server",
		Long: "Change the destination directory of a running server. The path is\n" +
			"resolved on the server, relative to its working directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(requestTimeout)
			if err != nil {
				return err
			}
			if err := c.SetDir(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to set directory: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "destination directory set to %s\n", args[0])
			return nil
		},
	}
}
