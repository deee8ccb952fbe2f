package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSendCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "send <file>...",
		Short: "Upload files to a landrop server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(0)
			if err != nil {
				return err
			}
			if err := c.UploadFiles(cmd.Context(), args...); err != nil {
				return fmt.Errorf("failed to send files: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d file(s)\n", len(args))
			return nil
		},
	}
}
