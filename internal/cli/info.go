package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newInfoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show a server's LAN addresses and destination directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(requestTimeout)
			if err != nil {
				return err
			}
			info, err := c.Info(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get server info: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "IPs: %s\n", strings.Join(info.IPs, ", "))
			fmt.Fprintf(out, "Port: %d\n", info.Port)
			fmt.Fprintf(out, "Directory: %s\n", info.Dir)
			return nil
		},
	}
}
