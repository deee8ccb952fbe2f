package cli

import (
	"github.com/spf13/cobra"

	"landrop/internal/modes"
)

func newServeCmd(opts *options) *cobra.Command {
	var (
		dir     string
		address string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the upload server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("dir") {
				opts.cfg.Upload.Dir = dir
			}
			if cmd.Flags().Changed("address") {
				opts.cfg.Server.Address = address
			}
			if cmd.Flags().Changed("port") {
				opts.cfg.Server.Port = port
			}
			if err := opts.cfg.Validate(); err != nil {
				return err
			}
			return modes.RunServer(opts.cfg)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Destination directory (default ./uploads)")
	cmd.Flags().StringVar(&address, "address", "", "Listen address")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port")

	return cmd
}
