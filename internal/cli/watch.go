package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"landrop/internal/landrop/domain"
)

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print upload progress events as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(0)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			err = c.Watch(ctx, func(ev domain.UploadEvent) error {
				switch ev.Status {
				case domain.StatusStarted:
					fmt.Fprintf(out, "%s: starting\n", ev.File)
				case domain.StatusProgress:
					fmt.Fprintf(out, "%s: %d bytes\n", ev.File, ev.BytesWritten())
				case domain.StatusDone:
					fmt.Fprintf(out, "%s: complete\n", ev.File)
				}
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
