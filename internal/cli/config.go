package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"landrop/pkg/config"
)

func newConfigCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" {
				if err := config.GenerateDefaultConfig(output); err != nil {
					return fmt.Errorf("failed to write default config: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "default configuration written to %s\n", output)
				return nil
			}

			data, err := opts.cfg.ToYAML()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n", opts.cfgSource)
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "init", "o", "", "Write a default configuration file to this path instead")
	return cmd
}
