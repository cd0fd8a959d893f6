// SPDX-License-Identifier: MIT
package cmd

import (
	"github.com/spf13/cobra"

	"rtaudio/internal/tui"
	"rtaudio/pkg/backend/portaudio"
)

func newListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.load(cmd); err != nil {
				return err
			}
			if err := portaudio.Initialize(); err != nil {
				return err
			}
			defer portaudio.Terminate()

			if opts.tui {
				return tui.StartDeviceListUI()
			}
			return portaudio.ListDevices(cmd.OutOrStdout())
		},
	}
}
