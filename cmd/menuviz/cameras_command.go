package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"menuviz/internal/ipc"
	"menuviz/internal/preflight"
)

func newCamerasCommand(ctx *commandContext) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "cameras",
		Short: "List video devices available for capture",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if local {
				cfg := ctx.configValue()
				configured := ""
				if cfg != nil {
					configured = cfg.Camera.Device
				}
				probe := preflight.ProbeCamera(configured)
				for _, d := range probe.Devices {
					fmt.Fprintln(out, d)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), probe.CameraDetail())
				return nil
			}
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				devices, err := client.Cameras(c)
				if err != nil {
					return err
				}
				if len(devices) == 0 {
					fmt.Fprintln(out, "No camera detected")
					return nil
				}
				for _, d := range devices {
					fmt.Fprintln(out, d)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Probe this machine instead of asking the daemon")
	return cmd
}
