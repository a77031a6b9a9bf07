package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"menuviz/internal/config"
	"menuviz/internal/daemonctl"
	"menuviz/internal/preflight"
)

const doctorTimeout = 20 * time.Second

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check backends, directories, external commands and cameras",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			checkCtx, cancel := context.WithTimeout(cmd.Context(), doctorTimeout)
			defer cancel()

			emit := func(lines []string) {
				for _, line := range lines {
					fmt.Fprintln(out, line)
				}
			}

			emit(renderSectionHeader("Backends", colorize))
			results := preflight.RunAll(checkCtx, cfg)
			results = append(results, preflight.CheckStoreFromConfig(checkCtx, cfg))
			emit(resultLines(results, colorize))

			emit(renderSectionHeader("Commands", colorize))
			emit(commandLines(preflight.CheckCommands(cfg), colorize))

			emit(renderSectionHeader("Camera", colorize))
			emit([]string{cameraLine(cfg, colorize)})

			emit(renderSectionHeader("Daemon", colorize))
			emit([]string{daemonLine(checkCtx, ctx, colorize)})

			if failed := countFailed(results); failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}

func commandLines(statuses []preflight.CommandStatus, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := make([]string, 0)
	for _, s := range statuses {
		if s.Available {
			lines = append(lines, renderStatusLine(s.Name, statusOK, fmt.Sprintf("Ready (command: %s)", s.Detail), colorize))
			continue
		}
		detail := strings.TrimSpace(s.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if s.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(s.Name, kind, detail, colorize))
		missing = append(missing, s.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Unavailable", statusInfo, strings.Join(missing, ", ")+" (optional features disabled)", colorize))
	}
	return lines
}

func cameraLine(cfg *config.Config, colorize bool) string {
	probe := preflight.ProbeCamera(cfg.Camera.Device)
	if probe.Detected {
		return renderStatusLine("Camera", statusOK, probe.CameraDetail(), colorize)
	}
	return renderStatusLine("Camera", statusWarn, probe.CameraDetail(), colorize)
}

// daemonLine reports whether menuvizd answers. A stopped daemon is only a
// warning: local commands still work.
func daemonLine(cmdCtx context.Context, ctx *commandContext, colorize bool) string {
	client, err := ctx.newClient()
	if err != nil {
		return renderStatusLine("menuvizd", statusError, err.Error(), colorize)
	}
	status, err := client.Status(cmdCtx)
	if err != nil {
		if daemonctl.IsUnavailable(err) {
			return renderStatusLine("menuvizd", statusWarn, "not running at "+client.Address(), colorize)
		}
		return renderStatusLine("menuvizd", statusError, err.Error(), colorize)
	}
	return renderStatusLine("menuvizd", statusOK, fmt.Sprintf("running (pid %d, %s)", status.PID, client.Address()), colorize)
}
