package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"menuviz/internal/api"
	"menuviz/internal/daemonctl"
	"menuviz/internal/daemonrun"
	"menuviz/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startDiagnostic bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the menuviz daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), client, exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.configPath(),
				Diagnostic: startDiagnostic,
			}, 10*time.Second)
			if err != nil {
				return err
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d) at %s\n", result.PID, client.Address())
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			}
			return nil
		},
	}
	startCmd.Flags().BoolVar(&startDiagnostic, "diagnostic", false, "Enable debug logging tagged with a run id")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the menuviz daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			result, err := daemonctl.StopAndTerminate(cmd.Context(), client, ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintf(stdout, "Daemon stopped (pid %d)\n", result.PID)
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil && !daemonctl.IsUnavailable(err) {
				return err
			}
			if statusJSON {
				if status == nil {
					status = &api.DaemonStatus{}
				}
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range daemonStatusLines(status, client, colorize) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")

	var runDiagnostic bool
	var runLogLevel string
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the menuviz daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:   runLogLevel,
				Diagnostic: runDiagnostic,
			})
		},
	}
	daemonCmd.Flags().BoolVar(&runDiagnostic, "diagnostic", false, "Enable debug logging tagged with a run id")
	daemonCmd.Flags().StringVar(&runLogLevel, "log-level", "", "Override logging.level")

	return []*cobra.Command{startCmd, stopCmd, statusCmd, daemonCmd}
}

func daemonStatusLines(status *api.DaemonStatus, client *ipc.Client, colorize bool) []string {
	lines := renderSectionHeader("MenuViz", colorize)
	if status == nil || !status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusError, "Not running at "+client.Address(), colorize))
		return lines
	}
	lines = append(lines,
		renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d) at %s", status.PID, client.Address()), colorize),
		renderStatusLine("Store", statusInfo, status.StorePath, colorize),
	)

	sessionKind := statusInfo
	sessionText := fmt.Sprintf("%s, %s mode, %d item(s)", status.State, status.Mode, status.ItemCount)
	if strings.TrimSpace(status.Error) != "" {
		sessionKind = statusWarn
		sessionText += ": " + status.Error
	}
	lines = append(lines,
		renderStatusLine("Session", sessionKind, sessionText, colorize),
		renderStatusLine("Language", statusInfo, status.Language, colorize),
		renderStatusLine("Image queue", statusInfo, fmt.Sprintf("%d in flight, %d pending (cap %d)", status.Dispatch.InFlight, status.Dispatch.Pending, status.Dispatch.Cap), colorize),
	)

	camKind := statusOK
	camText := strings.Join(status.Cameras, ", ")
	if len(status.Cameras) == 0 {
		camKind = statusWarn
		camText = "No camera detected"
	}
	lines = append(lines, renderStatusLine("Cameras", camKind, camText, colorize))
	watch := "Hotplug monitoring inactive"
	if status.CameraWatch {
		watch = "Hotplug monitoring active"
	}
	lines = append(lines, renderStatusLine("Camera watch", statusInfo, watch, colorize))
	return lines
}
