package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"menuviz/internal/appstate"
	"menuviz/internal/export"
	"menuviz/internal/ipc"
	"menuviz/internal/logging"
	"menuviz/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Browse, reload and export saved scans",
	}

	var listJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved scans, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				hist, err := client.History(c)
				if err != nil {
					return err
				}
				if listJSON {
					return writeJSON(cmd, hist)
				}
				out := cmd.OutOrStdout()
				if len(hist.Sessions) == 0 {
					fmt.Fprintln(out, "No saved scans")
					return nil
				}
				rows := make([][]string, 0, len(hist.Sessions))
				for _, s := range hist.Sessions {
					rows = append(rows, []string{
						shortID(s.ID),
						s.CreatedAt,
						s.Mode,
						orDash(s.Restaurant),
						strconv.Itoa(s.ItemCount),
						truncate(s.Summary, descriptionWidth),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Created", "Mode", "Restaurant", "Items", "Summary"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")

	loadCmd := &cobra.Command{
		Use:   "load <id>",
		Short: "Make a saved scan the current results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				items, err := client.LoadHistory(c, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				renderItems(out, items, shouldColorize(out))
				return nil
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				if err := client.DeleteHistory(c, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Upload the saved scans to the configured S3 bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}
			exporter, err := export.NewFromConfig(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			state := appstate.Load(cmd.Context(), st, cfg.Translation.DefaultLanguage, logger)
			sessions := state.History()
			key, err := exporter.ExportHistory(cmd.Context(), sessions)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d scan(s) to s3://%s/%s\n", len(sessions), cfg.Export.S3Bucket, key)
			return nil
		},
	}

	historyCmd.AddCommand(listCmd, loadCmd, deleteCmd, exportCmd)
	return historyCmd
}

// shortID trims a uuid to its first block; history lookups accept prefixes.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
