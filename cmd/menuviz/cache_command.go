package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"menuviz/internal/cache"
	"menuviz/internal/store"
)

// cacheTargets are the namespaces "menuviz cache" manages.
var cacheTargets = []struct {
	name   string
	prefix string
}{
	{"images", cache.ImageNamespace},
	{"translations", cache.TranslationNamespace},
}

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the local image and translation caches",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			rows := make([][]string, 0, len(cacheTargets)+1)
			for _, target := range cacheTargets {
				usage, err := st.Usage(cmd.Context(), target.prefix)
				if err != nil {
					return err
				}
				rows = append(rows, []string{target.name, strconv.Itoa(usage.Keys), strconv.FormatInt(usage.Bytes, 10)})
			}
			total, err := st.Usage(cmd.Context(), "")
			if err != nil {
				return err
			}
			footer := []string{"store", strconv.Itoa(total.Keys), strconv.FormatInt(total.Bytes, 10)}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTableWithFooter(
				[]string{"Cache", "Entries", "Bytes"},
				rows,
				footer,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			if quota := st.Quota(); quota > 0 {
				fmt.Fprintf(out, "Quota: %d bytes (%s)\n", quota, st.Path())
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:       "clear [images|translations|all]",
		Short:     "Delete cached entries",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"images", "translations", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			which := "all"
			if len(args) == 1 {
				which = args[0]
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			matched := false
			out := cmd.OutOrStdout()
			for _, target := range cacheTargets {
				if which != "all" && which != target.name {
					continue
				}
				matched = true
				n, err := st.DeletePrefix(cmd.Context(), target.prefix)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d %s entr%s\n", n, target.name, plural(n, "y", "ies"))
			}
			if !matched {
				return fmt.Errorf("unknown cache %q (want images, translations or all)", which)
			}
			return nil
		},
	}

	cacheCmd.AddCommand(statsCmd, clearCmd)
	return cacheCmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
