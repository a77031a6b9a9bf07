package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"menuviz/internal/dietary"
	"menuviz/internal/ipc"
	"menuviz/internal/language"
)

// prefFlags maps flag names onto the boolean preference fields.
var prefFlags = []struct {
	name  string
	usage string
	field func(*dietary.Preferences) *bool
}{
	{"vegan", "Vegan", func(p *dietary.Preferences) *bool { return &p.Vegan }},
	{"vegetarian", "Vegetarian", func(p *dietary.Preferences) *bool { return &p.Vegetarian }},
	{"gluten-free", "Gluten free", func(p *dietary.Preferences) *bool { return &p.GlutenFree }},
	{"dairy-free", "Dairy free", func(p *dietary.Preferences) *bool { return &p.DairyFree }},
	{"no-peanuts", "Avoid peanuts", func(p *dietary.Preferences) *bool { return &p.AvoidPeanuts }},
	{"no-shellfish", "Avoid shellfish", func(p *dietary.Preferences) *bool { return &p.AvoidShellfish }},
}

func newPrefsCommand(ctx *commandContext) *cobra.Command {
	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change dietary preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				prefs, err := client.Preferences(c)
				if err != nil {
					return err
				}
				renderPreferences(cmd.OutOrStdout(), prefs)
				return nil
			})
		},
	}

	values := make([]bool, len(prefFlags))
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change dietary flags, e.g. --vegan --gluten-free=false",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				prefs, err := client.Preferences(c)
				if err != nil {
					return err
				}
				changed := false
				for i, f := range prefFlags {
					if cmd.Flags().Changed(f.name) {
						*f.field(&prefs) = values[i]
						changed = true
					}
				}
				if !changed {
					return fmt.Errorf("no preference flags given")
				}
				saved, err := client.SetPreferences(c, prefs)
				if err != nil {
					return err
				}
				renderPreferences(cmd.OutOrStdout(), saved)
				return nil
			})
		},
	}
	for i, f := range prefFlags {
		setCmd.Flags().BoolVar(&values[i], f.name, false, f.usage)
	}

	allergyCmd := &cobra.Command{
		Use:   "allergy",
		Short: "Manage custom allergies",
	}
	allergyCmd.AddCommand(
		newAllergyCommand(ctx, "add", "Add a custom allergy", dietary.Preferences.AddAllergy),
		newAllergyCommand(ctx, "remove", "Remove a custom allergy", dietary.Preferences.RemoveAllergy),
	)

	prefsCmd.AddCommand(setCmd, allergyCmd)
	return prefsCmd
}

func newAllergyCommand(ctx *commandContext, use, short string, apply func(dietary.Preferences, string) dietary.Preferences) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				prefs, err := client.Preferences(c)
				if err != nil {
					return err
				}
				saved, err := client.SetPreferences(c, apply(prefs, strings.Join(args, " ")))
				if err != nil {
					return err
				}
				renderPreferences(cmd.OutOrStdout(), saved)
				return nil
			})
		},
	}
}

func renderPreferences(out io.Writer, prefs dietary.Preferences) {
	rows := make([][]string, 0, len(prefFlags)+1)
	for _, f := range prefFlags {
		rows = append(rows, []string{f.usage, yesNo(*f.field(&prefs))})
	}
	allergies := "-"
	if len(prefs.CustomAllergies) > 0 {
		allergies = strings.Join(prefs.CustomAllergies, ", ")
	}
	rows = append(rows, []string{"Custom allergies", allergies})
	fmt.Fprintln(out, renderTable([]string{"Preference", "Value"}, rows, nil))
}

func newLanguageCommand(ctx *commandContext) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "language [code]",
		Short: "Show, list or change the translation language",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				rows := [][]string{}
				for _, l := range language.Supported() {
					rows = append(rows, []string{l.Code, l.Name, l.Flag})
				}
				fmt.Fprintln(out, renderTable([]string{"Code", "Language", ""}, rows, nil))
				return nil
			}
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				if len(args) == 0 {
					status, err := client.Status(c)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s (%s)\n", language.DisplayName(status.Language), status.Language)
					return nil
				}
				resp, err := client.SetLanguage(c, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Language changed from %s to %s\n", resp.Previous, resp.Current)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List supported languages")
	return cmd
}
