package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"menuviz/internal/ipc"
	"menuviz/internal/restaurant"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "translate [dish]",
		Short: "Translate a dish, or every dish with --all",
		Long:  "Translate a dish into the current language. A dish is referenced by its list number, id or name.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("pass either a dish or --all")
			}
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				out := cmd.OutOrStdout()
				if all {
					n, err := client.TranslateAll(c)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Translated %d dish(es)\n", n)
					return nil
				}
				items, err := client.Items(c)
				if err != nil {
					return err
				}
				dish, err := resolveDish(items, args[0])
				if err != nil {
					return err
				}
				resp, err := client.Translate(c, dish.ID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				renderTranslation(out, dish.Name, resp.Translation)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Translate every dish")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newRecipeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "recipe <dish>",
		Short: "Generate a home recipe for a dish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				items, err := client.Items(c)
				if err != nil {
					return err
				}
				dish, err := resolveDish(items, args[0])
				if err != nil {
					return err
				}
				resp, err := client.Recipe(c, dish.ID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				renderRecipe(cmd.OutOrStdout(), dish.Name, resp.Recipe)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newImageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "image <dish>",
		Short: "Request (or retry) the generated image for a dish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				items, err := client.Items(c)
				if err != nil {
					return err
				}
				dish, err := resolveDish(items, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if dish.GeneratedImageURL != "" {
					fmt.Fprintln(out, dish.GeneratedImageURL)
					return nil
				}
				queued, err := client.RequestImage(c, dish.ID)
				if err != nil {
					return err
				}
				if queued {
					fmt.Fprintf(out, "Image for %s queued\n", dish.Name)
				} else {
					fmt.Fprintf(out, "Image for %s already in progress\n", dish.Name)
				}
				return nil
			})
		},
	}
}

func newFavoriteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <dish>",
		Short: "Toggle a dish as favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				items, err := client.Items(c)
				if err != nil {
					return err
				}
				dish, err := resolveDish(items, args[0])
				if err != nil {
					return err
				}
				fav, err := client.ToggleFavorite(c, dish.ID)
				if err != nil {
					return err
				}
				state := "removed from"
				if fav {
					state = "added to"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s favorites\n", dish.Name, state)
				return nil
			})
		},
	}
}

func newChatCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask the concierge about the current menu",
		Long:  "Ask one question, or start an interactive session when no message is given. An empty line or EOF ends the session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				out := cmd.OutOrStdout()
				if len(args) > 0 {
					reply, err := client.Chat(c, strings.Join(args, " "))
					if err != nil {
						return err
					}
					fmt.Fprintln(out, reply)
					return nil
				}
				return chatLoop(c, client, cmd.InOrStdin(), out)
			})
		},
	}
}

func chatLoop(ctx context.Context, client *ipc.Client, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			return nil
		}
		reply, err := client.Chat(ctx, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, reply)
	}
}

func newSpeakCommand(ctx *commandContext) *cobra.Command {
	var toggle bool
	cmd := &cobra.Command{
		Use:   "speak",
		Short: "Print the read-aloud text, or toggle playback on the daemon host",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				out := cmd.OutOrStdout()
				if !toggle {
					resp, err := client.Speech(c)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, resp.Text)
					return nil
				}
				resp, err := client.ToggleSpeech(c)
				if err != nil {
					return err
				}
				if resp.Speaking {
					fmt.Fprintln(out, "Reading results aloud")
				} else {
					fmt.Fprintln(out, "Playback stopped")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&toggle, "toggle", false, "Start or stop playback through speech.command")
	return cmd
}

func newRestaurantCommand(ctx *commandContext) *cobra.Command {
	var lookup bool
	cmd := &cobra.Command{
		Use:   "restaurant",
		Short: "Show the restaurant read from the menu, optionally with a reputation lookup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				var details *restaurant.Details
				if lookup {
					d, err := client.LookupRestaurant(c)
					if err != nil {
						return err
					}
					details = d
				} else {
					items, err := client.Items(c)
					if err != nil {
						return err
					}
					details = items.Restaurant
				}
				out := cmd.OutOrStdout()
				if details == nil || details.Name == "" {
					fmt.Fprintln(out, "No restaurant name on this menu")
					return nil
				}
				renderRestaurant(out, *details)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&lookup, "lookup", false, "Ask the text model about the restaurant's reputation")
	return cmd
}

func renderRestaurant(out io.Writer, d restaurant.Details) {
	fmt.Fprintln(out, d.Name)
	if d.Location != "" {
		fmt.Fprintf(out, "  Location: %s\n", d.Location)
	}
	if d.Rating != nil {
		fmt.Fprintf(out, "  Rating: %.1f stars\n", *d.Rating)
	}
	if d.Summary != "" {
		fmt.Fprintf(out, "  %s\n", d.Summary)
	}
	if d.MapLink != "" {
		fmt.Fprintf(out, "  Map: %s\n", d.MapLink)
	}
}
