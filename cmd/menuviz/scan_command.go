package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"menuviz/internal/api"
	"menuviz/internal/config"
	"menuviz/internal/ipc"
)

const imagePollInterval = 500 * time.Millisecond

func newScanCommand(ctx *commandContext) *cobra.Command {
	var (
		useCamera   bool
		device      string
		mode        string
		withImages  bool
		waitTimeout time.Duration
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "scan [image]",
		Short: "Scan a menu photo (or a camera frame) and list the dishes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !useCamera && len(args) == 0 {
				return fmt.Errorf("an image path is required unless --camera is set")
			}
			if useCamera && len(args) > 0 {
				return fmt.Errorf("pass either an image path or --camera, not both")
			}

			var image []byte
			var mimeType string
			if !useCamera {
				var err error
				image, mimeType, err = readImage(args[0])
				if err != nil {
					return err
				}
			}

			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				var items *api.ItemsResponse
				var err error
				if useCamera {
					items, err = client.Capture(c, device, mode)
				} else {
					items, err = client.Scan(c, image, mimeType, mode)
				}
				if err != nil {
					return err
				}
				if withImages && len(items.Dishes) > 0 {
					items, err = generateImages(c, client, items, cmd.ErrOrStderr(), waitTimeout)
					if err != nil {
						return err
					}
				}
				if asJSON {
					return writeJSON(cmd, items)
				}
				out := cmd.OutOrStdout()
				renderItems(out, items, shouldColorize(out))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&useCamera, "camera", false, "Capture a frame from the daemon host's camera")
	cmd.Flags().StringVar(&device, "device", "", "Camera device (defaults to camera.device or the first detected)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Scan mode: menu, nutrition or visualizer")
	cmd.Flags().BoolVar(&withImages, "images", false, "Generate dish images and wait for them")
	cmd.Flags().DurationVar(&waitTimeout, "wait", 2*time.Minute, "How long to wait for images")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// readImage loads an image file and guesses its MIME type from the
// extension, falling back to content sniffing.
func readImage(path string) ([]byte, string, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("image %s is empty", expanded)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(expanded)))
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("%s does not look like an image (%s)", expanded, mimeType)
	}
	return data, mimeType, nil
}

// generateImages marks every listed dish visible and polls until each image
// is ready or failed, drawing a progress bar on progress.
func generateImages(ctx context.Context, client *ipc.Client, items *api.ItemsResponse, progress io.Writer, timeout time.Duration) (*api.ItemsResponse, error) {
	for _, d := range items.Dishes {
		if _, err := client.NotifyVisible(ctx, d.ID); err != nil {
			return nil, err
		}
	}

	bar := progressbar.NewOptions(len(items.Dishes),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("Generating images"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	defer func() { _ = bar.Finish() }()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(imagePollInterval)
	defer ticker.Stop()

	for {
		current, err := client.Items(waitCtx)
		if err != nil {
			if waitCtx.Err() != nil && ctx.Err() == nil {
				return items, nil
			}
			return nil, err
		}
		items = current
		done := settledImages(items)
		_ = bar.Set(done)
		if done >= len(items.Dishes) {
			return items, nil
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return items, nil
		case <-ticker.C:
		}
	}
}

func settledImages(items *api.ItemsResponse) int {
	n := 0
	for _, d := range items.Dishes {
		if d.GeneratedImageURL != "" || d.GenerationFailed {
			n++
		}
	}
	return n
}

func newItemsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "items",
		Short: "List the current dishes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				items, err := client.Items(c)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, items)
				}
				out := cmd.OutOrStdout()
				renderItems(out, items, shouldColorize(out))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-scan the last image",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				items, err := client.Refresh(c)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				renderItems(out, items, shouldColorize(out))
				return nil
			})
		},
	}
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the current results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				if err := client.Reset(c); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Results cleared")
				return nil
			})
		},
	}
}
