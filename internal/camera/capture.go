package camera

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"menuviz/internal/services"
)

// Capturer grabs one still frame per call.
type Capturer struct {
	command string
	args    []string
}

// NewCapturer builds a capturer. "{device}" and "{output}" in args are
// replaced with the device path and a temporary output file.
func NewCapturer(command string, args []string) *Capturer {
	return &Capturer{command: strings.TrimSpace(command), args: append([]string(nil), args...)}
}

// Capture runs the capture command against device and returns the image
// bytes and their mime type.
func (c *Capturer) Capture(ctx context.Context, device string) ([]byte, string, error) {
	if c.command == "" {
		return nil, "", services.Wrap(services.ErrConfiguration, "camera", "capture",
			"camera.capture_command is not set", nil)
	}
	device = strings.TrimSpace(device)
	if device == "" {
		return nil, "", services.Wrap(services.ErrValidation, "camera", "capture",
			"no camera device selected", nil)
	}

	dir, err := os.MkdirTemp("", "menuviz-capture-")
	if err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "camera", "capture", "create temp dir", err)
	}
	defer os.RemoveAll(dir)
	output := filepath.Join(dir, "frame.jpg")

	replacer := strings.NewReplacer("{device}", device, "{output}", output)
	args := make([]string, len(c.args))
	for i, a := range c.args {
		args[i] = replacer.Replace(a)
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, "", services.Wrap(services.ErrTimeout, "camera", "capture", "capture cancelled", ctx.Err())
		}
		return nil, "", services.Wrap(services.ErrExternalTool, "camera", "capture",
			fmt.Sprintf("%s failed: %s", c.command, lastLine(string(out))), err)
	}

	data, err := os.ReadFile(output)
	if err != nil || len(data) == 0 {
		return nil, "", services.Wrap(services.ErrExternalTool, "camera", "capture",
			"capture command produced no image", err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return nil, "", services.Wrap(services.ErrExternalTool, "camera", "capture",
			fmt.Sprintf("capture produced %s, not an image", mime), nil)
	}
	return data, mime, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}
