package camera

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/pilebones/go-udev/netlink"

	"menuviz/internal/logging"
	"menuviz/internal/services"
)

func TestListMatching(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"video2", "video0", "audio0"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got := listMatching(filepath.Join(dir, "video*"))
	want := []string{filepath.Join(dir, "video0"), filepath.Join(dir, "video2")}
	if !slices.Equal(got, want) {
		t.Fatalf("listMatching = %v, want %v", got, want)
	}
	if got := listMatching(filepath.Join(dir, "none*")); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", got)
	}
}

func TestMonitorHandleUpdatesDevices(t *testing.T) {
	var events []Event
	m := &Monitor{
		logger:  logging.NewNop(),
		devices: NewDevices([]string{"/dev/video0"}),
		handler: func(_ context.Context, ev Event) { events = append(events, ev) },
	}

	m.handle(context.Background(), netlink.UEvent{Action: "add", Env: map[string]string{"DEVNAME": "video1"}})
	m.handle(context.Background(), netlink.UEvent{Action: "add", Env: map[string]string{"DEVNAME": "/dev/video1"}})
	m.handle(context.Background(), netlink.UEvent{Action: "remove", Env: map[string]string{"DEVPATH": "/devices/usb1/video4linux/video0"}})
	m.handle(context.Background(), netlink.UEvent{Action: "change", Env: map[string]string{"DEVNAME": "/dev/video3"}})

	if got := m.Devices(); !slices.Equal(got, []string{"/dev/video1"}) {
		t.Fatalf("devices = %v", got)
	}
	want := []Event{{Action: "add", Device: "/dev/video1"}, {Action: "remove", Device: "/dev/video0"}}
	if !slices.Equal(events, want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
}

func TestNilMonitorIsSafe(t *testing.T) {
	var m *Monitor
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.Stop()
	if m.Running() {
		t.Fatal("nil monitor should not run")
	}
}

func TestCapture(t *testing.T) {
	c := NewCapturer("/bin/sh", []string{"-c", `printf '\377\330\377\340' > "$1"`, "sh", "{output}"})
	data, mime, err := c.Capture(context.Background(), "/dev/video0")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if mime != "image/jpeg" || len(data) != 4 {
		t.Fatalf("unexpected capture %q (%d bytes)", mime, len(data))
	}
}

func TestCaptureErrors(t *testing.T) {
	if _, _, err := NewCapturer("", nil).Capture(context.Background(), "/dev/video0"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, _, err := NewCapturer("/bin/true", nil).Capture(context.Background(), " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, _, err := NewCapturer("/bin/sh", []string{"-c", "exit 1"}).Capture(context.Background(), "/dev/video0"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if _, _, err := NewCapturer("/bin/true", nil).Capture(context.Background(), "/dev/video0"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("missing output should fail, got %v", err)
	}
}
