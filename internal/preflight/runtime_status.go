package preflight

import (
	"context"
	"fmt"
	"strings"

	"menuviz/internal/camera"
	"menuviz/internal/config"
	"menuviz/internal/store"
)

// CheckStoreFromConfig opens the persistent store and reports its usage
// against the configured quota.
func CheckStoreFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Local store"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	st, err := store.Open(cfg)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("open failed (%v)", err)}
	}
	defer st.Close()

	usage, err := st.Usage(ctx, "")
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("usage query failed (%v)", err)}
	}
	if quota := st.Quota(); quota > 0 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d keys, %d of %d bytes", usage.Keys, usage.Bytes, quota)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d keys, %d bytes (no quota)", usage.Keys, usage.Bytes)}
}

// CameraProbe reports the current video device snapshot.
type CameraProbe struct {
	Detected bool
	Device   string
	Devices  []string
}

// ProbeCamera lists video devices and resolves which one a capture would
// use: the configured device when present, otherwise the first detected.
func ProbeCamera(configured string) CameraProbe {
	devices := camera.List()
	configured = strings.TrimSpace(configured)
	probe := CameraProbe{Devices: devices, Device: configured}
	if configured == "" && len(devices) > 0 {
		probe.Device = devices[0]
	}
	for _, d := range devices {
		if d == probe.Device {
			probe.Detected = true
		}
	}
	return probe
}

// CameraDetail renders a display-friendly summary for status UIs.
func (p CameraProbe) CameraDetail() string {
	if !p.Detected {
		if p.Device != "" {
			return fmt.Sprintf("%s not present", p.Device)
		}
		return "No camera detected"
	}
	return fmt.Sprintf("%s (%d device(s) found)", p.Device, len(p.Devices))
}
