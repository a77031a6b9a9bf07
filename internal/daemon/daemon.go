package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"menuviz/internal/appstate"
	"menuviz/internal/camera"
	"menuviz/internal/config"
	"menuviz/internal/logging"
	"menuviz/internal/services"
	"menuviz/internal/session"
	"menuviz/internal/store"
)

// Daemon owns the live session and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	state    *appstate.State
	session  *session.Session
	monitor  *camera.Monitor
	capturer *camera.Capturer
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StorePath    string
	LockFilePath string
	Session      session.Snapshot
	Cameras      []string
	CameraWatch  bool
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, state *appstate.State, sess *session.Session, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || state == nil || sess == nil {
		return nil, errors.New("daemon requires config, store, state, and session")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		state:    state,
		session:  sess,
		capturer: camera.NewCapturer(cfg.Camera.CaptureCommand, cfg.Camera.CaptureArgs),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	if cfg.Camera.Monitor {
		d.monitor = camera.NewMonitor(logger, d.handleCameraEvent)
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock, starts the camera monitor and the API
// server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another menuvizd instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.monitor.Start(d.ctx); err != nil {
		logging.WarnWithContext(d.logger, "camera monitor unavailable", "camera_monitor_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check udev netlink permissions"),
			logging.String(logging.FieldImpact, "camera list will not update on hotplug"),
		)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.monitor.Stop()
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("menuviz daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background work and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	d.monitor.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.session.Reset()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("menuviz daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr returns the address the API server listens on, or "" when the
// API is disabled or stopped.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Session returns the live scan session.
func (d *Daemon) Session() *session.Session {
	return d.session
}

// State returns the persisted application state.
func (d *Daemon) State() *appstate.State {
	return d.state
}

// Cameras lists known video devices.
func (d *Daemon) Cameras() []string {
	if d.monitor != nil && d.monitor.Running() {
		return d.monitor.Devices()
	}
	return camera.List()
}

// CaptureCamera grabs a still from device, or the configured/first known
// device when empty, and scans it.
func (d *Daemon) CaptureCamera(ctx context.Context, device string) error {
	device = strings.TrimSpace(device)
	if device == "" {
		device = strings.TrimSpace(d.cfg.Camera.Device)
	}
	if device == "" {
		if devices := d.Cameras(); len(devices) > 0 {
			device = devices[0]
		}
	}
	if device == "" {
		return services.Wrap(services.ErrNotFound, "daemon", "capture", "no camera device available", nil)
	}
	image, mimeType, err := d.capturer.Capture(ctx, device)
	if err != nil {
		return err
	}
	return d.session.Capture(ctx, image, mimeType)
}

func (d *Daemon) handleCameraEvent(_ context.Context, ev camera.Event) {
	d.logger.Info("camera device changed",
		logging.String("action", ev.Action),
		logging.String("device", ev.Device),
	)
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StorePath:    d.store.Path(),
		LockFilePath: d.lockPath,
		Session:      d.session.Snapshot(),
		Cameras:      d.Cameras(),
		CameraWatch:  d.monitor != nil && d.monitor.Running(),
	}
}
