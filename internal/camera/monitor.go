package camera

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"menuviz/internal/logging"
)

// Event is a device arrival or removal.
type Event struct {
	Action string
	Device string
}

// Monitor listens for udev netlink events and keeps the device set current.
type Monitor struct {
	logger  *slog.Logger
	handler func(ctx context.Context, ev Event)
	devices *Devices

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewMonitor seeds the device set from /dev and returns an unstarted monitor.
// handler may be nil.
func NewMonitor(logger *slog.Logger, handler func(ctx context.Context, ev Event)) *Monitor {
	return &Monitor{
		logger:  logging.NewComponentLogger(logger, "camera-monitor"),
		handler: handler,
		devices: NewDevices(List()),
	}
}

// Devices returns the known devices.
func (m *Monitor) Devices() []string {
	if m == nil {
		return List()
	}
	return m.devices.List()
}

// Start connects to the netlink socket. A connection failure is logged and
// leaves the monitor stopped; capture still works with a configured device.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; camera hotplug disabled",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon may open netlink sockets"),
			logging.String(logging.FieldImpact, "camera list refreshes only on restart"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true
	quit := m.quit
	go m.loop(ctx, conn, quit)

	m.logger.Info("camera monitor started",
		logging.String(logging.FieldEventType, "camera_monitor_started"),
		logging.Int("devices", len(m.devices.List())),
	)
	return nil
}

// Stop closes the netlink socket.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	close(m.quit)
	m.quit = nil
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
	m.logger.Info("camera monitor stopped", logging.String(logging.FieldEventType, "camera_monitor_stopped"))
}

// Running reports whether the monitor is listening.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) loop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, matcher())
	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handle(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "camera hotplug may be missed"),
			)
		}
	}
}

// matcher selects SUBSYSTEM=video4linux with ACTION=add|remove.
func matcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env:    map[string]string{"SUBSYSTEM": "video4linux"},
	})
	return rules
}

func (m *Monitor) handle(ctx context.Context, uevent netlink.UEvent) {
	device := deviceName(uevent)
	if device == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}
	action := string(uevent.Action)
	var changed bool
	switch action {
	case "add":
		changed = m.devices.Add(device)
	case "remove":
		changed = m.devices.Remove(device)
	default:
		return
	}
	if !changed {
		return
	}
	m.logger.Info("camera device changed",
		logging.String(logging.FieldEventType, "camera_"+action),
		logging.String("device", device),
	)
	if m.handler != nil {
		m.handler(ctx, Event{Action: action, Device: device})
	}
}

func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/") {
			devname = "/dev/" + devname
		}
		return devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
