package camera

import (
	"path/filepath"
	"slices"
	"sync"
)

const devPattern = "/dev/video*"

// List returns the video devices currently present, sorted.
func List() []string {
	return listMatching(devPattern)
}

func listMatching(pattern string) []string {
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return []string{}
	}
	slices.Sort(matches)
	return matches
}

// Devices is a concurrency-safe set of known device paths.
type Devices struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// NewDevices seeds the set.
func NewDevices(initial []string) *Devices {
	d := &Devices{paths: make(map[string]struct{}, len(initial))}
	for _, p := range initial {
		d.paths[p] = struct{}{}
	}
	return d
}

// Add records a device and reports whether it was new.
func (d *Devices) Add(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.paths[path]; ok {
		return false
	}
	d.paths[path] = struct{}{}
	return true
}

// Remove forgets a device and reports whether it was known.
func (d *Devices) Remove(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.paths[path]; !ok {
		return false
	}
	delete(d.paths, path)
	return true
}

// List returns the known devices, sorted.
func (d *Devices) List() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.paths))
	for p := range d.paths {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
