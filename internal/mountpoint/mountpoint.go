// Package mountpoint maps absolute file paths to (device id, relative path)
// pairs so that a collection survives its storage moving between mount points.
package mountpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/llehouerou/shoal/internal/storage"
)

// RootID is the pseudo device used for paths outside every registered mount
// point. Its mount point is "/".
const RootID = -1

// Device is one registered mount point.
type Device struct {
	ID         int
	Label      string
	MountPoint string
	Mounted    bool
}

// Manager resolves paths against the devices table.
type Manager struct {
	store storage.Storage

	mu      sync.RWMutex
	devices map[int]string // id -> last mount point
	labels  map[int]string

	// isMounted reports whether a mount point is currently available.
	isMounted func(path string) bool
}

// New loads the registered devices from store.
func New(ctx context.Context, store storage.Storage) (*Manager, error) {
	m := &Manager{
		store:     store,
		devices:   make(map[int]string),
		labels:    make(map[int]string),
		isMounted: dirExists,
	}

	rows, err := store.Query(ctx, "SELECT id, label, lastmountpoint FROM devices;")
	if err != nil {
		return nil, fmt.Errorf("load devices: %w", err)
	}
	for _, row := range rows {
		id, err := strconv.Atoi(row[0])
		if err != nil {
			continue
		}
		m.labels[id] = row[1]
		m.devices[id] = row[2]
	}
	return m, nil
}

// Register returns the device id for mountPoint, inserting a new device when
// the mount point is not known yet.
func (m *Manager) Register(ctx context.Context, mountPoint string) (int, error) {
	if mountPoint == "" {
		return 0, errors.New("empty mount point")
	}
	mountPoint = filepath.Clean(mountPoint)

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, mp := range m.devices {
		if mp == mountPoint {
			return id, nil
		}
	}

	label := filepath.Base(mountPoint)
	id, err := m.store.Insert(ctx, fmt.Sprintf(
		"INSERT INTO devices (type, label, lastmountpoint) VALUES ('local', '%s', '%s');",
		m.store.Escape(label), m.store.Escape(mountPoint)), "devices")
	if err != nil {
		return 0, fmt.Errorf("register device %s: %w", mountPoint, err)
	}
	m.devices[int(id)] = mountPoint
	m.labels[int(id)] = label
	return int(id), nil
}

// Devices returns every registered device ordered by id.
func (m *Manager) Devices() []Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	devices := make([]Device, 0, len(m.devices))
	for id, mp := range m.devices {
		devices = append(devices, Device{
			ID:         id,
			Label:      m.labels[id],
			MountPoint: mp,
			Mounted:    m.isMounted(mp),
		})
	}
	slices.SortFunc(devices, func(a, b Device) int { return a.ID - b.ID })
	return devices
}

// IDForURL returns the mounted device whose mount point is the longest prefix
// of path, or RootID.
func (m *Manager) IDForURL(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return idForURL(m.mounted(), path)
}

// RelativePath returns path relative to the mount point of device id, in the
// "./a/b" form stored in the urls table.
func (m *Manager) RelativePath(id int, path string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return relativePath(m.mountPoint(id), path)
}

// AbsolutePath joins rel to the mount point of device id. Devices that are
// not mounted resolve against their last known mount point.
func (m *Manager) AbsolutePath(id int, rel string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return absolutePath(m.mountPoint(id), rel)
}

// MountedDeviceIDs returns the ids of the currently mounted devices. RootID
// is always present.
func (m *Manager) MountedDeviceIDs() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return mountedIDs(m.mounted())
}

// mounted returns the mounted subset of devices. Caller holds mu.
func (m *Manager) mounted() map[int]string {
	out := make(map[int]string, len(m.devices))
	for id, mp := range m.devices {
		if m.isMounted(mp) {
			out[id] = mp
		}
	}
	return out
}

// mountPoint returns the mount point for id, "/" for unknown ids. Caller holds mu.
func (m *Manager) mountPoint(id int) string {
	if mp, ok := m.devices[id]; ok && id != RootID {
		return mp
	}
	return "/"
}

// Static is a fixed resolver: every listed device counts as mounted.
type Static struct {
	MountPoints map[int]string
}

func (s Static) IDForURL(path string) int {
	return idForURL(s.MountPoints, path)
}

func (s Static) RelativePath(id int, path string) string {
	mp, ok := s.MountPoints[id]
	if !ok || id == RootID {
		mp = "/"
	}
	return relativePath(mp, path)
}

func (s Static) AbsolutePath(id int, rel string) string {
	mp, ok := s.MountPoints[id]
	if !ok || id == RootID {
		mp = "/"
	}
	return absolutePath(mp, rel)
}

func (s Static) MountedDeviceIDs() []int {
	return mountedIDs(s.MountPoints)
}

func idForURL(mounts map[int]string, path string) int {
	path = filepath.Clean(path)
	id, best := RootID, 0
	for devID, mp := range mounts {
		if devID == RootID || !underMount(mp, path) {
			continue
		}
		if len(mp) > best {
			id, best = devID, len(mp)
		}
	}
	return id
}

func relativePath(mountPoint, path string) string {
	rel, err := filepath.Rel(mountPoint, filepath.Clean(path))
	if err != nil {
		rel = strings.TrimPrefix(filepath.Clean(path), "/")
	}
	if rel == "." {
		return "./"
	}
	if strings.HasPrefix(rel, "../") {
		return rel
	}
	return "./" + rel
}

func absolutePath(mountPoint, rel string) string {
	return filepath.Join(mountPoint, rel)
}

func mountedIDs(mounts map[int]string) []int {
	ids := make([]int, 0, len(mounts)+1)
	for id := range mounts {
		if id != RootID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return append(ids, RootID)
}

// underMount reports whether path lies at or below mountPoint.
func underMount(mountPoint, path string) bool {
	if mountPoint == "/" {
		return true
	}
	return path == mountPoint || strings.HasPrefix(path, mountPoint+"/")
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
