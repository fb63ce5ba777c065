package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides device management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache keyed by device key.
//
// The cache is populated on startup via RefreshCache() and kept in sync by
// the mutating operations, including auto-provisioning during ingestion.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a new device registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Device, len(devices))
	for i := range devices {
		d := devices[i]
		r.cache[d.Key] = d.Clone()
	}

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// GetDevice retrieves a device by key.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, key string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[key]
	r.cacheMu.RUnlock()

	if ok {
		return cached.Clone(), nil
	}

	// Fall back to repository (might be a device provisioned by another path)
	device, err := r.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[key] = device.Clone()
	r.cacheMu.Unlock()

	return device, nil
}

// ListDevices retrieves all devices ordered by display name.
// The returned devices are copies; callers can safely modify them.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	r.cacheMu.RLock()

	if len(r.cache) > 0 {
		devices := make([]Device, 0, len(r.cache))
		for _, d := range r.cache {
			devices = append(devices, *d.Clone())
		}
		r.cacheMu.RUnlock()

		sort.Slice(devices, func(i, j int) bool {
			if devices[i].Name == devices[j].Name {
				return devices[i].Key < devices[j].Key
			}
			return devices[i].Name < devices[j].Name
		})
		return devices, nil
	}

	r.cacheMu.RUnlock()
	return r.repo.List(ctx)
}

// CreateDevice creates a new device.
// It fills the display name and poll interval defaults, validates, and persists.
func (r *Registry) CreateDevice(ctx context.Context, device *Device) error {
	if device.Name == "" {
		device.Name = NameFromKey(device.Key)
	}
	if device.PollIntervalSec == 0 {
		device.PollIntervalSec = DefaultPollInterval
	}

	if err := ValidateDevice(device); err != nil {
		return err
	}

	if err := r.repo.Create(ctx, device); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[device.Key] = device.Clone()
	r.cacheMu.Unlock()

	r.logger.Info("device created", "key", device.Key, "name", device.Name)
	return nil
}

// UpdateDevice updates an existing device.
// It validates the device and persists the changes.
func (r *Registry) UpdateDevice(ctx context.Context, device *Device) error {
	if err := ValidateDevice(device); err != nil {
		return err
	}

	if err := r.repo.Update(ctx, device); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[device.Key] = device.Clone()
	r.cacheMu.Unlock()

	r.logger.Info("device updated", "key", device.Key, "name", device.Name)
	return nil
}

// Upsert inserts or replaces the cached copy of a device.
//
// Used by ingestion after auto-provisioning commits: the device row already
// exists in the database at that point, so only the cache needs updating.
func (r *Registry) Upsert(device *Device) {
	if device == nil {
		return
	}

	r.cacheMu.Lock()
	r.cache[device.Key] = device.Clone()
	r.cacheMu.Unlock()

	r.logger.Debug("device cached", "key", device.Key)
}

// GetDeviceCount returns the number of cached devices.
func (r *Registry) GetDeviceCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
