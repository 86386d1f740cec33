package staging

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/gogpu/staging/driver"
	"github.com/gogpu/staging/internal/hostmem"
)

// MemoryStats reports host memory usage of a device's transfer textures.
type MemoryStats = hostmem.Stats

// nextDeviceID hands out device identifiers; zero is never used.
var nextDeviceID atomic.Uint64

// Device is a handle to an accelerator. It creates transfer textures and
// device textures and is shared by everything it creates.
//
// Transfer textures observe their device without keeping it alive, and
// disposing the device never invalidates their host memory: they stay
// readable and disposable, while copies through them report ErrDeviceLost.
//
// A Device that becomes unreachable without Dispose has its driver
// destroyed by the garbage collector. Call Dispose to release the driver
// at a known point.
//
// Device is safe for concurrent use.
type Device struct {
	id       uint64
	label    string
	drv      driver.Driver
	mem      *hostmem.Allocator
	cleanup  runtime.Cleanup
	disposed atomic.Bool
}

// orphan is what the cleanup of an undisposed Device needs. It must not
// reference the Device.
type orphan struct {
	id  uint64
	drv driver.Driver
}

func releaseOrphan(o orphan) {
	untrackDevice(o.id)
	o.drv.Destroy()
	Logger().Warn("staging: device collected without Dispose", "id", o.id)
}

// NewDevice wraps a driver. The device takes ownership of drv and destroys
// it on Dispose. drv must not be nil.
func NewDevice(drv driver.Driver, opts ...Option) *Device {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	d := &Device{
		id:    nextDeviceID.Add(1),
		label: o.label,
		drv:   drv,
		mem:   hostmem.New(hostmem.Config{BudgetMB: o.budgetMB, RecycleMB: o.recycleMB}),
	}
	trackDevice(d)
	d.cleanup = runtime.AddCleanup(d, releaseOrphan, orphan{id: d.id, drv: drv})

	info := drv.Info()
	Logger().Info("staging: device opened",
		"id", d.id, "label", d.label, "adapter", info.Name, "driver", info.Driver,
		"type", info.Type.String(), "alignment", drv.RowPitchAlignment())
	return d
}

// Open opens the driver registered under name.
func Open(name string, opts ...Option) (*Device, error) {
	drv, err := driver.Get(name)
	if err != nil {
		return nil, fmt.Errorf("staging: %w", err)
	}
	return NewDevice(drv, opts...), nil
}

// OpenDefault opens the best registered driver (wgpu before software).
func OpenDefault(opts ...Option) (*Device, error) {
	drv, err := driver.Default()
	if err != nil {
		return nil, fmt.Errorf("staging: %w", err)
	}
	return NewDevice(drv, opts...), nil
}

// ID returns a process-unique identifier for the device.
func (d *Device) ID() uint64 { return d.id }

// Label returns the debug label set with WithLabel.
func (d *Device) Label() string { return d.label }

// Info describes the adapter behind the device.
func (d *Device) Info() driver.AdapterInfo { return d.drv.Info() }

// RowPitchAlignment returns the byte alignment of transfer texture rows.
func (d *Device) RowPitchAlignment() int { return d.drv.RowPitchAlignment() }

// IsDisposed reports whether Dispose has been called.
func (d *Device) IsDisposed() bool { return d.disposed.Load() }

// MemoryStats returns host memory usage of the device's transfer textures.
func (d *Device) MemoryStats() MemoryStats { return d.mem.Stats() }

// Dispose destroys the driver; device textures created on it become unusable.
// Transfer textures keep their host memory until they are disposed.
// Dispose is safe to call multiple times.
func (d *Device) Dispose() {
	if !d.disposed.CompareAndSwap(false, true) {
		return
	}
	d.cleanup.Stop()
	d.drv.Destroy()
	d.mem.Trim()
	untrackDevice(d.id)
	Logger().Info("staging: device disposed", "id", d.id, "label", d.label)
}

// checkLive returns ErrDeviceLost for disposed devices.
func (d *Device) checkLive() error {
	if d.disposed.Load() {
		return fmt.Errorf("device %d: %w", d.id, ErrDeviceLost)
	}
	return nil
}

// String returns a short description for logs.
func (d *Device) String() string {
	if d.label != "" {
		return fmt.Sprintf("Device[%d %q %s]", d.id, d.label, d.drv.Info().Name)
	}
	return fmt.Sprintf("Device[%d %s]", d.id, d.drv.Info().Name)
}
