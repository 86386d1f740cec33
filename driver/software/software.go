// Package software implements driver.Driver on the CPU.
//
// The emulated device keeps texture storage in Go memory with its own row
// alignment and executes transfers on a dedicated queue goroutine. Callers
// block on a per-job fence, the way a hardware driver waits for a submitted
// command buffer. Large copies are split into row bands and run on a worker
// pool.
//
// Importing the package registers the driver as "software".
package software

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/staging/driver"
	"github.com/gogpu/staging/internal/layout"
	"github.com/gogpu/staging/internal/parallel"
)

func init() {
	driver.Register(driver.NameSoftware, func() (driver.Driver, error) {
		return New()
	})
}

// job is one unit of queued work and the fence its submitter waits on.
type job struct {
	run   func() error
	fence chan error
}

// Stats reports resource usage of a Driver.
type Stats struct {
	// Textures is the number of live textures.
	Textures int

	// ResidentBytes is the texture storage held by live textures.
	ResidentBytes int

	// Submitted counts jobs executed by the queue.
	Submitted uint64
}

// Driver is an emulated staging device. It is safe for concurrent use.
type Driver struct {
	cfg  config
	pool *parallel.WorkerPool

	// submitMu orders job submission against Destroy closing the queue.
	submitMu sync.RWMutex
	queue    chan job
	idle     chan struct{}
	lost     atomic.Bool

	mu        sync.Mutex
	textures  int
	resident  int
	submitted atomic.Uint64
}

// New creates a software driver.
func New(opts ...Option) (*Driver, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if !layout.IsPowerOfTwo(cfg.alignment) {
		return nil, fmt.Errorf("software: row pitch alignment %d: %w", cfg.alignment, layout.ErrBadAlignment)
	}

	d := &Driver{
		cfg:   cfg,
		pool:  parallel.NewWorkerPool(cfg.workers),
		queue: make(chan job, queueDepth),
		idle:  make(chan struct{}),
	}
	go d.run()

	slogger().Debug("software: device created",
		"alignment", cfg.alignment, "workers", d.pool.Workers())
	return d, nil
}

// run executes queued jobs in submission order until the queue is closed.
func (d *Driver) run() {
	defer close(d.idle)
	for j := range d.queue {
		err := j.run()
		d.submitted.Add(1)
		j.fence <- err
	}
}

// submit queues fn and waits for its fence.
func (d *Driver) submit(fn func() error) error {
	d.submitMu.RLock()
	if d.lost.Load() {
		d.submitMu.RUnlock()
		return driver.ErrDeviceLost
	}
	fence := make(chan error, 1)
	d.queue <- job{run: fn, fence: fence}
	d.submitMu.RUnlock()
	return <-fence
}

// Info describes the emulated adapter.
func (d *Driver) Info() driver.AdapterInfo {
	return driver.AdapterInfo{
		Name:   d.cfg.name,
		Driver: driver.NameSoftware,
		Type:   driver.AdapterSoftware,
	}
}

// RowPitchAlignment returns the configured host row pitch alignment.
func (d *Driver) RowPitchAlignment() int {
	return d.cfg.alignment
}

// CreateTexture allocates zeroed texture storage. The format is ignored;
// only the element size matters to the emulated device.
func (d *Driver) CreateTexture(desc driver.TextureDescriptor) (driver.Texture, error) {
	if d.lost.Load() {
		return nil, driver.ErrDeviceLost
	}
	if desc.Width <= 0 || desc.Height <= 0 || desc.ElementSize <= 0 {
		return nil, fmt.Errorf("%w: %dx%d of %d-byte elements",
			driver.ErrInvalidDescriptor, desc.Width, desc.Height, desc.ElementSize)
	}
	pitch, err := layout.RowPitch(desc.Width, desc.ElementSize, nativePitchAlignment)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", driver.ErrInvalidDescriptor, err)
	}
	size, err := layout.Size(desc.Height, pitch)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", driver.ErrInvalidDescriptor, err)
	}

	tex := &texture{
		owner: d,
		label: desc.Label,
		w:     desc.Width,
		h:     desc.Height,
		elem:  desc.ElementSize,
		pitch: pitch,
		mem:   make([]byte, size),
	}

	d.mu.Lock()
	d.textures++
	d.resident += size
	d.mu.Unlock()

	slogger().Debug("software: texture created",
		"label", desc.Label, "width", desc.Width, "height", desc.Height, "pitch", pitch)
	return tex, nil
}

// DestroyTexture releases texture storage.
func (d *Driver) DestroyTexture(t driver.Texture) {
	tex, ok := t.(*texture)
	if !ok || tex.owner != d {
		slogger().Warn("software: destroy of foreign texture ignored", "type", fmt.Sprintf("%T", t))
		return
	}
	if !tex.destroyed.CompareAndSwap(false, true) {
		slogger().Warn("software: texture destroyed twice", "label", tex.label)
		return
	}
	d.mu.Lock()
	d.textures--
	d.resident -= len(tex.mem)
	d.mu.Unlock()
}

// WriteTexture copies host rows into the texture on the queue.
func (d *Driver) WriteTexture(dst driver.Texture, src []byte, l driver.Layout, region driver.Region) error {
	tex, err := d.lookup(dst)
	if err != nil {
		return err
	}
	if err := driver.CheckCopy(tex, src, l, region); err != nil {
		return err
	}
	if region.Width == 0 || region.Height == 0 {
		return nil
	}
	return d.submit(func() error {
		if tex.destroyed.Load() {
			return driver.ErrTextureDestroyed
		}
		d.copyRows(region.Height, region.Width*tex.elem, func(r int) (to, from []byte) {
			return tex.row(region.X, region.Y+r), src[l.Offset+r*l.RowPitch:]
		})
		return nil
	})
}

// ReadTexture copies texture rows into host memory on the queue.
func (d *Driver) ReadTexture(src driver.Texture, dst []byte, l driver.Layout, region driver.Region) error {
	tex, err := d.lookup(src)
	if err != nil {
		return err
	}
	if err := driver.CheckCopy(tex, dst, l, region); err != nil {
		return err
	}
	if region.Width == 0 || region.Height == 0 {
		return nil
	}
	return d.submit(func() error {
		if tex.destroyed.Load() {
			return driver.ErrTextureDestroyed
		}
		d.copyRows(region.Height, region.Width*tex.elem, func(r int) (to, from []byte) {
			return dst[l.Offset+r*l.RowPitch:], tex.row(region.X, region.Y+r)
		})
		return nil
	})
}

// copyRows copies rowBytes from each row pair returned by rows, banding
// large copies across the worker pool.
func (d *Driver) copyRows(n, rowBytes int, rows func(r int) (to, from []byte)) {
	band := func(lo, hi int) {
		for r := lo; r < hi; r++ {
			to, from := rows(r)
			copy(to[:rowBytes], from[:rowBytes])
		}
	}
	if n*rowBytes < parallelBytes {
		band(0, n)
		return
	}
	d.pool.Bands(n, minBandRows, band)
}

// Destroy stops the queue after pending jobs have run. Later calls fail
// with driver.ErrDeviceLost. Destroy is safe to call multiple times.
func (d *Driver) Destroy() {
	d.submitMu.Lock()
	if !d.lost.CompareAndSwap(false, true) {
		d.submitMu.Unlock()
		return
	}
	close(d.queue)
	d.submitMu.Unlock()

	<-d.idle
	d.pool.Close()
	slogger().Debug("software: device destroyed", "jobs", d.submitted.Load())
}

// Stats returns current resource usage.
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Textures:      d.textures,
		ResidentBytes: d.resident,
		Submitted:     d.submitted.Load(),
	}
}

func (d *Driver) lookup(t driver.Texture) (*texture, error) {
	if d.lost.Load() {
		return nil, driver.ErrDeviceLost
	}
	tex, ok := t.(*texture)
	if !ok || tex.owner != d {
		return nil, driver.ErrForeignTexture
	}
	if tex.destroyed.Load() {
		return nil, driver.ErrTextureDestroyed
	}
	return tex, nil
}

// texture is device-resident storage with rows nativePitchAlignment apart.
type texture struct {
	owner     *Driver
	label     string
	w, h      int
	elem      int
	pitch     int
	mem       []byte
	destroyed atomic.Bool
}

func (t *texture) Width() int       { return t.w }
func (t *texture) Height() int      { return t.h }
func (t *texture) ElementSize() int { return t.elem }

// row returns storage starting at element x of row y.
func (t *texture) row(x, y int) []byte {
	return t.mem[y*t.pitch+x*t.elem:]
}
