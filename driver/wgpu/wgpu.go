//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/staging/driver"
	"github.com/gogpu/staging/internal/layout"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// CopyBytesPerRowAlignment is the row pitch alignment WebGPU requires for
// buffer/texture copies.
const CopyBytesPerRowAlignment = layout.DefaultRowPitchAlignment

// fenceTimeout bounds every wait for submitted work.
const fenceTimeout = 5 * time.Second

// textureUsage is the usage of every staged texture.
const textureUsage = gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding

// ErrNoAdapter is returned by Open when no adapter can be found.
var ErrNoAdapter = errors.New("wgpu: no GPU adapters found")

func init() {
	driver.Register(driver.NameWGPU, func() (driver.Driver, error) {
		return Open()
	})
}

// Driver stages textures on a HAL device. It is safe for concurrent use;
// queue work is serialized.
type Driver struct {
	mu       sync.Mutex
	instance hal.Instance // nil unless the driver opened the device
	device   hal.Device
	queue    hal.Queue
	owned    bool
	info     driver.AdapterInfo
	textures map[*texture]struct{}
	lost     atomic.Bool
}

// New wraps an existing device and queue. The driver does not destroy them.
func New(device hal.Device, queue hal.Queue) (*Driver, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("wgpu: nil device or queue")
	}
	return newDriver(nil, device, queue, false, driver.AdapterInfo{
		Name:   "external",
		Driver: driver.NameWGPU,
		Type:   driver.AdapterHardware,
	}), nil
}

// FromProvider takes the device and queue of a gpucontext.DeviceProvider.
// The provider must expose HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue.
func FromProvider(provider gpucontext.DeviceProvider) (*Driver, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}
	return New(device, queue)
}

// Open creates a Vulkan instance and opens the first discrete or integrated
// GPU, falling back to the first adapter. The driver owns the device.
func Open() (*Driver, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", driver.ErrNotAvailable)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}

	d := newDriver(instance, openDev.Device, openDev.Queue, true, driver.AdapterInfo{
		Name:   selected.Info.Name,
		Driver: driver.NameWGPU,
		Type:   driver.AdapterHardware,
	})
	slogger().Info("wgpu: device opened", "adapter", selected.Info.Name)
	return d, nil
}

func newDriver(instance hal.Instance, device hal.Device, queue hal.Queue, owned bool, info driver.AdapterInfo) *Driver {
	return &Driver{
		instance: instance,
		device:   device,
		queue:    queue,
		owned:    owned,
		info:     info,
		textures: make(map[*texture]struct{}),
	}
}

// Info describes the adapter.
func (d *Driver) Info() driver.AdapterInfo {
	return d.info
}

// RowPitchAlignment returns CopyBytesPerRowAlignment.
func (d *Driver) RowPitchAlignment() int {
	return CopyBytesPerRowAlignment
}

// CreateTexture creates a 2D texture usable as copy source and destination.
func (d *Driver) CreateTexture(desc driver.TextureDescriptor) (driver.Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 || desc.ElementSize <= 0 {
		return nil, fmt.Errorf("%w: %dx%d of %d-byte elements",
			driver.ErrInvalidDescriptor, desc.Width, desc.Height, desc.ElementSize)
	}
	if err := checkFormat(desc); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost.Load() {
		return nil, driver.ErrDeviceLost
	}

	//nolint:gosec // G115: dimensions are positive and bounded by device limits
	raw, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: uint32(desc.Width), Height: uint32(desc.Height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         textureUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", desc.Label, err)
	}
	tex := &texture{owner: d, raw: raw, w: desc.Width, h: desc.Height, elem: desc.ElementSize}
	d.textures[tex] = struct{}{}
	return tex, nil
}

// DestroyTexture releases a texture.
func (d *Driver) DestroyTexture(t driver.Texture) {
	tex, ok := t.(*texture)
	if !ok || tex.owner != d {
		slogger().Warn("wgpu: destroy of foreign texture ignored", "type", fmt.Sprintf("%T", t))
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, live := d.textures[tex]; !live {
		if !d.lost.Load() {
			slogger().Warn("wgpu: texture destroyed twice", "width", tex.w, "height", tex.h)
		}
		return
	}
	delete(d.textures, tex)
	tex.destroyed.Store(true)
	d.device.DestroyTexture(tex.raw)
}

// WriteTexture uploads host rows and waits until the queue has consumed them.
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

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost.Load() {
		return driver.ErrDeviceLost
	}

	//nolint:gosec // G115: region and layout were bounds-checked above
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  tex.raw,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: uint32(region.X), Y: uint32(region.Y), Z: 0},
			Aspect:   gputypes.TextureAspectAll,
		},
		src[l.Offset:],
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(l.RowPitch),
			RowsPerImage: uint32(region.Height),
		},
		&hal.Extent3D{Width: uint32(region.Width), Height: uint32(region.Height), DepthOrArrayLayers: 1},
	)

	// Queue writes land before the next submit completes.
	if err := d.submitAndWaitLocked("staging_upload", nil); err != nil {
		return fmt.Errorf("upload %v: %w", region, err)
	}
	return nil
}

// ReadTexture copies a texture rectangle into a MapRead staging buffer and
// reads it back into dst.
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

	rowBytes := region.Width * tex.elem
	alignedBytesPerRow := layout.AlignUp(rowBytes, CopyBytesPerRowAlignment)
	stagingSize := uint64(alignedBytesPerRow) * uint64(region.Height) //nolint:gosec // G115: positive

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost.Load() {
		return driver.ErrDeviceLost
	}

	stagingBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "staging_readback",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(stagingBuf)

	//nolint:gosec // G115: region was bounds-checked above
	record := func(encoder hal.CommandEncoder) {
		encoder.CopyTextureToBuffer(tex.raw, stagingBuf, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(alignedBytesPerRow),
				RowsPerImage: uint32(region.Height),
			},
			TextureBase: hal.ImageCopyTexture{
				Texture:  tex.raw,
				MipLevel: 0,
				Origin:   hal.Origin3D{X: uint32(region.X), Y: uint32(region.Y), Z: 0},
			},
			Size: hal.Extent3D{Width: uint32(region.Width), Height: uint32(region.Height), DepthOrArrayLayers: 1},
		}})
	}
	if err := d.submitAndWaitLocked("staging_readback", record); err != nil {
		return fmt.Errorf("readback %v: %w", region, err)
	}

	readback := make([]byte, stagingSize)
	if err := d.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return fmt.Errorf("read staging buffer: %w", err)
	}
	for r := range region.Height {
		from := readback[r*alignedBytesPerRow:][:rowBytes]
		copy(dst[l.Offset+r*l.RowPitch:][:rowBytes], from)
	}
	return nil
}

// submitAndWaitLocked encodes one command buffer, submits it with a fence
// and waits for the fence. record may be nil. Caller must hold d.mu.
func (d *Driver) submitAndWaitLocked(label string, record func(hal.CommandEncoder)) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	if record != nil {
		record(encoder)
	}
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := d.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("%w: wait for GPU: %w", driver.ErrDeviceLost, err)
	}
	if !fenceOK {
		return fmt.Errorf("%w: fence not signaled after %v", driver.ErrDeviceLost, fenceTimeout)
	}
	return nil
}

// Destroy releases live textures and, for owned devices, the device and
// instance. It is safe to call multiple times.
func (d *Driver) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.lost.CompareAndSwap(false, true) {
		return
	}
	for tex := range d.textures {
		tex.destroyed.Store(true)
		d.device.DestroyTexture(tex.raw)
	}
	clear(d.textures)

	if d.owned {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.queue = nil
	d.instance = nil
	slogger().Debug("wgpu: driver destroyed", "owned", d.owned)
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

type texture struct {
	owner     *Driver
	raw       hal.Texture
	w, h      int
	elem      int
	destroyed atomic.Bool
}

func (t *texture) Width() int       { return t.w }
func (t *texture) Height() int      { return t.h }
func (t *texture) ElementSize() int { return t.elem }
