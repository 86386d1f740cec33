package staging

import (
	"errors"
	"fmt"
	"sync/atomic"
	"weak"

	"github.com/gogpu/staging/internal/hostmem"
	"github.com/gogpu/staging/internal/layout"
)

// TransferTexture is host memory holding one 2D texture's worth of T, laid
// out with the row pitch its device requires for copies.
//
// An Upload texture is filled through its View and copied to a Texture2D;
// a ReadBack texture receives a Texture2D's contents for reading through
// its View. Both are plain host memory, so either direction of access is
// allowed.
//
// TransferTexture performs no locking. Callers must not use a texture
// from several goroutines while one of them may dispose it or copy into it.
type TransferTexture[T Element] struct {
	dev   weak.Pointer[Device]
	devID uint64
	mem   *hostmem.Allocator

	kind   Kind
	mode   AllocationMode
	width  int
	height int
	pitch  int

	block    *hostmem.Block
	disposed atomic.Bool
}

// NewTransferTexture allocates a transfer texture of width×height elements
// on dev. No device resource is created.
//
// Width and height must be positive, otherwise ErrInvalidDimension is
// returned before anything is allocated. With Clear every element is zero;
// with Default the contents are unspecified.
func NewTransferTexture[T Element](dev *Device, kind Kind, width, height int, mode AllocationMode) (*TransferTexture[T], error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimension, width, height)
	}
	if kind > ReadBack {
		return nil, fmt.Errorf("staging: invalid transfer kind %v", kind)
	}
	if err := dev.checkLive(); err != nil {
		return nil, err
	}

	elem := sizeOf[T]()
	pitch, err := layout.RowPitch(width, elem, dev.RowPitchAlignment())
	if err != nil {
		return nil, fmt.Errorf("%w: %dx%d: %w", ErrInvalidDimension, width, height, err)
	}
	size, err := layout.Size(height, pitch)
	if err != nil {
		return nil, fmt.Errorf("%w: %dx%d: %w", ErrInvalidDimension, width, height, err)
	}

	block, err := dev.mem.Alloc(size, mode == Clear)
	if err != nil {
		if errors.Is(err, hostmem.ErrInvalidSize) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDimension, err)
		}
		return nil, fmt.Errorf("staging: allocate %dx%d %v texture: %w", width, height, kind, err)
	}

	Logger().Debug("staging: transfer texture allocated",
		"device", dev.id, "kind", kind.String(), "mode", mode.String(),
		"width", width, "height", height, "pitch", pitch, "bytes", size)

	return &TransferTexture[T]{
		dev:    weak.Make(dev),
		devID:  dev.id,
		mem:    dev.mem,
		kind:   kind,
		mode:   mode,
		width:  width,
		height: height,
		pitch:  pitch,
		block:  block,
	}, nil
}

// NewUploadTexture allocates an Upload transfer texture.
func NewUploadTexture[T Element](dev *Device, width, height int, mode AllocationMode) (*TransferTexture[T], error) {
	return NewTransferTexture[T](dev, Upload, width, height, mode)
}

// NewReadBackTexture allocates a ReadBack transfer texture.
func NewReadBackTexture[T Element](dev *Device, width, height int, mode AllocationMode) (*TransferTexture[T], error) {
	return NewTransferTexture[T](dev, ReadBack, width, height, mode)
}

// Kind returns the copy direction of the texture.
func (t *TransferTexture[T]) Kind() Kind { return t.kind }

// Mode returns the allocation mode the texture was created with.
func (t *TransferTexture[T]) Mode() AllocationMode { return t.mode }

// Width returns the width in elements.
func (t *TransferTexture[T]) Width() (int, error) {
	if err := t.checkLive(); err != nil {
		return 0, err
	}
	return t.width, nil
}

// Height returns the height in elements.
func (t *TransferTexture[T]) Height() (int, error) {
	if err := t.checkLive(); err != nil {
		return 0, err
	}
	return t.height, nil
}

// RowPitch returns the byte stride between rows. It is a multiple of the
// device's row pitch alignment and at least width × element size.
func (t *TransferTexture[T]) RowPitch() (int, error) {
	if err := t.checkLive(); err != nil {
		return 0, err
	}
	return t.pitch, nil
}

// View returns the mapped row view of the texture.
func (t *TransferTexture[T]) View() (*View[T], error) {
	if err := t.checkLive(); err != nil {
		return nil, err
	}
	return &View[T]{t: t}, nil
}

// Device returns the owning device, or nil once it has been garbage
// collected. A disposed device is still returned.
func (t *TransferTexture[T]) Device() *Device {
	return t.dev.Value()
}

// IsDisposed reports whether Dispose has been called.
func (t *TransferTexture[T]) IsDisposed() bool { return t.disposed.Load() }

// Dispose releases the host memory. It succeeds whether or not the device
// was disposed first. Calling Dispose again is a no-op.
func (t *TransferTexture[T]) Dispose() {
	if !t.disposed.CompareAndSwap(false, true) {
		return
	}
	t.mem.Free(t.block)
	t.block = nil
	Logger().Debug("staging: transfer texture disposed",
		"device", t.devID, "kind", t.kind.String(), "width", t.width, "height", t.height)
}

func (t *TransferTexture[T]) checkLive() error {
	if t.disposed.Load() {
		return fmt.Errorf("%v transfer texture %dx%d: %w", t.kind, t.width, t.height, ErrUseAfterDispose)
	}
	return nil
}

// device resolves the back-reference for a copy.
func (t *TransferTexture[T]) device() (*Device, error) {
	d := t.dev.Value()
	if d == nil {
		return nil, fmt.Errorf("device %d: %w", t.devID, ErrDeviceLost)
	}
	if err := d.checkLive(); err != nil {
		return nil, err
	}
	return d, nil
}

// bytes returns the host memory. The texture must be live.
func (t *TransferTexture[T]) bytes() []byte {
	return t.block.Bytes()
}

// row returns the width elements of row y. The texture must be live and y
// in range.
func (t *TransferTexture[T]) row(y int) []T {
	b := t.block.Bytes()[y*t.pitch:]
	return asElements[T](b, t.width)
}

// extent returns the texture size.
func (t *TransferTexture[T]) extent() layout.Extent {
	return layout.Extent{Width: t.width, Height: t.height}
}
