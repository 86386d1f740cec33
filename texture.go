package staging

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/staging/driver"
)

// Texture2D is a device-resident 2D texture of T. Its memory layout belongs
// to the driver; data reaches it only through copies.
type Texture2D[T Element] struct {
	dev      *Device
	raw      driver.Texture
	width    int
	height   int
	disposed atomic.Bool
}

// NewTexture2D creates a width×height device texture on dev.
func NewTexture2D[T Element](dev *Device, width, height int) (*Texture2D[T], error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimension, width, height)
	}
	if err := dev.checkLive(); err != nil {
		return nil, err
	}

	label := "staging_texture"
	if dev.label != "" {
		label = dev.label + "_texture"
	}
	raw, err := dev.drv.CreateTexture(driver.TextureDescriptor{
		Label:       label,
		Width:       width,
		Height:      height,
		ElementSize: sizeOf[T](),
		Format:      FormatOf[T](),
	})
	if err != nil {
		return nil, wrapDriverError(fmt.Sprintf("create %dx%d texture", width, height), err)
	}

	Logger().Debug("staging: device texture created",
		"device", dev.id, "width", width, "height", height, "elem", sizeOf[T]())
	return &Texture2D[T]{dev: dev, raw: raw, width: width, height: height}, nil
}

// Width returns the width in elements.
func (t *Texture2D[T]) Width() int { return t.width }

// Height returns the height in elements.
func (t *Texture2D[T]) Height() int { return t.height }

// Device returns the device that created the texture.
func (t *Texture2D[T]) Device() *Device { return t.dev }

// IsDisposed reports whether Dispose has been called.
func (t *Texture2D[T]) IsDisposed() bool { return t.disposed.Load() }

// Dispose releases the device texture. Calling Dispose again, or after the
// device was disposed, is a no-op.
func (t *Texture2D[T]) Dispose() {
	if !t.disposed.CompareAndSwap(false, true) {
		return
	}
	t.dev.drv.DestroyTexture(t.raw)
}

// CopyFrom uploads data, a densely packed width×height array in row-major
// order, through a temporary upload texture.
func (t *Texture2D[T]) CopyFrom(data []T) error {
	if err := t.checkLive(); err != nil {
		return err
	}
	up, err := NewUploadTexture[T](t.dev, t.width, t.height, Default)
	if err != nil {
		return err
	}
	defer up.Dispose()

	view, err := up.View()
	if err != nil {
		return err
	}
	if err := view.CopyFrom(data); err != nil {
		return err
	}
	return Copy(up, t)
}

// CopyTo reads the texture into dst, a densely packed width×height array in
// row-major order, through a temporary readback texture.
func (t *Texture2D[T]) CopyTo(dst []T) error {
	if err := t.checkLive(); err != nil {
		return err
	}
	if len(dst) != t.width*t.height {
		return fmt.Errorf("%w: slice of %d elements for %dx%d texture",
			ErrDimensionMismatch, len(dst), t.width, t.height)
	}
	rb, err := NewReadBackTexture[T](t.dev, t.width, t.height, Default)
	if err != nil {
		return err
	}
	defer rb.Dispose()

	if err := Copy(rb, t); err != nil {
		return err
	}
	view, err := rb.View()
	if err != nil {
		return err
	}
	return view.CopyTo(dst)
}

// ToArray reads the texture into a new densely packed slice.
func (t *Texture2D[T]) ToArray() ([]T, error) {
	out := make([]T, t.width*t.height)
	if err := t.CopyTo(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Texture2D[T]) checkLive() error {
	if t.disposed.Load() {
		return fmt.Errorf("device texture %dx%d: %w", t.width, t.height, ErrUseAfterDispose)
	}
	return nil
}
