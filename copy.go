package staging

import (
	"errors"
	"fmt"

	"github.com/gogpu/staging/driver"
	"github.com/gogpu/staging/internal/layout"
)

// Copy moves the full extent between a transfer texture and a device
// texture. An Upload texture is copied into tex; tex is copied into a
// ReadBack texture. Both must have the same size.
//
// Copy returns after the driver has finished: the device texture holds the
// uploaded rows, or the readback rows are visible through t's View.
func Copy[T Element](t *TransferTexture[T], tex *Texture2D[T]) error {
	if err := checkEndpoints(t, tex); err != nil {
		return err
	}
	if t.width != tex.width || t.height != tex.height {
		return fmt.Errorf("%w: %v texture %dx%d, device texture %dx%d",
			ErrDimensionMismatch, t.kind, t.width, t.height, tex.width, tex.height)
	}
	return transfer(t, tex, layout.Rect{Width: t.width, Height: t.height})
}

// CopyRect copies the rectangle [x, x+width) × [y, y+height) of the source
// to [0, width) × [0, height) of the destination. The source is t for
// Upload textures and tex for ReadBack textures.
//
// A rectangle that does not fit the source, or whose size exceeds the
// destination, fails with ErrOutOfRange before any data moves. A
// zero-area rectangle copies nothing.
func CopyRect[T Element](t *TransferTexture[T], tex *Texture2D[T], x, y, width, height int) error {
	if err := checkEndpoints(t, tex); err != nil {
		return err
	}
	r := layout.Rect{X: x, Y: y, Width: width, Height: height}
	src, dst := t.extent(), layout.Extent{Width: tex.width, Height: tex.height}
	if t.kind == ReadBack {
		src, dst = dst, src
	}
	if err := layout.CheckCopy(src, dst, r); err != nil {
		if errors.Is(err, layout.ErrRect) {
			return fmt.Errorf("%w: %w", ErrOutOfRange, err)
		}
		return err
	}
	if r.Empty() {
		return nil
	}
	return transfer(t, tex, r)
}

// checkEndpoints validates disposal and device state shared by both copies.
func checkEndpoints[T Element](t *TransferTexture[T], tex *Texture2D[T]) error {
	if err := t.checkLive(); err != nil {
		return err
	}
	if err := tex.checkLive(); err != nil {
		return err
	}
	if t.devID != tex.dev.id {
		return fmt.Errorf("%w: transfer texture on device %d, device texture on device %d",
			ErrDeviceMismatch, t.devID, tex.dev.id)
	}
	_, err := t.device()
	return err
}

// transfer issues the driver copy for r, a rectangle of the source.
func transfer[T Element](t *TransferTexture[T], tex *Texture2D[T], r layout.Rect) error {
	drv := tex.dev.drv
	mem := t.bytes()

	var err error
	switch t.kind {
	case Upload:
		err = drv.WriteTexture(tex.raw, mem,
			driver.Layout{Offset: r.Y*t.pitch + r.X*sizeOf[T](), RowPitch: t.pitch},
			driver.Region{Width: r.Width, Height: r.Height})
	case ReadBack:
		err = drv.ReadTexture(tex.raw, mem,
			driver.Layout{Offset: 0, RowPitch: t.pitch},
			driver.Region{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height})
	}
	if err != nil {
		return wrapDriverError(fmt.Sprintf("%v copy %v", t.kind, r), err)
	}

	Logger().Debug("staging: copy",
		"device", t.devID, "kind", t.kind.String(), "rect", r.String())
	return nil
}
