package staging

import (
	"errors"
	"fmt"

	"github.com/gogpu/staging/driver"
)

// Errors returned by staging operations. They are wrapped with context, so
// compare with errors.Is.
var (
	// ErrInvalidDimension is returned when a width or height is not positive,
	// or when the resulting allocation size cannot be represented.
	ErrInvalidDimension = errors.New("staging: invalid dimension")

	// ErrUseAfterDispose is returned when a disposed texture or a view of
	// one is used.
	ErrUseAfterDispose = errors.New("staging: use after dispose")

	// ErrDimensionMismatch is returned when a full-extent copy joins
	// textures of different sizes, or a host slice does not match a view.
	ErrDimensionMismatch = errors.New("staging: dimension mismatch")

	// ErrOutOfRange is returned when a row index or copy rectangle falls
	// outside its texture.
	ErrOutOfRange = errors.New("staging: out of range")

	// ErrDeviceLost is returned when the owning device was disposed or its
	// driver stopped accepting work. It wraps driver.ErrDeviceLost.
	ErrDeviceLost = fmt.Errorf("staging: %w", driver.ErrDeviceLost)

	// ErrDeviceMismatch is returned when a copy joins resources of two
	// different devices.
	ErrDeviceMismatch = errors.New("staging: resources belong to different devices")
)

// wrapDriverError maps driver failures onto the staging taxonomy while
// keeping the original error in the chain.
func wrapDriverError(op string, err error) error {
	switch {
	case errors.Is(err, ErrDeviceLost):
		return err
	case err == driver.ErrDeviceLost: //nolint:errorlint // exact sentinel carries no extra context
		return fmt.Errorf("%s: %w", op, ErrDeviceLost)
	case errors.Is(err, driver.ErrDeviceLost):
		return fmt.Errorf("%s: %w: %w", op, ErrDeviceLost, err)
	}
	return fmt.Errorf("staging: %s: %w", op, err)
}
