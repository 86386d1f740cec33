// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package driver defines the boundary between the staging package and the
// accelerators that own device-resident textures.
//
// A Driver creates 2D textures and moves rows between host memory and those
// textures. Host memory is described by a Layout (byte offset of the first
// row and the byte stride between rows); the device side by a Region in
// elements. Drivers translate between the host row pitch and whatever native
// layout their textures use. Every call is synchronous: when WriteTexture or
// ReadTexture returns, the data is visible on the other side.
//
// Drivers register themselves with Register from an init function:
//
//	import _ "github.com/gogpu/staging/driver/software"
package driver

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/staging/internal/layout"
)

// Driver errors.
var (
	// ErrDeviceLost is returned by every operation after Destroy, or when the
	// underlying device stops accepting work.
	ErrDeviceLost = errors.New("driver: device lost")

	// ErrTextureDestroyed is returned when a destroyed texture is used.
	ErrTextureDestroyed = errors.New("driver: texture destroyed")

	// ErrOutOfBounds is returned when a region or host layout exceeds its bounds.
	ErrOutOfBounds = errors.New("driver: copy out of bounds")

	// ErrInvalidDescriptor is returned for textures with non-positive sizes.
	ErrInvalidDescriptor = errors.New("driver: invalid texture descriptor")

	// ErrUnsupportedFormat is returned when a driver cannot represent an element format.
	ErrUnsupportedFormat = errors.New("driver: unsupported texture format")

	// ErrForeignTexture is returned when a texture from another driver is passed in.
	ErrForeignTexture = errors.New("driver: texture belongs to another driver")

	// ErrNotAvailable is returned when a registered driver cannot be opened.
	ErrNotAvailable = errors.New("driver: not available")
)

// AdapterType tells hardware accelerators from emulated ones.
type AdapterType uint8

const (
	// AdapterHardware is a physical GPU.
	AdapterHardware AdapterType = iota

	// AdapterSoftware is a CPU emulation of a device.
	AdapterSoftware
)

// String returns "hardware" or "software".
func (t AdapterType) String() string {
	switch t {
	case AdapterHardware:
		return "hardware"
	case AdapterSoftware:
		return "software"
	default:
		return fmt.Sprintf("AdapterType(%d)", t)
	}
}

// AdapterInfo describes the accelerator behind a Driver.
type AdapterInfo struct {
	// Name is a human-readable adapter name.
	Name string

	// Driver is the registry name of the driver.
	Driver string

	// Type is hardware or software.
	Type AdapterType
}

// TextureDescriptor describes a device texture to create.
type TextureDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Width and Height are the texture extent in elements.
	Width  int
	Height int

	// ElementSize is the byte size of one element.
	ElementSize int

	// Format is the WebGPU format matching the element type, or
	// TextureFormatUndefined when the element has no WebGPU equivalent.
	Format gputypes.TextureFormat
}

// Texture is a device-resident 2D texture created by a Driver.
type Texture interface {
	// Width returns the texture width in elements.
	Width() int

	// Height returns the texture height in elements.
	Height() int

	// ElementSize returns the byte size of one element.
	ElementSize() int
}

// Layout places rows inside a host byte slice.
type Layout struct {
	// Offset is the byte offset of the first row.
	Offset int

	// RowPitch is the byte stride between consecutive rows.
	RowPitch int
}

// Region is a rectangle of texture elements.
type Region struct {
	X, Y          int
	Width, Height int
}

// Driver is the native side of a staging device.
type Driver interface {
	// Info describes the adapter.
	Info() AdapterInfo

	// RowPitchAlignment returns the byte alignment the device requires for
	// host row pitches. It is a power of two.
	RowPitchAlignment() int

	// CreateTexture creates a device texture.
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// DestroyTexture releases a texture. Destroying twice, or after the
	// driver itself was destroyed, is a no-op.
	DestroyTexture(tex Texture)

	// WriteTexture copies region.Height rows of region.Width elements from
	// src, laid out by layout, into the texture starting at region.X,
	// region.Y.
	WriteTexture(dst Texture, src []byte, layout Layout, region Region) error

	// ReadTexture copies the texture rectangle region into dst, laid out by
	// layout.
	ReadTexture(src Texture, dst []byte, layout Layout, region Region) error

	// Destroy releases the device. Later calls fail with ErrDeviceLost.
	Destroy()
}

// CheckCopy performs the bounds checks every driver applies before moving
// data: the region must lie inside the texture and the host layout must hold
// every row of the region inside buf.
func CheckCopy(tex Texture, buf []byte, l Layout, region Region) error {
	r := layout.Rect{X: region.X, Y: region.Y, Width: region.Width, Height: region.Height}
	if !layout.Contains(layout.Extent{Width: tex.Width(), Height: tex.Height()}, r) {
		return fmt.Errorf("%w: region %v exceeds texture %dx%d",
			ErrOutOfBounds, r, tex.Width(), tex.Height())
	}
	if r.Empty() {
		return nil
	}
	rowBytes := region.Width * tex.ElementSize()
	if l.Offset < 0 || l.RowPitch < rowBytes {
		return fmt.Errorf("%w: layout offset %d pitch %d for %d-byte rows",
			ErrOutOfBounds, l.Offset, l.RowPitch, rowBytes)
	}
	span := layout.Span(region.Height, l.RowPitch, rowBytes)
	if l.Offset > len(buf)-span {
		return fmt.Errorf("%w: %d bytes at offset %d exceed %d-byte buffer",
			ErrOutOfBounds, span, l.Offset, len(buf))
	}
	return nil
}
