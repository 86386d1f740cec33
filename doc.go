// Package staging moves 2D element data between host memory and
// device-resident textures.
//
// # Overview
//
// A Device wraps a driver (a GPU through gogpu/wgpu, or the pure-Go software
// device). It creates two kinds of resources:
//
//   - TransferTexture: host memory sized for one texture, with rows padded
//     to the device's row pitch alignment. Upload textures are written on the
//     host and copied to the device; ReadBack textures receive device data.
//   - Texture2D: an opaque device texture.
//
// Rows of a transfer texture are reached through its View, which hides the
// row padding. Copy and CopyRect move data between the two and return only
// when the device has finished.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/staging"
//	    _ "github.com/gogpu/staging/driver/software"
//	)
//
//	dev, err := staging.OpenDefault()
//	if err != nil {
//	    return err
//	}
//	defer dev.Dispose()
//
//	up, _ := staging.NewUploadTexture[int32](dev, 256, 256, staging.Clear)
//	defer up.Dispose()
//	view, _ := up.View()
//	row, _ := view.Row(0)
//	row[0] = 42
//
//	tex, _ := staging.NewTexture2D[int32](dev, 256, 256)
//	defer tex.Dispose()
//	if err := staging.Copy(up, tex); err != nil {
//	    return err
//	}
//
// # Lifetimes
//
// A transfer texture owns its host memory and only observes its device.
// Disposing the device first is safe: the transfer texture keeps its memory
// and can still be disposed, while copies through it fail with
// ErrDeviceLost. Every Dispose method may be called more than once.
//
// # Errors
//
// Failures are reported with the sentinel errors in this package, wrapped
// with context: ErrInvalidDimension, ErrUseAfterDispose,
// ErrDimensionMismatch, ErrOutOfRange, ErrDeviceLost and ErrDeviceMismatch.
// All validation happens before any data moves.
//
// # Logging
//
// staging is silent by default. SetLogger enables log/slog output for the
// package and its drivers.
package staging
