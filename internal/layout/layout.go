// Package layout holds the row-pitch and rectangle arithmetic shared by the
// staging package and its drivers.
//
// All sizes are in bytes unless a name says otherwise. Functions here never
// allocate and never panic on bad input; they report problems through the
// returned bool or error so callers can map them onto their own taxonomy.
package layout

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// DefaultRowPitchAlignment is the row pitch alignment WebGPU and D3D12
// require for buffer/texture copies (COPY_BYTES_PER_ROW_ALIGNMENT).
const DefaultRowPitchAlignment = 256

var (
	// ErrBadAlignment is returned for alignments that are not a positive power of two.
	ErrBadAlignment = errors.New("layout: alignment must be a positive power of two")

	// ErrOverflow is returned when a size does not fit in an int.
	ErrOverflow = errors.New("layout: size overflows int")

	// ErrRect is returned by CheckCopy when a rectangle exceeds its bounds.
	ErrRect = errors.New("layout: rectangle out of bounds")
)

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// AlignUp rounds n up to the next multiple of align.
// align must be a power of two; n must be non-negative.
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// RowPitch returns the aligned byte stride of a row holding width elements
// of elemSize bytes each.
func RowPitch(width, elemSize, align int) (int, error) {
	if !IsPowerOfTwo(align) {
		return 0, fmt.Errorf("%w: %d", ErrBadAlignment, align)
	}
	row, ok := mul(width, elemSize)
	if !ok || row > math.MaxInt-align {
		return 0, fmt.Errorf("%w: %d x %d", ErrOverflow, width, elemSize)
	}
	return AlignUp(row, align), nil
}

// Size returns rows × pitch, failing on overflow.
func Size(rows, pitch int) (int, error) {
	n, ok := mul(rows, pitch)
	if !ok {
		return 0, fmt.Errorf("%w: %d rows x %d", ErrOverflow, rows, pitch)
	}
	return n, nil
}

// Span returns the number of bytes a strided block of rows touches:
// (rows-1)*pitch + rowBytes. Zero rows touch nothing.
func Span(rows, pitch, rowBytes int) int {
	if rows <= 0 {
		return 0
	}
	return (rows-1)*pitch + rowBytes
}

func mul(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt {
		return 0, false
	}
	return int(lo), true
}

// Extent is the width and height of a 2D grid of elements.
type Extent struct {
	Width  int
	Height int
}

// Rect is a rectangle of elements with its origin at X, Y.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Empty reports whether r covers no elements.
func (r Rect) Empty() bool {
	return r.Width == 0 || r.Height == 0
}

// String returns "(x,y)+(wxh)".
func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)+(%dx%d)", r.X, r.Y, r.Width, r.Height)
}

// CheckCopy validates copying r out of src into the origin of dst.
// Every term is checked without overflow.
func CheckCopy(src, dst Extent, r Rect) error {
	switch {
	case r.X < 0 || r.Y < 0 || r.Width < 0 || r.Height < 0:
		return fmt.Errorf("%w: negative component in %v", ErrRect, r)
	case r.X > src.Width-r.Width || r.Y > src.Height-r.Height:
		return fmt.Errorf("%w: %v exceeds source %dx%d", ErrRect, r, src.Width, src.Height)
	case r.Width > dst.Width || r.Height > dst.Height:
		return fmt.Errorf("%w: %dx%d exceeds destination %dx%d",
			ErrRect, r.Width, r.Height, dst.Width, dst.Height)
	}
	return nil
}

// Contains reports whether r lies inside an extent.
func Contains(e Extent, r Rect) bool {
	return r.X >= 0 && r.Y >= 0 && r.Width >= 0 && r.Height >= 0 &&
		r.X <= e.Width-r.Width && r.Y <= e.Height-r.Height
}
