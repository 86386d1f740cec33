package staging

import (
	"fmt"
	"iter"
)

// View exposes the rows of a transfer texture as padding-free slices.
//
// Every method fails with ErrUseAfterDispose once the texture is disposed.
// Slices returned by Row alias the texture's memory and must not be used
// after Dispose.
type View[T Element] struct {
	t *TransferTexture[T]
}

// Row returns the width elements of row y. The slice has len and cap equal
// to the texture width, so appending to it never reaches row padding or
// the next row.
func (v *View[T]) Row(y int) ([]T, error) {
	if err := v.t.checkLive(); err != nil {
		return nil, err
	}
	if y < 0 || y >= v.t.height {
		return nil, fmt.Errorf("%w: row %d of %d", ErrOutOfRange, y, v.t.height)
	}
	return v.t.row(y), nil
}

// Rows returns an iterator over the rows in order. It fails with
// ErrUseAfterDispose if the texture is already disposed; iteration stops
// early if the texture is disposed while iterating.
func (v *View[T]) Rows() (iter.Seq2[int, []T], error) {
	if err := v.t.checkLive(); err != nil {
		return nil, err
	}
	return func(yield func(int, []T) bool) {
		for y := range v.t.height {
			if v.t.disposed.Load() {
				return
			}
			if !yield(y, v.t.row(y)) {
				return
			}
		}
	}, nil
}

// Fill sets every element to val.
func (v *View[T]) Fill(val T) error {
	if err := v.t.checkLive(); err != nil {
		return err
	}
	for y := range v.t.height {
		row := v.t.row(y)
		for i := range row {
			row[i] = val
		}
	}
	return nil
}

// CopyFrom writes src, a densely packed width×height array in row-major
// order, into the texture rows.
func (v *View[T]) CopyFrom(src []T) error {
	if err := v.checkDense(len(src)); err != nil {
		return err
	}
	w := v.t.width
	for y := range v.t.height {
		copy(v.t.row(y), src[y*w:(y+1)*w])
	}
	return nil
}

// CopyTo reads the texture rows into dst, a densely packed width×height
// array in row-major order.
func (v *View[T]) CopyTo(dst []T) error {
	if err := v.checkDense(len(dst)); err != nil {
		return err
	}
	w := v.t.width
	for y := range v.t.height {
		copy(dst[y*w:(y+1)*w], v.t.row(y))
	}
	return nil
}

func (v *View[T]) checkDense(n int) error {
	if err := v.t.checkLive(); err != nil {
		return err
	}
	if want := v.t.width * v.t.height; n != want {
		return fmt.Errorf("%w: slice of %d elements for %dx%d texture",
			ErrDimensionMismatch, n, v.t.width, v.t.height)
	}
	return nil
}
