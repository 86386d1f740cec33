package staging

import (
	"iter"
	"math/rand/v2"
	"testing"

	"github.com/gogpu/staging/driver/software"
)

// newTestDevice opens a software device that is disposed with the test.
func newTestDevice(t testing.TB, opts ...Option) *Device {
	t.Helper()
	drv, err := software.New()
	if err != nil {
		t.Fatalf("software.New() error = %v", err)
	}
	dev := NewDevice(drv, opts...)
	t.Cleanup(dev.Dispose)
	return dev
}

// seededRow returns width pseudo-random values seeded by the row index.
func seededRow(y, width int) []int32 {
	r := rand.New(rand.NewPCG(uint64(y), 0x5eed)) //nolint:gosec // deterministic test data
	row := make([]int32, width)
	for i := range row {
		row[i] = int32(r.Uint32())
	}
	return row
}

// gridOf returns a width×height grid where each element encodes its position.
func gridOf(width, height int) []int32 {
	grid := make([]int32, width*height)
	for i := range grid {
		grid[i] = int32(i)
	}
	return grid
}

// rowsOf returns the row iterator of a live transfer texture.
func rowsOf[T Element](t testing.TB, tex *TransferTexture[T]) iter.Seq2[int, []T] {
	t.Helper()
	view, err := tex.View()
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	rows, err := view.Rows()
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	return rows
}
