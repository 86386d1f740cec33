package commands

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/staging"
)

// errMismatch reports a round trip that did not reproduce its input.
var errMismatch = errors.New("round trip mismatch")

type roundTripParams struct {
	width  int
	height int
	elem   string
	clear  bool
	seed   uint64
}

func newRoundTripCommand(a *app) *cobra.Command {
	var p roundTripParams

	cmd := &cobra.Command{
		Use:   "roundtrip",
		Short: "Upload seeded rows, read them back and compare",
		Long: `Fill an upload transfer texture with pseudo-random rows seeded by row
index, copy it to a device texture, copy that into a readback transfer
texture and compare every element.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dev, err := a.openDevice()
			if err != nil {
				return err
			}
			defer dev.Dispose()

			mode := staging.Default
			if p.clear {
				mode = staging.Clear
			}
			out := cmd.OutOrStdout()
			switch p.elem {
			case "uint8":
				return roundTrip(out, dev, p, mode, func(r *rand.Rand) uint8 { return uint8(r.Uint32()) })
			case "int32":
				return roundTrip(out, dev, p, mode, func(r *rand.Rand) int32 { return int32(r.Uint32()) })
			case "float32":
				return roundTrip(out, dev, p, mode, func(r *rand.Rand) float32 { return r.Float32() })
			case "rgba8":
				return roundTrip(out, dev, p, mode, func(r *rand.Rand) [4]uint8 {
					v := r.Uint32()
					return [4]uint8{uint8(v), uint8(v >> 8), uint8(v >> 16), uint8(v >> 24)}
				})
			}
			return fmt.Errorf("unknown element type %q (uint8, int32, float32, rgba8)", p.elem)
		},
	}

	f := cmd.Flags()
	f.IntVar(&p.width, "width", 256, "texture width in elements")
	f.IntVar(&p.height, "height", 256, "texture height in elements")
	f.StringVar(&p.elem, "type", "int32", "element type: uint8, int32, float32, rgba8")
	f.BoolVar(&p.clear, "clear", false, "allocate transfer textures zero-filled")
	f.Uint64Var(&p.seed, "seed", 0x5eed, "seed mixed with the row index")
	return cmd
}

func roundTrip[T staging.Element](out io.Writer, dev *staging.Device, p roundTripParams, mode staging.AllocationMode, gen func(*rand.Rand) T) error {
	up, err := staging.NewUploadTexture[T](dev, p.width, p.height, mode)
	if err != nil {
		return err
	}
	defer up.Dispose()
	rb, err := staging.NewReadBackTexture[T](dev, p.width, p.height, mode)
	if err != nil {
		return err
	}
	defer rb.Dispose()
	tex, err := staging.NewTexture2D[T](dev, p.width, p.height)
	if err != nil {
		return err
	}
	defer tex.Dispose()

	upView, err := up.View()
	if err != nil {
		return err
	}
	upRows, err := upView.Rows()
	if err != nil {
		return err
	}
	for y, row := range upRows {
		r := rand.New(rand.NewPCG(uint64(y), p.seed)) //nolint:gosec // reproducible test pattern
		for x := range row {
			row[x] = gen(r)
		}
	}

	start := time.Now()
	if err := staging.Copy(up, tex); err != nil {
		return err
	}
	uploaded := time.Since(start)
	if err := staging.Copy(rb, tex); err != nil {
		return err
	}
	total := time.Since(start)

	rbView, err := rb.View()
	if err != nil {
		return err
	}
	rbRows, err := rbView.Rows()
	if err != nil {
		return err
	}
	checked := 0
	for y, got := range rbRows {
		checked++
		want, err := upView.Row(y)
		if err != nil {
			return err
		}
		for x := range got {
			if got[x] != want[x] {
				return fmt.Errorf("%w at (%d,%d): got %v, want %v", errMismatch, x, y, got[x], want[x])
			}
		}
	}

	if checked != p.height {
		return fmt.Errorf("%w: compared %d of %d rows", errMismatch, checked, p.height)
	}

	return report(out, dev, up, p, uploaded, total-uploaded)
}

// report prints the round trip summary. up must still be live.
func report[T staging.Element](out io.Writer, dev *staging.Device, up *staging.TransferTexture[T], p roundTripParams, uploaded, readback time.Duration) error {
	pitch, err := up.RowPitch()
	if err != nil {
		return err
	}
	mb := float64(p.width*p.height) * float64(staging.ElementSize[T]()) / (1 << 20)
	fmt.Fprintf(out, "device:   %s\n", dev)
	fmt.Fprintf(out, "texture:  %dx%d %s, row pitch %d bytes\n", p.width, p.height, p.elem, pitch)
	fmt.Fprintf(out, "upload:   %v (%.1f MB/s)\n", uploaded, mb/uploaded.Seconds())
	fmt.Fprintf(out, "readback: %v (%.1f MB/s)\n", readback, mb/readback.Seconds())
	fmt.Fprintf(out, "memory:   %v\n", dev.MemoryStats())
	fmt.Fprintln(out, "result:   ok")
	return nil
}
