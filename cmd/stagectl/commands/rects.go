package commands

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gogpu/staging"
)

// errScenarioFailed reports that at least one case did not behave as expected.
var errScenarioFailed = errors.New("scenario failed")

func newRectsCommand(a *app) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "rects",
		Short: "Replay sub-rectangle copy cases from a TOML scenario",
		Long: `Replay CopyRect cases. The source is a width×height int32 grid whose
elements encode their position. Upload cases copy a rectangle of an
upload transfer texture into a device texture; readback cases copy a
rectangle of a device texture into a readback transfer texture. Every
destination element is verified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := LoadScenario(path)
			if err != nil {
				return err
			}
			dev, err := a.openDevice()
			if err != nil {
				return err
			}
			defer dev.Dispose()
			return runScenario(cmd.OutOrStdout(), dev, s)
		},
	}
	cmd.Flags().StringVar(&path, "scenario", "", "scenario file (TOML)")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func runScenario(out io.Writer, dev *staging.Device, s *Scenario) error {
	grid := make([]int32, s.Width*s.Height)
	for i := range grid {
		grid[i] = int32(i)
	}

	up, err := staging.NewUploadTexture[int32](dev, s.Width, s.Height, staging.Default)
	if err != nil {
		return err
	}
	defer up.Dispose()
	upView, err := up.View()
	if err != nil {
		return err
	}
	if err := upView.CopyFrom(grid); err != nil {
		return err
	}
	src, err := staging.NewTexture2D[int32](dev, s.Width, s.Height)
	if err != nil {
		return err
	}
	defer src.Dispose()
	if err := staging.Copy(up, src); err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CASE\tDIRECTION\tRECT\tRESULT")
	failed := 0
	for _, r := range s.Rects {
		result := "ok"
		if err := runRect(dev, up, src, grid, s.Width, r); err != nil {
			result = "FAIL: " + err.Error()
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\t(%d,%d)+(%dx%d)\t%s\n", r.Name, r.Direction, r.X, r.Y, r.W, r.H, result)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d cases", errScenarioFailed, failed, len(s.Rects))
	}
	return nil
}

// runRect runs one case and checks its outcome against r.Expect.
func runRect(dev *staging.Device, up *staging.TransferTexture[int32], src *staging.Texture2D[int32], grid []int32, stride int, r RectCase) error {
	var (
		got     [][]int32
		copyErr error
	)
	switch r.Direction {
	case "upload":
		dst, err := staging.NewTexture2D[int32](dev, r.DstWidth, r.DstHeight)
		if err != nil {
			return err
		}
		defer dst.Dispose()
		if copyErr = staging.CopyRect(up, dst, r.X, r.Y, r.W, r.H); copyErr == nil {
			flat, err := dst.ToArray()
			if err != nil {
				return err
			}
			for y := range r.DstHeight {
				got = append(got, flat[y*r.DstWidth:(y+1)*r.DstWidth])
			}
		}
	case "readback":
		rb, err := staging.NewReadBackTexture[int32](dev, r.DstWidth, r.DstHeight, staging.Clear)
		if err != nil {
			return err
		}
		defer rb.Dispose()
		if copyErr = staging.CopyRect(rb, src, r.X, r.Y, r.W, r.H); copyErr == nil {
			view, err := rb.View()
			if err != nil {
				return err
			}
			rows, err := view.Rows()
			if err != nil {
				return err
			}
			for _, row := range rows {
				got = append(got, row)
			}
		}
	}

	if r.Expect == "out_of_range" {
		if !errors.Is(copyErr, staging.ErrOutOfRange) {
			return fmt.Errorf("got %v, want out of range", copyErr)
		}
		return nil
	}
	if copyErr != nil {
		return copyErr
	}
	if len(got) != r.DstHeight {
		return fmt.Errorf("read %d rows, want %d", len(got), r.DstHeight)
	}
	for y := range r.H {
		for x := range r.W {
			if want := grid[(r.Y+y)*stride+r.X+x]; got[y][x] != want {
				return fmt.Errorf("(%d,%d) = %d, want %d", x, y, got[y][x], want)
			}
		}
	}
	return nil
}
