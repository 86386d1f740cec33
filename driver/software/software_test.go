package software

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/gogpu/staging/driver"
	"github.com/gogpu/staging/internal/layout"
)

func newTestDriver(t *testing.T, opts ...Option) *Driver {
	t.Helper()
	d, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(d.Destroy)
	return d
}

func createTexture(t *testing.T, d *Driver, w, h, elem int) driver.Texture {
	t.Helper()
	tex, err := d.CreateTexture(driver.TextureDescriptor{Label: t.Name(), Width: w, Height: h, ElementSize: elem})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	return tex
}

// pattern returns rows*pitch bytes where row r holds bytes r+i in its first
// rowBytes and 0xEE in the padding.
func pattern(rows, pitch, rowBytes int) []byte {
	buf := make([]byte, rows*pitch)
	for r := range rows {
		for i := range pitch {
			if i < rowBytes {
				buf[r*pitch+i] = byte(r + i)
			} else {
				buf[r*pitch+i] = 0xEE
			}
		}
	}
	return buf
}

func TestNewDefaults(t *testing.T) {
	d := newTestDriver(t)
	if got := d.RowPitchAlignment(); got != layout.DefaultRowPitchAlignment {
		t.Errorf("RowPitchAlignment() = %d, want %d", got, layout.DefaultRowPitchAlignment)
	}
	info := d.Info()
	if info.Name != DefaultName || info.Driver != driver.NameSoftware || info.Type != driver.AdapterSoftware {
		t.Errorf("Info() = %+v", info)
	}
}

func TestNewOptions(t *testing.T) {
	d := newTestDriver(t, WithRowPitchAlignment(512), WithWorkers(2), WithName("test"))
	if d.RowPitchAlignment() != 512 {
		t.Errorf("RowPitchAlignment() = %d, want 512", d.RowPitchAlignment())
	}
	if d.Info().Name != "test" {
		t.Errorf("Info().Name = %q, want %q", d.Info().Name, "test")
	}
}

func TestNewBadAlignment(t *testing.T) {
	for _, a := range []int{0, -256, 100} {
		if _, err := New(WithRowPitchAlignment(a)); !errors.Is(err, layout.ErrBadAlignment) {
			t.Errorf("New(alignment %d) error = %v, want ErrBadAlignment", a, err)
		}
	}
}

func TestCreateTextureInvalid(t *testing.T) {
	d := newTestDriver(t)
	tests := []driver.TextureDescriptor{
		{Width: 0, Height: 1, ElementSize: 4},
		{Width: 1, Height: -1, ElementSize: 4},
		{Width: 1, Height: 1, ElementSize: 0},
	}
	for _, desc := range tests {
		if _, err := d.CreateTexture(desc); !errors.Is(err, driver.ErrInvalidDescriptor) {
			t.Errorf("CreateTexture(%+v) error = %v, want ErrInvalidDescriptor", desc, err)
		}
	}
}

func TestRoundTripTranslatesPitch(t *testing.T) {
	tests := []struct {
		name      string
		w, h      int
		elem      int
		alignment int
	}{
		{"int32 256 aligned", 100, 37, 4, 256},
		{"bytes odd width", 33, 5, 1, 256},
		{"vec4 float", 17, 9, 16, 512},
		{"large banded", 2048, 256, 4, 256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDriver(t, WithRowPitchAlignment(tt.alignment))
			tex := createTexture(t, d, tt.w, tt.h, tt.elem)

			rowBytes := tt.w * tt.elem
			pitch := layout.AlignUp(rowBytes, tt.alignment)
			src := pattern(tt.h, pitch, rowBytes)
			full := driver.Region{Width: tt.w, Height: tt.h}
			if err := d.WriteTexture(tex, src, driver.Layout{RowPitch: pitch}, full); err != nil {
				t.Fatalf("WriteTexture() error = %v", err)
			}

			dst := bytes.Repeat([]byte{0x55}, tt.h*pitch)
			if err := d.ReadTexture(tex, dst, driver.Layout{RowPitch: pitch}, full); err != nil {
				t.Fatalf("ReadTexture() error = %v", err)
			}
			for r := range tt.h {
				got := dst[r*pitch : (r+1)*pitch]
				want := src[r*pitch : r*pitch+rowBytes]
				if !bytes.Equal(got[:rowBytes], want) {
					t.Fatalf("row %d differs", r)
				}
				for i, b := range got[rowBytes:] {
					if b != 0x55 {
						t.Fatalf("row %d padding byte %d = %#x, want untouched 0x55", r, i, b)
					}
				}
			}
		})
	}
}

func TestSubRegion(t *testing.T) {
	d := newTestDriver(t)
	const w, h, elem = 64, 32, 4
	tex := createTexture(t, d, w, h, elem)

	pitch := layout.AlignUp(w*elem, 256)
	src := pattern(h, pitch, w*elem)
	full := driver.Region{Width: w, Height: h}
	if err := d.WriteTexture(tex, src, driver.Layout{RowPitch: pitch}, full); err != nil {
		t.Fatalf("WriteTexture() error = %v", err)
	}

	// Read (10,5)+(20x7) into a tightly packed buffer.
	region := driver.Region{X: 10, Y: 5, Width: 20, Height: 7}
	rowBytes := region.Width * elem
	dst := make([]byte, region.Height*rowBytes)
	if err := d.ReadTexture(tex, dst, driver.Layout{RowPitch: rowBytes}, region); err != nil {
		t.Fatalf("ReadTexture() error = %v", err)
	}
	for r := range region.Height {
		want := src[(region.Y+r)*pitch+region.X*elem:][:rowBytes]
		if !bytes.Equal(dst[r*rowBytes:(r+1)*rowBytes], want) {
			t.Fatalf("row %d differs", r)
		}
	}

	// Write that block back at the origin from an offset layout.
	if err := d.WriteTexture(tex, src, driver.Layout{Offset: region.Y*pitch + region.X*elem, RowPitch: pitch},
		driver.Region{Width: region.Width, Height: region.Height}); err != nil {
		t.Fatalf("WriteTexture() error = %v", err)
	}
	back := make([]byte, region.Height*rowBytes)
	if err := d.ReadTexture(tex, back, driver.Layout{RowPitch: rowBytes},
		driver.Region{Width: region.Width, Height: region.Height}); err != nil {
		t.Fatalf("ReadTexture() error = %v", err)
	}
	if !bytes.Equal(back, dst) {
		t.Error("offset write did not land at the origin")
	}
}

func TestCopyOutOfBounds(t *testing.T) {
	d := newTestDriver(t)
	tex := createTexture(t, d, 8, 8, 4)
	buf := make([]byte, 8*256)

	err := d.WriteTexture(tex, buf, driver.Layout{RowPitch: 256}, driver.Region{X: 1, Width: 8, Height: 8})
	if !errors.Is(err, driver.ErrOutOfBounds) {
		t.Errorf("WriteTexture() error = %v, want ErrOutOfBounds", err)
	}
	err = d.ReadTexture(tex, buf[:100], driver.Layout{RowPitch: 256}, driver.Region{Width: 8, Height: 8})
	if !errors.Is(err, driver.ErrOutOfBounds) {
		t.Errorf("ReadTexture() error = %v, want ErrOutOfBounds", err)
	}
}

func TestForeignAndDestroyedTexture(t *testing.T) {
	d := newTestDriver(t)
	other := newTestDriver(t)
	foreign := createTexture(t, other, 4, 4, 4)
	buf := make([]byte, 4*256)
	full := driver.Region{Width: 4, Height: 4}

	if err := d.ReadTexture(foreign, buf, driver.Layout{RowPitch: 256}, full); !errors.Is(err, driver.ErrForeignTexture) {
		t.Errorf("ReadTexture(foreign) error = %v, want ErrForeignTexture", err)
	}

	tex := createTexture(t, d, 4, 4, 4)
	d.DestroyTexture(tex)
	d.DestroyTexture(tex)
	if err := d.WriteTexture(tex, buf, driver.Layout{RowPitch: 256}, full); !errors.Is(err, driver.ErrTextureDestroyed) {
		t.Errorf("WriteTexture(destroyed) error = %v, want ErrTextureDestroyed", err)
	}
	if s := d.Stats(); s.Textures != 0 || s.ResidentBytes != 0 {
		t.Errorf("Stats() = %+v after destroy, want empty", s)
	}
}

func TestDestroyLosesDevice(t *testing.T) {
	d, err := New()
	if err != nil {
		t.Fatal(err)
	}
	tex := createTexture(t, d, 4, 4, 4)
	d.Destroy()
	d.Destroy()

	buf := make([]byte, 4*256)
	full := driver.Region{Width: 4, Height: 4}
	if err := d.WriteTexture(tex, buf, driver.Layout{RowPitch: 256}, full); !errors.Is(err, driver.ErrDeviceLost) {
		t.Errorf("WriteTexture() error = %v, want ErrDeviceLost", err)
	}
	if err := d.ReadTexture(tex, buf, driver.Layout{RowPitch: 256}, full); !errors.Is(err, driver.ErrDeviceLost) {
		t.Errorf("ReadTexture() error = %v, want ErrDeviceLost", err)
	}
	if _, err := d.CreateTexture(driver.TextureDescriptor{Width: 1, Height: 1, ElementSize: 1}); !errors.Is(err, driver.ErrDeviceLost) {
		t.Errorf("CreateTexture() error = %v, want ErrDeviceLost", err)
	}
	d.DestroyTexture(tex)
}

func TestConcurrentSubmits(t *testing.T) {
	d := newTestDriver(t, WithWorkers(4))
	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tex, err := d.CreateTexture(driver.TextureDescriptor{Width: 32, Height: 32, ElementSize: 4})
			if err != nil {
				errs <- err
				return
			}
			src := bytes.Repeat([]byte{byte(i)}, 32*256)
			dst := make([]byte, 32*256)
			l := driver.Layout{RowPitch: 256}
			full := driver.Region{Width: 32, Height: 32}
			if err := d.WriteTexture(tex, src, l, full); err != nil {
				errs <- err
				return
			}
			if err := d.ReadTexture(tex, dst, l, full); err != nil {
				errs <- err
				return
			}
			if dst[31*256+127] != byte(i) {
				errs <- errors.New("data from another texture")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if got := d.Stats().Submitted; got != 2*n {
		t.Errorf("Submitted = %d, want %d", got, 2*n)
	}
}

func TestZeroAreaSkipsQueue(t *testing.T) {
	d := newTestDriver(t)
	tex := createTexture(t, d, 4, 4, 4)
	if err := d.WriteTexture(tex, nil, driver.Layout{}, driver.Region{X: 4, Y: 4}); err != nil {
		t.Fatalf("WriteTexture(empty) error = %v", err)
	}
	if d.Stats().Submitted != 0 {
		t.Error("empty copy should not reach the queue")
	}
}

func TestRegistered(t *testing.T) {
	if !driver.IsRegistered(driver.NameSoftware) {
		t.Fatal("software driver should be registered on import")
	}
	d, err := driver.Get(driver.NameSoftware)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer d.Destroy()
	if d.Info().Type != driver.AdapterSoftware {
		t.Errorf("Info().Type = %v, want software", d.Info().Type)
	}
}

func BenchmarkReadTexture(b *testing.B) {
	d, err := New()
	if err != nil {
		b.Fatal(err)
	}
	defer d.Destroy()
	tex, err := d.CreateTexture(driver.TextureDescriptor{Width: 2048, Height: 2048, ElementSize: 4})
	if err != nil {
		b.Fatal(err)
	}
	dst := make([]byte, 2048*8192)
	l := driver.Layout{RowPitch: 8192}
	full := driver.Region{Width: 2048, Height: 2048}
	b.SetBytes(int64(len(dst)))
	for b.Loop() {
		if err := d.ReadTexture(tex, dst, l, full); err != nil {
			b.Fatal(err)
		}
	}
}

func TestDestroyTextureWarns(t *testing.T) {
	d := newTestDriver(t)
	other := newTestDriver(t)

	var buf bytes.Buffer
	d.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
	t.Cleanup(func() { d.SetLogger(nil) })

	d.DestroyTexture(createTexture(t, other, 4, 4, 4))
	tex := createTexture(t, d, 4, 4, 4)
	d.DestroyTexture(tex)
	if strings.Contains(buf.String(), "destroyed twice") {
		t.Fatalf("first destroy logged a warning:\n%s", buf.String())
	}
	d.DestroyTexture(tex)

	out := buf.String()
	for _, msg := range []string{"destroy of foreign texture ignored", "texture destroyed twice"} {
		if !strings.Contains(out, msg) {
			t.Errorf("log output missing %q:\n%s", msg, out)
		}
	}
	if n := strings.Count(out, "level=WARN"); n != 2 {
		t.Errorf("got %d warnings, want 2:\n%s", n, out)
	}
}
