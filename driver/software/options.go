package software

import "github.com/gogpu/staging/internal/layout"

// Defaults for the emulated device.
const (
	// DefaultName is the adapter name reported by Info.
	DefaultName = "Software Staging Device"

	// nativePitchAlignment is the row alignment of texture storage. It
	// differs from the host alignment so every copy translates pitches.
	nativePitchAlignment = 64

	// parallelBytes is the copy size above which rows are split into bands.
	parallelBytes = 256 * 1024

	// minBandRows is the smallest band handed to a worker.
	minBandRows = 16

	// queueDepth is the number of jobs that can wait for the queue goroutine.
	queueDepth = 16
)

type config struct {
	name      string
	alignment int
	workers   int
}

func defaultConfig() config {
	return config{
		name:      DefaultName,
		alignment: layout.DefaultRowPitchAlignment,
	}
}

// Option configures a Driver.
type Option func(*config)

// WithRowPitchAlignment sets the host row pitch alignment the device
// reports. It must be a power of two.
func WithRowPitchAlignment(n int) Option {
	return func(c *config) {
		c.alignment = n
	}
}

// WithWorkers sets the number of goroutines used for banded copies.
// Zero or negative selects GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithName sets the adapter name reported by Info.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}
