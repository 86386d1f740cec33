package staging

import "github.com/gogpu/staging/internal/hostmem"

// Option configures a Device during creation.
//
// Example:
//
//	dev, err := staging.OpenDefault(
//	    staging.WithHostMemoryBudget(512),
//	    staging.WithLabel("tiles"),
//	)
type Option func(*deviceOptions)

// deviceOptions holds optional configuration for Device creation.
type deviceOptions struct {
	label     string
	budgetMB  int
	recycleMB int
}

// defaultOptions returns the default device options.
func defaultOptions() deviceOptions {
	return deviceOptions{
		budgetMB:  0, // unlimited
		recycleMB: hostmem.DefaultRecycleMB,
	}
}

// WithHostMemoryBudget caps the host memory held by live transfer textures
// of the device. Allocations beyond the budget fail. Zero means unlimited.
func WithHostMemoryBudget(mb int) Option {
	return func(o *deviceOptions) {
		o.budgetMB = mb
	}
}

// WithRecycleLimit caps the memory of disposed transfer textures kept for
// reuse by Default-mode allocations. A negative value disables reuse.
func WithRecycleLimit(mb int) Option {
	return func(o *deviceOptions) {
		o.recycleMB = mb
	}
}

// WithLabel sets a debug label used in logs and texture labels.
func WithLabel(label string) Option {
	return func(o *deviceOptions) {
		o.label = label
	}
}
