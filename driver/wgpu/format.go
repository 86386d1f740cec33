//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/staging/driver"
)

// formatSizes lists the formats the driver can stage and their texel size.
var formatSizes = map[gputypes.TextureFormat]int{
	gputypes.TextureFormatR8Unorm:     1,
	gputypes.TextureFormatR8Uint:      1,
	gputypes.TextureFormatR8Sint:      1,
	gputypes.TextureFormatR16Uint:     2,
	gputypes.TextureFormatR16Sint:     2,
	gputypes.TextureFormatR32Uint:     4,
	gputypes.TextureFormatR32Sint:     4,
	gputypes.TextureFormatR32Float:    4,
	gputypes.TextureFormatRGBA8Unorm:  4,
	gputypes.TextureFormatBGRA8Unorm:  4,
	gputypes.TextureFormatRG32Uint:    8,
	gputypes.TextureFormatRG32Sint:    8,
	gputypes.TextureFormatRG32Float:   8,
	gputypes.TextureFormatRGBA16Uint:  8,
	gputypes.TextureFormatRGBA32Uint:  16,
	gputypes.TextureFormatRGBA32Sint:  16,
	gputypes.TextureFormatRGBA32Float: 16,
}

// checkFormat verifies that desc names a supported format whose texel size
// matches the element size.
func checkFormat(desc driver.TextureDescriptor) error {
	size, ok := formatSizes[desc.Format]
	if !ok {
		return fmt.Errorf("%w: format %v", driver.ErrUnsupportedFormat, desc.Format)
	}
	if size != desc.ElementSize {
		return fmt.Errorf("%w: format %v has %d-byte texels, element is %d bytes",
			driver.ErrUnsupportedFormat, desc.Format, size, desc.ElementSize)
	}
	return nil
}
