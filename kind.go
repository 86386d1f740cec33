package staging

import "fmt"

// Kind is the direction a transfer texture moves data in.
type Kind uint8

const (
	// Upload textures are written on the host and copied to the device.
	Upload Kind = iota

	// ReadBack textures receive device data for reading on the host.
	ReadBack
)

// String returns "upload" or "readback".
func (k Kind) String() string {
	switch k {
	case Upload:
		return "upload"
	case ReadBack:
		return "readback"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// AllocationMode controls the initial contents of transfer texture memory.
type AllocationMode uint8

const (
	// Default leaves contents unspecified. Memory may hold bytes from an
	// earlier, disposed texture. Use it when every row is overwritten.
	Default AllocationMode = iota

	// Clear zero-fills every byte before the texture is returned.
	Clear
)

// String returns "default" or "clear".
func (m AllocationMode) String() string {
	switch m {
	case Default:
		return "default"
	case Clear:
		return "clear"
	default:
		return fmt.Sprintf("AllocationMode(%d)", m)
	}
}
