package staging

import (
	"reflect"
	"unsafe"

	"github.com/gogpu/gputypes"
)

// Element is the set of types a texture can hold: scalars and small
// fixed-size vectors with no pointers or padding.
type Element interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 |
		~float32 | ~float64 |
		~[2]float32 | ~[4]float32 | ~[4]uint8 | ~[4]uint16 |
		~[2]int32 | ~[4]int32 | ~[2]uint32 | ~[4]uint32
}

// sizeOf returns the byte size of one T.
func sizeOf[T Element]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// ElementSize returns the byte size of one T.
func ElementSize[T Element]() int { return sizeOf[T]() }

// FormatOf returns the WebGPU texture format that stores T, or
// gputypes.TextureFormatUndefined when WebGPU has no matching format.
// Drivers that ignore formats accept every Element.
func FormatOf[T Element]() gputypes.TextureFormat {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Array {
		return scalarFormats[t.Kind()]
	}
	return vectorFormats[vectorShape{elem: t.Elem().Kind(), n: t.Len()}]
}

var scalarFormats = map[reflect.Kind]gputypes.TextureFormat{
	reflect.Int8:    gputypes.TextureFormatR8Sint,
	reflect.Uint8:   gputypes.TextureFormatR8Uint,
	reflect.Int16:   gputypes.TextureFormatR16Sint,
	reflect.Uint16:  gputypes.TextureFormatR16Uint,
	reflect.Int32:   gputypes.TextureFormatR32Sint,
	reflect.Uint32:  gputypes.TextureFormatR32Uint,
	reflect.Float32: gputypes.TextureFormatR32Float,
}

type vectorShape struct {
	elem reflect.Kind
	n    int
}

var vectorFormats = map[vectorShape]gputypes.TextureFormat{
	{reflect.Float32, 2}: gputypes.TextureFormatRG32Float,
	{reflect.Float32, 4}: gputypes.TextureFormatRGBA32Float,
	{reflect.Uint8, 4}:   gputypes.TextureFormatRGBA8Unorm,
	{reflect.Uint16, 4}:  gputypes.TextureFormatRGBA16Uint,
	{reflect.Int32, 2}:   gputypes.TextureFormatRG32Sint,
	{reflect.Int32, 4}:   gputypes.TextureFormatRGBA32Sint,
	{reflect.Uint32, 2}:  gputypes.TextureFormatRG32Uint,
	{reflect.Uint32, 4}:  gputypes.TextureFormatRGBA32Uint,
}

// asElements reinterprets n elements starting at b[0]. b must hold at least
// n*sizeOf[T]() bytes and be aligned for T.
func asElements[T Element](b []byte, n int) []T {
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n)
}
