/*
Package pixel implements the raw pixel formats understood by the target
hardware and the writer that streams a decoded bitmap in one of them.

Every pixel is encoded independently of its neighbours; there is no dithering
or error diffusion. Multi-byte pixels and the optional sprite header are
always written little-endian.
*/
package pixel

import "fmt"

// Format selects the encoding of each output pixel.
type Format int

// The supported formats.
const (
	RGB555    Format = iota // 16 bits, RRRRRGGGGGBBBBB0
	BGR555                  // 16 bits, XBBBBBGGGGGRRRRR
	BGR233                  // 8 bits, BBGGGRRR
	LUT                     // 8 bits, source palette index
	RGB888                  // 24 bits, R then G then B
	Quantized               // 8 bits, index of the nearest palette entry
)

var formatNames = [...]string{
	RGB555:    "rgb555",
	BGR555:    "bgr555",
	BGR233:    "bgr233",
	LUT:       "lut",
	RGB888:    "rgb888",
	Quantized: "quantized",
}

func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// Size returns the number of bytes written for each pixel.
func (f Format) Size() int {
	switch f {
	case RGB555, BGR555:
		return 2
	case RGB888:
		return 3
	default:
		return 1
	}
}

// Indexed reports whether the format writes palette indices.
func (f Format) Indexed() bool {
	return f == LUT || f == Quantized
}

// Highest precedence first
var precedence = [...]Format{Quantized, LUT, BGR233, BGR555, RGB888, RGB555}

// Select returns the format that wins when all of the given formats have
// been requested. With nothing requested the result is RGB555.
func Select(requested ...Format) Format {
	set := make(map[Format]bool, len(requested))
	for _, f := range requested {
		set[f] = true
	}
	for _, f := range precedence {
		if set[f] {
			return f
		}
	}
	return RGB555
}
