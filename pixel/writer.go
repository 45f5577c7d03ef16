package pixel

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"github.com/bodgit/homebrew/bitmap"
	"github.com/bodgit/homebrew/palette"
)

var (
	errNotIndexed = errors.New("pixel: lut output needs palette indices from an 8-bit source")
	errNoPalette  = errors.New("pixel: quantized output needs a palette")
	errTooLarge   = errors.New("pixel: image too large for sprite header")
)

// SpriteMagic starts every sprite header.
const SpriteMagic = "Mr.M"

// SpriteHeaderSize is the size in bytes of the sprite header.
const SpriteHeaderSize = 12

// Encoder converts pixels into a Format.
type Encoder struct {
	Format Format

	// DS sets the top bit of every BGR555 pixel.
	DS bool

	// Palette is searched by Quantized.
	Palette *palette.Palette
}

// Append appends the encoding of c to b.
func (e *Encoder) Append(b []byte, c bitmap.RGB) []byte {
	switch e.Format {
	case BGR555:
		v := uint16(c.B>>3)<<10 | uint16(c.G>>3)<<5 | uint16(c.R>>3)
		if e.DS {
			v |= 0x8000
		}
		return binary.LittleEndian.AppendUint16(b, v)
	case BGR233:
		return append(b, c.B>>6<<6|c.G>>5<<3|c.R>>5)
	case LUT:
		return append(b, c.R)
	case RGB888:
		return append(b, c.R, c.G, c.B)
	case Quantized:
		return append(b, e.Palette.Index(c))
	default:
		v := uint16(c.B>>3)<<1 | uint16(c.G>>3)<<6 | uint16(c.R>>3)<<11
		return binary.LittleEndian.AppendUint16(b, v)
	}
}

func (e *Encoder) check(m *bitmap.Image) error {
	switch e.Format {
	case LUT:
		if !m.Indexed {
			return errNotIndexed
		}
	case Quantized:
		if e.Palette == nil {
			return errNoPalette
		}
	}
	return nil
}

// Encode writes every pixel of m to w. Pixels are written in rows top to
// bottom, or with rotate set, in columns left to right reading each column
// bottom to top, which rotates the image 90 degrees clockwise.
func (e *Encoder) Encode(w io.Writer, m *bitmap.Image, rotate bool) error {
	if err := e.check(m); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	tmp := make([]byte, 0, 3)

	if rotate {
		for x := 0; x < m.Width; x++ {
			for y := m.Height - 1; y >= 0; y-- {
				if _, err := bw.Write(e.Append(tmp[:0], m.RGBAt(x, y))); err != nil {
					return err
				}
			}
		}
	} else {
		for _, c := range m.Pix {
			if _, err := bw.Write(e.Append(tmp[:0], c)); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

// WriteSpriteHeader writes the 12 byte sprite header: the magic, the width
// and height as 16-bit values and two reserved zero words.
func WriteSpriteHeader(w io.Writer, width, height int) error {
	if width > 0x7fff || height > 0x7fff {
		return errTooLarge
	}

	var b [SpriteHeaderSize]byte
	copy(b[:], SpriteMagic)
	binary.LittleEndian.PutUint16(b[4:], uint16(width))
	binary.LittleEndian.PutUint16(b[6:], uint16(height))

	_, err := w.Write(b[:])
	return err
}
