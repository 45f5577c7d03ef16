/*
Package palette implements the fixed 256 color palettes used by the indexed
output formats.

A palette can be loaded from a raw file of either 256 RGB triplets (768 bytes,
as written by Photoshop .act files) or 256 RGBX quads (1024 bytes), built from
an image with median cut quantization, or taken from an 8-bit source bitmap.
*/
package palette

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"github.com/bodgit/homebrew/bitmap"
	"github.com/ericpauley/go-quantize/quantize"
)

// Size is the number of entries in a palette.
const Size = 256

const (
	tripletSize = Size * 3
	quadSize    = Size * 4
)

// ErrUnknownFormat is returned when a palette file is neither 768 nor 1024
// bytes long.
var ErrUnknownFormat = errors.New("palette: unknown palette format")

// Palette is an ordered set of colors; the index of each entry is its color
// index.
type Palette [Size]bitmap.RGB

// FromEmbedded returns the palette embedded in an 8-bit bitmap.
func FromEmbedded(m *bitmap.Image) (*Palette, bool) {
	if m.Palette == nil {
		return nil, false
	}
	p := Palette(*m.Palette)
	return &p, true
}

// Read reads a palette of the given size in bytes from r. The size selects
// the layout.
func Read(r io.Reader, size int64) (*Palette, error) {
	var stride int
	switch size {
	case tripletSize:
		stride = 3
	case quadSize:
		stride = 4
	default:
		return nil, ErrUnknownFormat
	}

	b := make([]byte, size)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}

	p := new(Palette)
	for i := range p {
		e := b[i*stride:]
		p[i] = bitmap.RGB{R: e[0], G: e[1], B: e[2]}
	}

	return p, nil
}

// Load reads a palette from the named file.
func Load(file string) (*Palette, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	p, err := Read(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	return p, nil
}

// MedianCut builds a palette for m using median cut quantization. Any unused
// entries are left black.
func MedianCut(m image.Image) *Palette {
	q := quantize.MedianCutQuantizer{}

	p := new(Palette)
	for i, c := range q.Quantize(make(color.Palette, 0, Size), m) {
		if i >= Size {
			break
		}
		r, g, b, _ := c.RGBA()
		p[i] = bitmap.RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
	}

	return p
}

// MarshalBinary encodes the palette as 256 RGB triplets, the same layout Read
// accepts for a 768 byte file.
func (p *Palette) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, tripletSize)
	for _, c := range p {
		b = append(b, c.R, c.G, c.B)
	}
	return b, nil
}

// UnmarshalBinary decodes a palette in either raw layout.
func (p *Palette) UnmarshalBinary(b []byte) error {
	n, err := Read(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return err
	}
	*p = *n
	return nil
}
