package palette

import (
	"fmt"
	"io"

	"github.com/bodgit/homebrew/bitmap"
)

// Channel weights approximating perceived luminance
const (
	weightR = 28
	weightG = 91
	weightB = 9
)

func sq(d int) uint32 {
	return uint32(d * d)
}

// Distance returns the weighted squared distance between two colors.
func Distance(a, b bitmap.RGB) uint32 {
	return sq(int(a.R)-int(b.R))*weightR +
		sq(int(a.G)-int(b.G))*weightG +
		sq(int(a.B)-int(b.B))*weightB
}

// Index returns the index of the palette entry closest to c. When several
// entries are equally close the lowest index wins.
func (p *Palette) Index(c bitmap.RGB) uint8 {
	return index(p[:], c)
}

func index(p []bitmap.RGB, c bitmap.RGB) uint8 {
	var ret uint8
	bestSum := ^uint32(0)
	for i, v := range p {
		if sum := Distance(c, v); sum < bestSum {
			ret, bestSum = uint8(i), sum
		}
	}
	return ret
}

// Hardware returns entry i packed as RRRRRGGGGGBBBBB0.
func (p *Palette) Hardware(i int) uint16 {
	c := p[i]
	return uint16(c.B>>3)<<1 | uint16(c.G>>3)<<6 | uint16(c.R>>3)<<11
}

// WriteHardware writes the packed form of every entry to w as hex literals,
// sixteen to a line.
func (p *Palette) WriteHardware(w io.Writer) error {
	for n := 0; n < Size; n += 16 {
		for m := 0; m < 16; m++ {
			sep := ","
			if m == 15 {
				sep = "\n"
			}
			if _, err := fmt.Fprintf(w, "0x%04x%s", p.Hardware(n+m), sep); err != nil {
				return err
			}
		}
	}
	return nil
}
