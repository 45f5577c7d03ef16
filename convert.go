package homebrew

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bodgit/homebrew/bitmap"
	"github.com/bodgit/homebrew/cache"
	"github.com/bodgit/homebrew/palette"
	"github.com/bodgit/homebrew/pixel"
)

// Bump whenever an encoder changes so stale cache entries are ignored
const cacheVersion = 1

var errNoPalette = errors.New("quantized output needs a palette file or median cut")

// Options describes a single bitmap conversion.
type Options struct {
	// Input is the source bitmap and Output receives the pixel data.
	Input, Output string

	// PaletteOutput, if set, receives the hardware palette of an 8-bit
	// source when writing indexed output.
	PaletteOutput string

	// Palette is the palette file searched by quantized output.
	Palette string

	// MedianCut builds the quantized palette from the image instead.
	MedianCut bool

	// SavePalette, if set, receives the quantized palette as RGB triplets.
	SavePalette string

	// Formats lists every requested format; the winner is chosen by
	// pixel.Select.
	Formats []pixel.Format

	// DS sets the top bit of BGR555 pixels.
	DS bool

	// Rotate turns the image 90 degrees clockwise.
	Rotate bool

	// Sprite prepends the sprite header.
	Sprite bool
}

type output struct {
	name string
	data []byte
}

// Write every output or none of them
func writeOutputs(outputs ...output) (err error) {
	var created []string
	defer func() {
		if err != nil {
			for _, name := range created {
				os.Remove(name)
			}
		}
	}()

	for _, o := range outputs {
		if o.name == "" || o.data == nil {
			continue
		}

		f, err := os.Create(o.name)
		if err != nil {
			return err
		}
		created = append(created, o.name)

		if _, err = f.Write(o.data); err != nil {
			f.Close()
			return fmt.Errorf("%s: %w", o.name, err)
		}

		if err = f.Close(); err != nil {
			return fmt.Errorf("%s: %w", o.name, err)
		}
	}

	return nil
}

func (c *Converter) readInput(file string, key *cache.Key) ([]byte, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := io.ReadAll(io.TeeReader(f, key.Writer()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	return b, nil
}

// Convert converts a bitmap according to opts. Nothing is written unless the
// whole conversion succeeds.
func (c *Converter) Convert(opts Options) error {
	format := pixel.Select(opts.Formats...)
	c.logger.Printf("Output format is %s\n", format)

	// Load any palette first so a bad one fails before touching the outputs
	var pal *palette.Palette
	if opts.Palette != "" {
		p, err := palette.Load(opts.Palette)
		if err != nil {
			return err
		}
		pal = p
		if opts.MedianCut {
			c.warn.Printf("Ignoring median cut, using palette \"%s\"\n", opts.Palette)
		}
	}
	if format == pixel.Quantized && pal == nil && !opts.MedianCut {
		return errNoPalette
	}

	// Warn about option combinations up front so a cache hit reports them too
	if opts.Sprite && opts.Rotate {
		c.warn.Println("Please don't rotate sprites, the header keeps the unrotated size")
	}
	sideFile := opts.PaletteOutput
	if sideFile != "" && !format.Indexed() {
		c.warn.Printf("Not writing \"%s\", %s output has no palette\n", sideFile, format)
		sideFile = ""
	}

	key := cache.NewKey()
	data, err := c.readInput(opts.Input, key)
	if err != nil {
		return err
	}

	if pal != nil {
		b, _ := pal.MarshalBinary()
		key.Add("palette", fmt.Sprintf("%X", b))
	}
	key.Add("version", cacheVersion)
	key.Add("format", format)
	key.Add("ds", opts.DS)
	key.Add("rotate", opts.Rotate)
	key.Add("sprite", opts.Sprite)
	key.Add("mediancut", opts.MedianCut)
	key.Add("side", sideFile != "")

	if c.cache != nil && opts.SavePalette == "" {
		e, err := c.cache.Find(key.String())
		if err != nil {
			return err
		}
		if e != nil {
			c.logger.Printf("Using cached conversion of \"%s\"\n", opts.Input)
			if sideFile != "" && e.Palette == nil {
				c.warn.Printf("Not writing \"%s\", \"%s\" has no embedded palette\n", sideFile, opts.Input)
			}
			return writeOutputs(output{opts.Output, e.Pixels}, output{sideFile, e.Palette})
		}
	}

	var decodeOpts []bitmap.Option
	if format == pixel.LUT {
		decodeOpts = append(decodeOpts, bitmap.KeepIndices())
	}

	m, err := bitmap.Decode(bytes.NewReader(data), decodeOpts...)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.Input, err)
	}
	if m.Palette != nil {
		c.logger.Printf("\"%s\" is an 8-bit %dx%d image\n", opts.Input, m.Width, m.Height)
	} else {
		c.logger.Printf("\"%s\" is a 24-bit %dx%d image\n", opts.Input, m.Width, m.Height)
	}

	var saved []byte
	if format == pixel.Quantized {
		if pal == nil {
			pal = palette.MedianCut(m)
		}
		if opts.SavePalette != "" {
			saved, _ = pal.MarshalBinary()
		}
	}

	pixels := new(bytes.Buffer)

	if opts.Sprite {
		c.logger.Printf("Sprite header %dx%d\n", m.Width, m.Height)
		if err := pixel.WriteSpriteHeader(pixels, m.Width, m.Height); err != nil {
			return err
		}
	}

	e := pixel.Encoder{
		Format:  format,
		DS:      opts.DS,
		Palette: pal,
	}
	if err := e.Encode(pixels, m, opts.Rotate); err != nil {
		return fmt.Errorf("%s: %w", opts.Input, err)
	}

	var side []byte
	if sideFile != "" {
		if embedded, ok := palette.FromEmbedded(m); ok {
			b := new(bytes.Buffer)
			if err := embedded.WriteHardware(b); err != nil {
				return err
			}
			side = b.Bytes()
		} else {
			c.warn.Printf("Not writing \"%s\", \"%s\" has no embedded palette\n", sideFile, opts.Input)
		}
	}

	if err := writeOutputs(output{opts.Output, pixels.Bytes()}, output{sideFile, side}, output{opts.SavePalette, saved}); err != nil {
		return err
	}
	c.logger.Printf("Wrote %d bytes to \"%s\"\n", pixels.Len(), opts.Output)

	if c.cache != nil && opts.SavePalette == "" {
		if err := c.cache.Add(key.String(), &cache.Entry{Pixels: pixels.Bytes(), Palette: side}); err != nil {
			return err
		}
	}

	return nil
}
