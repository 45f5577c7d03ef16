package homebrew

import (
	"bytes"
	"image"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bodgit/homebrew/cache"
	"github.com/bodgit/homebrew/palette"
	"github.com/bodgit/homebrew/pixel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func writeBMP(t *testing.T, dir, name string, m image.Image) string {
	t.Helper()
	b := new(bytes.Buffer)
	require.NoError(t, bmp.Encode(b, m))
	file := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(file, b.Bytes(), 0644))
	return file
}

func trueColor() *image.RGBA {
	m := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			m.Set(x, y, color.RGBA{uint8(x*80 + 1), uint8(y*100 + 2), uint8(x + y*3), 0xff})
		}
	}
	return m
}

func indexed() *image.Paletted {
	pal := make(color.Palette, palette.Size)
	for i := range pal {
		pal[i] = color.RGBA{uint8(i), uint8(255 - i), 0x40, 0xff}
	}
	m := image.NewPaletted(image.Rect(0, 0, 2, 2), pal)
	copy(m.Pix, []uint8{10, 20, 30, 40})
	return m
}

func newConverter(db *cache.DB) (*Converter, *bytes.Buffer, *bytes.Buffer) {
	info, warn := new(bytes.Buffer), new(bytes.Buffer)
	return New(db, log.New(info, "", 0), log.New(warn, "", 0)), info, warn
}

func TestConvertRGB888RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := trueColor()
	c, _, _ := newConverter(nil)

	opts := Options{
		Input:   writeBMP(t, dir, "in.bmp", src),
		Output:  filepath.Join(dir, "out.raw"),
		Formats: []pixel.Format{pixel.RGB888},
	}
	require.NoError(t, c.Convert(opts))

	b, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	require.Len(t, b, 3*2*3)

	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			o := (y*3 + x) * 3
			assert.Equal(t, src.RGBAAt(x, y), color.RGBA{b[o], b[o+1], b[o+2], 0xff})
		}
	}
}

func TestConvertDefaultFormat(t *testing.T) {
	dir := t.TempDir()
	m := image.NewRGBA(image.Rect(0, 0, 1, 1))
	m.Set(0, 0, color.RGBA{0xff, 0, 0, 0xff})
	c, _, _ := newConverter(nil)

	opts := Options{
		Input:  writeBMP(t, dir, "in.bmp", m),
		Output: filepath.Join(dir, "out.raw"),
	}
	require.NoError(t, c.Convert(opts))

	b, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xf8}, b)
}

func TestConvertLUT(t *testing.T) {
	dir := t.TempDir()
	c, _, _ := newConverter(nil)

	opts := Options{
		Input:         writeBMP(t, dir, "in.bmp", indexed()),
		Output:        filepath.Join(dir, "out.raw"),
		PaletteOutput: filepath.Join(dir, "pal.txt"),
		Formats:       []pixel.Format{pixel.LUT, pixel.RGB888},
		Rotate:        true,
	}
	require.NoError(t, c.Convert(opts))

	b, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	assert.Equal(t, []byte{30, 10, 40, 20}, b)

	b, err = os.ReadFile(opts.PaletteOutput)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 16)
	// Entry 0 is {0, 255, 0x40}
	assert.True(t, strings.HasPrefix(lines[0], "0x07d0,"))
}

func TestConvertLUTNeeds8Bit(t *testing.T) {
	dir := t.TempDir()
	c, _, _ := newConverter(nil)

	opts := Options{
		Input:   writeBMP(t, dir, "in.bmp", trueColor()),
		Output:  filepath.Join(dir, "out.raw"),
		Formats: []pixel.Format{pixel.LUT},
	}
	assert.Error(t, c.Convert(opts))
	assert.NoFileExists(t, opts.Output)
}

func TestConvertQuantized(t *testing.T) {
	dir := t.TempDir()
	c, _, _ := newConverter(nil)

	// Black, white and then all white
	triplets := bytes.Repeat([]byte{0xff}, 768)
	copy(triplets, []byte{0, 0, 0})
	pal := filepath.Join(dir, "bw.act")
	require.NoError(t, os.WriteFile(pal, triplets, 0644))

	m := image.NewRGBA(image.Rect(0, 0, 2, 1))
	m.Set(0, 0, color.RGBA{10, 10, 10, 0xff})
	m.Set(1, 0, color.RGBA{200, 200, 200, 0xff})

	opts := Options{
		Input:   writeBMP(t, dir, "in.bmp", m),
		Output:  filepath.Join(dir, "out.raw"),
		Palette: pal,
		Formats: []pixel.Format{pixel.Quantized},
	}
	require.NoError(t, c.Convert(opts))

	b, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1}, b)
}

func TestConvertQuantizedEmbeddedPalette(t *testing.T) {
	dir := t.TempDir()
	c, _, _ := newConverter(nil)

	grey := make([]byte, 1024)
	for i := 0; i < palette.Size; i++ {
		copy(grey[i*4:], []byte{uint8(i), uint8(i), uint8(i), 0})
	}
	pal := filepath.Join(dir, "grey.pal")
	require.NoError(t, os.WriteFile(pal, grey, 0644))

	opts := Options{
		Input:         writeBMP(t, dir, "in.bmp", indexed()),
		Output:        filepath.Join(dir, "out.raw"),
		PaletteOutput: filepath.Join(dir, "pal.txt"),
		Palette:       pal,
		Formats:       []pixel.Format{pixel.Quantized},
	}
	require.NoError(t, c.Convert(opts))

	b, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	require.Len(t, b, 4)

	// The side file comes from the bitmap, not the external palette
	b, err = os.ReadFile(opts.PaletteOutput)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "0x07d0,"))
}

func TestConvertBadPalette(t *testing.T) {
	dir := t.TempDir()
	c, _, _ := newConverter(nil)

	pal := filepath.Join(dir, "bad.pal")
	require.NoError(t, os.WriteFile(pal, make([]byte, 500), 0644))

	opts := Options{
		Input:         writeBMP(t, dir, "in.bmp", indexed()),
		Output:        filepath.Join(dir, "out.raw"),
		PaletteOutput: filepath.Join(dir, "pal.txt"),
		Palette:       pal,
		Formats:       []pixel.Format{pixel.Quantized},
	}
	assert.ErrorIs(t, c.Convert(opts), palette.ErrUnknownFormat)
	assert.NoFileExists(t, opts.Output)
	assert.NoFileExists(t, opts.PaletteOutput)
}

func TestConvertQuantizedNeedsPalette(t *testing.T) {
	dir := t.TempDir()
	c, _, _ := newConverter(nil)

	opts := Options{
		Input:   writeBMP(t, dir, "in.bmp", trueColor()),
		Output:  filepath.Join(dir, "out.raw"),
		Formats: []pixel.Format{pixel.Quantized},
	}
	assert.Equal(t, errNoPalette, c.Convert(opts))
	assert.NoFileExists(t, opts.Output)
}

func TestConvertMedianCut(t *testing.T) {
	dir := t.TempDir()
	c, _, _ := newConverter(nil)

	opts := Options{
		Input:       writeBMP(t, dir, "in.bmp", trueColor()),
		Output:      filepath.Join(dir, "out.raw"),
		MedianCut:   true,
		SavePalette: filepath.Join(dir, "out.act"),
		Formats:     []pixel.Format{pixel.Quantized},
	}
	require.NoError(t, c.Convert(opts))

	b, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	assert.Len(t, b, 6)

	p, err := palette.Load(opts.SavePalette)
	require.NoError(t, err)

	// Every index refers to a palette entry close to the source pixel
	src := trueColor()
	for i, idx := range b {
		want := src.RGBAAt(i%3, i/3)
		got := p[idx]
		assert.InDelta(t, want.R, got.R, 8)
		assert.InDelta(t, want.G, got.G, 8)
		assert.InDelta(t, want.B, got.B, 8)
	}
}

func TestConvertSprite(t *testing.T) {
	dir := t.TempDir()
	c, _, warn := newConverter(nil)

	opts := Options{
		Input:   writeBMP(t, dir, "in.bmp", trueColor()),
		Output:  filepath.Join(dir, "out.raw"),
		Formats: []pixel.Format{pixel.BGR233},
		Sprite:  true,
		Rotate:  true,
	}
	require.NoError(t, c.Convert(opts))
	assert.Contains(t, warn.String(), "rotate")

	b, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	require.Len(t, b, pixel.SpriteHeaderSize+6)
	assert.Equal(t, []byte{'M', 'r', '.', 'M', 3, 0, 2, 0, 0, 0, 0, 0}, b[:pixel.SpriteHeaderSize])
}

func TestConvertSideFileNeedsIndexedOutput(t *testing.T) {
	dir := t.TempDir()
	c, _, warn := newConverter(nil)

	opts := Options{
		Input:         writeBMP(t, dir, "in.bmp", indexed()),
		Output:        filepath.Join(dir, "out.raw"),
		PaletteOutput: filepath.Join(dir, "pal.txt"),
	}
	require.NoError(t, c.Convert(opts))
	assert.FileExists(t, opts.Output)
	assert.NoFileExists(t, opts.PaletteOutput)
	assert.NotEmpty(t, warn.String())
}

func TestConvertMissingInput(t *testing.T) {
	dir := t.TempDir()
	c, _, _ := newConverter(nil)

	missing := filepath.Join(dir, "missing.bmp")
	err := c.Convert(Options{
		Input:  missing,
		Output: filepath.Join(dir, "out.raw"),
	})
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), missing)
}

func TestConvertBadBitmap(t *testing.T) {
	dir := t.TempDir()
	c, _, _ := newConverter(nil)

	input := filepath.Join(dir, "in.bmp")
	require.NoError(t, os.WriteFile(input, []byte("not a bitmap at all, far too short"), 0644))

	opts := Options{
		Input:  input,
		Output: filepath.Join(dir, "out.raw"),
	}
	err := c.Convert(opts)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), input)
	assert.NoFileExists(t, opts.Output)
}

func TestConvertCache(t *testing.T) {
	dir := t.TempDir()

	db, err := cache.Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	defer db.Close()

	c, info, _ := newConverter(db)

	opts := Options{
		Input:         writeBMP(t, dir, "in.bmp", indexed()),
		Output:        filepath.Join(dir, "out.raw"),
		PaletteOutput: filepath.Join(dir, "pal.txt"),
		Formats:       []pixel.Format{pixel.LUT},
	}
	require.NoError(t, c.Convert(opts))
	assert.NotContains(t, info.String(), "cached")

	first, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	firstPal, err := os.ReadFile(opts.PaletteOutput)
	require.NoError(t, err)

	require.NoError(t, os.Remove(opts.Output))
	require.NoError(t, os.Remove(opts.PaletteOutput))

	require.NoError(t, c.Convert(opts))
	assert.Contains(t, info.String(), "cached")

	second, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	secondPal, err := os.ReadFile(opts.PaletteOutput)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, firstPal, secondPal)

	// Different options miss the cache
	info.Reset()
	opts.Rotate = true
	require.NoError(t, c.Convert(opts))
	assert.NotContains(t, info.String(), "cached")
}

func TestWriteOutputsCleanup(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.raw")

	err := writeOutputs(
		output{good, []byte{1}},
		output{filepath.Join(dir, "missing", "bad.raw"), []byte{2}},
	)
	assert.Error(t, err)
	assert.NoFileExists(t, good)

	require.NoError(t, writeOutputs(output{good, []byte{1}}, output{"", []byte{2}}, output{"unused", nil}))
	b, err := os.ReadFile(good)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, b)
}

func TestConvertCacheKeepsWarnings(t *testing.T) {
	dir := t.TempDir()

	db, err := cache.Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	defer db.Close()

	c, info, warn := newConverter(db)

	opts := Options{
		Input:         writeBMP(t, dir, "in.bmp", trueColor()),
		Output:        filepath.Join(dir, "out.raw"),
		PaletteOutput: filepath.Join(dir, "pal.txt"),
		Formats:       []pixel.Format{pixel.BGR233},
		Sprite:        true,
		Rotate:        true,
	}
	require.NoError(t, c.Convert(opts))
	first := warn.String()
	assert.Contains(t, first, "rotate")
	assert.Contains(t, first, "has no palette")

	warn.Reset()
	require.NoError(t, c.Convert(opts))
	assert.Contains(t, info.String(), "cached")
	assert.Equal(t, first, warn.String())
	assert.NoFileExists(t, opts.PaletteOutput)
}

func TestConvertCacheNoEmbeddedPalette(t *testing.T) {
	dir := t.TempDir()

	db, err := cache.Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	defer db.Close()

	c, info, warn := newConverter(db)

	opts := Options{
		Input:         writeBMP(t, dir, "in.bmp", trueColor()),
		Output:        filepath.Join(dir, "out.raw"),
		PaletteOutput: filepath.Join(dir, "pal.txt"),
		MedianCut:     true,
		Formats:       []pixel.Format{pixel.Quantized},
	}
	require.NoError(t, c.Convert(opts))
	first := warn.String()
	assert.Contains(t, first, "no embedded palette")

	warn.Reset()
	require.NoError(t, c.Convert(opts))
	assert.Contains(t, info.String(), "cached")
	assert.Equal(t, first, warn.String())
}
