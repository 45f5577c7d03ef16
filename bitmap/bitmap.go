/*
Package bitmap implements a decoder for the subset of Windows bitmaps used as
source artwork by the converters.

Only a BITMAPFILEHEADER immediately followed by a 40 byte BITMAPINFOHEADER is
understood. The image must be a single plane, uncompressed and either 8 bits
per pixel with a 256 entry palette or 24 bits per pixel. Pixel rows are
stored bottom-up with each row padded to a multiple of 4 bytes; the decoded
Image is always top-down with the padding removed.
*/
package bitmap

import (
	"image"
	"image/color"
)

const (
	fileHeaderLen = 14
	infoHeaderLen = 40
	paletteLen    = 256
	quadLen       = 4
	magic         = "BM"
)

// FormatError reports that the input is not a valid bitmap.
type FormatError string

func (e FormatError) Error() string { return "bitmap: invalid format: " + string(e) }

// UnsupportedError reports that the input uses a valid but unsupported
// bitmap feature.
type UnsupportedError string

func (e UnsupportedError) Error() string { return "bitmap: unsupported feature: " + string(e) }

// RGB is a single decoded pixel.
type RGB struct {
	R, G, B uint8
}

// RGBA implements the color.Color interface. The pixel is always opaque.
func (c RGB) RGBA() (r, g, b, a uint32) {
	return color.RGBA{c.R, c.G, c.B, 0xff}.RGBA()
}

// FileHeader is the 14 byte BITMAPFILEHEADER.
type FileHeader struct {
	Type      uint16
	Size      uint32
	Reserved1 uint16
	Reserved2 uint16
	OffBits   uint32
}

// InfoHeader is the 40 byte BITMAPINFOHEADER.
type InfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

// Header holds both bitmap headers.
type Header struct {
	File FileHeader
	Info InfoHeader
}

// Width returns the image width in pixels.
func (h Header) Width() int {
	return int(h.Info.Width)
}

// Height returns the image height in pixels.
func (h Header) Height() int {
	return int(h.Info.Height)
}

// Image is a decoded bitmap held as a row-major, top-down buffer of pixels.
type Image struct {
	Width, Height int
	Pix           []RGB

	// Indexed is set when the decoder kept the raw palette index of each
	// pixel in its R channel instead of resolving it.
	Indexed bool

	// Palette is the palette embedded in an 8-bit source, nil otherwise.
	Palette *[paletteLen]RGB
}

// NewImage returns a black image of the given size.
func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]RGB, width*height),
	}
}

// RGBAt returns the pixel at (x, y).
func (m *Image) RGBAt(x, y int) RGB {
	return m.Pix[y*m.Width+x]
}

// SetRGB sets the pixel at (x, y).
func (m *Image) SetRGB(x, y int, c RGB) {
	m.Pix[y*m.Width+x] = c
}

// ColorModel implements the image.Image interface.
func (m *Image) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements the image.Image interface.
func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// At implements the image.Image interface.
func (m *Image) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(m.Bounds())) {
		return color.RGBA{}
	}
	c := m.RGBAt(x, y)
	return color.RGBA{c.R, c.G, c.B, 0xff}
}
