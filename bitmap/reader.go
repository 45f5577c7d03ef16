package bitmap

import (
	"encoding/binary"
	"image"
	"image/color"
	"io"
	"strconv"
)

const (
	errNotEnoughHeader = FormatError("not enough header data")
	errNotEnoughPixels = FormatError("not enough pixel data")
	errBadOffset       = FormatError("pixel data offset inside headers")
	errTooLarge        = UnsupportedError("image larger than 64 megapixels")
)

// Largest image decoded, in pixels
const maxPixels = 1 << 26

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// align4 rounds n up to the next multiple of 4.
func align4(n int) int {
	return (n + 3) &^ 3
}

// An Option configures the decoder.
type Option func(*decoder)

// KeepIndices makes the decoder store the raw palette index of each pixel of
// an 8-bit source in the R channel rather than resolving it through the
// embedded palette. It has no effect on 24-bit sources.
func KeepIndices() Option {
	return func(d *decoder) {
		d.keepIndices = true
	}
}

type decoder struct {
	r io.Reader
	n int64

	keepIndices bool

	header  Header
	palette [paletteLen]RGB
	image   *Image

	tmp [paletteLen * quadLen]byte
}

func (d *decoder) read(b []byte) error {
	if err := readFull(d.r, b); err != nil {
		return err
	}
	d.n += int64(len(b))
	return nil
}

func (d *decoder) readHeader() error {
	b := d.tmp[:fileHeaderLen+infoHeaderLen]
	if err := d.read(b); err != nil {
		if err == io.ErrUnexpectedEOF {
			return errNotEnoughHeader
		}
		return err
	}

	le := binary.LittleEndian
	d.header.File = FileHeader{
		Type:      le.Uint16(b[0:]),
		Size:      le.Uint32(b[2:]),
		Reserved1: le.Uint16(b[6:]),
		Reserved2: le.Uint16(b[8:]),
		OffBits:   le.Uint32(b[10:]),
	}
	i := b[fileHeaderLen:]
	d.header.Info = InfoHeader{
		Size:          le.Uint32(i[0:]),
		Width:         int32(le.Uint32(i[4:])),
		Height:        int32(le.Uint32(i[8:])),
		Planes:        le.Uint16(i[12:]),
		BitCount:      le.Uint16(i[14:]),
		Compression:   le.Uint32(i[16:]),
		SizeImage:     le.Uint32(i[20:]),
		XPelsPerMeter: int32(le.Uint32(i[24:])),
		YPelsPerMeter: int32(le.Uint32(i[28:])),
		ClrUsed:       le.Uint32(i[32:]),
		ClrImportant:  le.Uint32(i[36:]),
	}

	if string(b[:2]) != magic {
		return FormatError("not a bitmap file")
	}

	info := d.header.Info
	if info.Planes != 1 {
		return UnsupportedError("planes " + strconv.FormatUint(uint64(info.Planes), 10))
	}
	if info.Compression != 0 {
		return UnsupportedError("compression " + strconv.FormatUint(uint64(info.Compression), 10))
	}
	switch info.BitCount {
	case 8, 24:
	default:
		return UnsupportedError("bit depth " + strconv.FormatUint(uint64(info.BitCount), 10))
	}
	// Top-down bitmaps store a negative height
	if info.Height < 0 {
		return UnsupportedError("top-down row order")
	}
	if info.Width <= 0 || info.Height == 0 {
		return UnsupportedError("non-positive dimension")
	}

	return nil
}

// The palette always follows the info header, regardless of where the pixel
// data starts
func (d *decoder) readPalette() error {
	b := d.tmp[:paletteLen*quadLen]
	if err := d.read(b); err != nil {
		if err == io.ErrUnexpectedEOF {
			return FormatError("not enough palette data")
		}
		return err
	}
	for i := range d.palette {
		// Stored as BGRX quads
		q := b[i*quadLen:]
		d.palette[i] = RGB{q[2], q[1], q[0]}
	}
	return nil
}

func (d *decoder) skipTo(offset int64) error {
	switch {
	case offset < d.n:
		return errBadOffset
	case offset == d.n:
		return nil
	}

	if s, ok := d.r.(io.Seeker); ok {
		if _, err := s.Seek(offset-d.n, io.SeekCurrent); err != nil {
			return err
		}
	} else if _, err := io.CopyN(io.Discard, d.r, offset-d.n); err != nil {
		if err == io.EOF {
			return errNotEnoughPixels
		}
		return err
	}
	d.n = offset

	return nil
}

func (d *decoder) readPixels() error {
	width, height := d.header.Width(), d.header.Height()
	bpp := int(d.header.Info.BitCount) >> 3

	if int64(width)*int64(height) > maxPixels {
		return errTooLarge
	}

	lineSize := width * bpp
	stride := align4(lineSize)

	// When the remaining length is known, fail before allocating anything
	if l, ok := d.r.(interface{ Len() int }); ok {
		if int64(l.Len()) < int64(stride)*int64(height-1)+int64(lineSize) {
			return errNotEnoughPixels
		}
	}

	row := make([]byte, stride)

	d.image = NewImage(width, height)
	if d.header.Info.BitCount == 8 {
		p := d.palette
		d.image.Palette = &p
		d.image.Indexed = d.keepIndices
	}

	// Rows are stored bottom-up
	for y := height - 1; y >= 0; y-- {
		if err := d.read(row[:lineSize]); err != nil {
			if err == io.ErrUnexpectedEOF {
				return errNotEnoughPixels
			}
			return err
		}
		// Tolerate a missing pad on the final stored row
		if err := d.read(row[lineSize:]); err != nil && !(err == io.ErrUnexpectedEOF && y == 0) {
			if err == io.ErrUnexpectedEOF {
				return errNotEnoughPixels
			}
			return err
		}

		pix := d.image.Pix[y*width : (y+1)*width]
		switch bpp {
		case 1:
			for x, i := range row[:lineSize] {
				if d.keepIndices {
					pix[x] = RGB{R: i}
				} else {
					pix[x] = d.palette[i]
				}
			}
		case 3:
			for x := range pix {
				// Stored as BGR triplets
				t := row[x*3:]
				pix[x] = RGB{t[2], t[1], t[0]}
			}
		}
	}

	return nil
}

func (d *decoder) decode(r io.Reader, configOnly bool) error {
	d.r = r

	if err := d.readHeader(); err != nil {
		return err
	}

	if configOnly {
		return nil
	}

	if d.header.Info.BitCount == 8 {
		if err := d.readPalette(); err != nil {
			return err
		}
	}

	if err := d.skipTo(int64(d.header.File.OffBits)); err != nil {
		return err
	}

	return d.readPixels()
}

// Decode reads a bitmap from r and returns it as a top-down Image.
func Decode(r io.Reader, opts ...Option) (*Image, error) {
	var d decoder
	for _, o := range opts {
		o(&d)
	}
	if err := d.decode(r, false); err != nil {
		return nil, err
	}
	return d.image, nil
}

// DecodeHeader reads and validates the bitmap headers from r without
// decoding the pixel data.
func DecodeHeader(r io.Reader) (Header, error) {
	var d decoder
	if err := d.decode(r, true); err != nil {
		return Header{}, err
	}
	return d.header, nil
}

// DecodeConfig returns the color model and dimensions of a bitmap without
// decoding the entire image.
func DecodeConfig(r io.Reader) (image.Config, error) {
	h, err := DecodeHeader(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.RGBAModel,
		Width:      h.Width(),
		Height:     h.Height(),
	}, nil
}
