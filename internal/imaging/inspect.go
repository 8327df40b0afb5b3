// Package imaging inspects uploaded report photos without decoding full pixel data.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register gif decoder
	_ "image/jpeg" // register jpeg decoder
	_ "image/png"  // register png decoder
	"time"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // register webp decoder
)

// ErrUnsupportedImage is returned for payloads that are not a decodable image.
var ErrUnsupportedImage = errors.New("unsupported image")

// MaxPixels bounds accepted images to roughly 48 megapixels.
const MaxPixels = 48_000_000

// Info describes an uploaded image.
type Info struct {
	Format      string
	MimeType    string
	Width       int
	Height      int
	Orientation int
	TakenAt     *time.Time
}

// DisplaySize returns width and height after applying the EXIF orientation.
func (i Info) DisplaySize() (int, int) {
	if i.Orientation >= 5 && i.Orientation <= 8 {
		return i.Height, i.Width
	}
	return i.Width, i.Height
}

// Inspect reads the header of data and extracts format, dimensions and EXIF hints.
func Inspect(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, fmt.Errorf("%w: empty payload", ErrUnsupportedImage)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("%w: empty dimensions", ErrUnsupportedImage)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return Info{}, fmt.Errorf("%w: %dx%d exceeds pixel limit", ErrUnsupportedImage, cfg.Width, cfg.Height)
	}

	info := Info{
		Format:      format,
		MimeType:    "image/" + format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Orientation: 1,
	}
	if format == "jpeg" {
		readExif(data, &info)
	}
	return info, nil
}

func readExif(data []byte, info *Info) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return
	}
	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil && v >= 1 && v <= 8 {
			info.Orientation = v
		}
	}
	if taken, err := x.DateTime(); err == nil && !taken.IsZero() {
		t := taken.UTC()
		info.TakenAt = &t
	}
}
