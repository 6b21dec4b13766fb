package layout

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var errEmptyImage = errors.New("empty image data")

// PreparedImage is a photo in a form the document can embed: original JPEG bytes,
// or any other decodable format re-encoded as 8-bit PNG.
type PreparedImage struct {
	Type   string // "JPG" or "PNG"
	Data   []byte
	Width  int
	Height int
}

func (p PreparedImage) Size() ImageSize {
	return ImageSize{Width: float64(p.Width), Height: float64(p.Height)}
}

// DecodeError reports a photo whose bytes could not be turned into an image.
type DecodeError struct {
	Item  int
	Photo int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("item %d photo %d: decode: %v", e.Item, e.Photo, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// PrepareImage fully decodes data so truncated files are caught here rather than
// inside the document writer.
func PrepareImage(data []byte) (PreparedImage, error) {
	if len(data) == 0 {
		return PreparedImage{}, errEmptyImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return PreparedImage{}, err
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return PreparedImage{}, fmt.Errorf("image has no pixels (%dx%d)", b.Dx(), b.Dy())
	}

	if format == "jpeg" {
		return PreparedImage{Type: "JPG", Data: data, Width: b.Dx(), Height: b.Dy()}, nil
	}

	// interlaced or 16-bit PNGs, GIF, WebP, BMP and TIFF all end up as plain PNG
	flat := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), img, b.Min, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, flat); err != nil {
		return PreparedImage{}, fmt.Errorf("re-encode %s as png: %w", format, err)
	}
	return PreparedImage{Type: "PNG", Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}
