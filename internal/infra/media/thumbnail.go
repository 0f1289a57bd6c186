package media

import (
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// Thumbnailer turns an uploaded photo or image document into a JPEG
// thumbnail no larger than MaxSide on either side.
type Thumbnailer struct {
	MaxSide int
	Quality int
}

func NewThumbnailer(maxSide int) *Thumbnailer {
	return &Thumbnailer{MaxSide: maxSide, Quality: 90}
}

func (t *Thumbnailer) ToJPEG(r io.Reader, w io.Writer) error {
	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	var img image.Image = src
	if t.MaxSide > 0 {
		b := src.Bounds()
		if b.Dx() > t.MaxSide || b.Dy() > t.MaxSide {
			img = imaging.Fit(src, t.MaxSide, t.MaxSide, imaging.Lanczos)
		}
	}
	q := t.Quality
	if q <= 0 {
		q = 90
	}
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(q))
}
