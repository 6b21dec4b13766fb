package layout

import (
	"fmt"

	"github.com/joseph-ayodele/inspection-reports/internal/common"
	"github.com/joseph-ayodele/inspection-reports/constants"
)

// ImageSize is the native pixel size of a photo. A zero size marks a photo that
// could not be decoded.
type ImageSize struct {
	Width  float64
	Height float64
}

func (s ImageSize) valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Slot is where one photo of a row is drawn.
type Slot struct {
	X, Y, W, H float64
}

// Row is the computed placement of a group of photos.
type Row struct {
	Usable     float64
	Spacing    float64
	Width      float64
	GroupWidth float64
	XStart     float64
	Y0         float64
	MaxHeight  float64
	Slots      []Slot
}

// LayoutInvariantError reports a photo count the layout cannot place.
type LayoutInvariantError struct {
	Item   int
	Photos int
}

func (e *LayoutInvariantError) Error() string {
	return fmt.Sprintf("item %d has %d photos, want 0..%d", e.Item, e.Photos, constants.MaxPhotosPerItem)
}

func (e *LayoutInvariantError) Unwrap() error {
	return common.ErrLayoutInvariant
}

// ComputeRow divides the usable width equally between the photos, scales each
// photo to that width keeping its aspect ratio, and centres the group. Sizes that
// are not valid get placeholderAspect (height/width).
func ComputeRow(left, usable, spacing, y0, placeholderAspect float64, sizes []ImageSize) (Row, error) {
	n := len(sizes)
	row := Row{Usable: usable, Spacing: spacing, Y0: y0}
	if n > constants.MaxPhotosPerItem {
		return row, &LayoutInvariantError{Photos: n}
	}
	if n == 0 {
		return row, nil
	}

	w := (usable - float64(n-1)*spacing) / float64(n)
	row.Width = w
	row.GroupWidth = float64(n)*w + float64(n-1)*spacing
	row.XStart = left + (usable-row.GroupWidth)/2

	row.Slots = make([]Slot, n)
	for i, s := range sizes {
		h := w * placeholderAspect
		if s.valid() {
			h = s.Height * (w / s.Width)
		}
		row.Slots[i] = Slot{
			X: row.XStart + float64(i)*(w+spacing),
			Y: y0,
			W: w,
			H: h,
		}
		if h > row.MaxHeight {
			row.MaxHeight = h
		}
	}
	return row, nil
}

// At returns the row moved to a new top edge.
func (r Row) At(y0 float64) Row {
	out := r
	out.Y0 = y0
	out.Slots = make([]Slot, len(r.Slots))
	for i, s := range r.Slots {
		s.Y = y0
		out.Slots[i] = s
	}
	return out
}

// Fit shrinks the row evenly so that no photo is taller than maxHeight. Widths
// stay equal and the group stays centred.
func (r Row) Fit(maxHeight float64) Row {
	if maxHeight <= 0 || r.MaxHeight <= maxHeight {
		return r
	}
	k := maxHeight / r.MaxHeight
	left := r.XStart - (r.Usable-r.GroupWidth)/2
	n := len(r.Slots)

	out := r
	out.Width = r.Width * k
	out.GroupWidth = float64(n)*out.Width + float64(n-1)*r.Spacing
	out.XStart = left + (r.Usable-out.GroupWidth)/2
	out.MaxHeight = 0
	out.Slots = make([]Slot, n)
	for i, s := range r.Slots {
		h := s.H * k
		out.Slots[i] = Slot{X: out.XStart + float64(i)*(out.Width+r.Spacing), Y: s.Y, W: out.Width, H: h}
		if h > out.MaxHeight {
			out.MaxHeight = h
		}
	}
	return out
}
