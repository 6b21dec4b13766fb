// Package layout renders a finished inspection report into a paginated PDF.
//
// The engine is a pure function of the report: it keeps no state between calls,
// and the same report always produces the same bytes.
package layout

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/inspection-reports/constants"
	"github.com/joseph-ayodele/inspection-reports/internal/common"
	"github.com/joseph-ayodele/inspection-reports/internal/entity"
)

// Engine lays out reports onto documents built by newDocument.
type Engine struct {
	cfg         Config
	logger      *slog.Logger
	newDocument func(cfg Config, created time.Time, title string) Document
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		logger: logger,
		newDocument: func(cfg Config, created time.Time, title string) Document {
			return newPDFDocument(cfg, created, title)
		},
	}
}

// Render produces the PDF bytes for report. Undecodable photos are replaced by
// placeholders; a photo count outside 0..MaxPhotosPerItem fails the whole call
// before anything is written.
func (e *Engine) Render(report *entity.Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("%w: nil report", common.ErrInvalidInput)
	}
	if err := CheckInvariants(report); err != nil {
		return nil, err
	}
	start := time.Now()

	title := fmt.Sprintf("%s - %s", e.cfg.Labels.Title, report.Header.SiteID)
	doc := e.newDocument(e.cfg, documentDate(report.Header.Date), title)
	if err := e.renderTo(doc, report); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	e.logger.Debug("layout.render.ok",
		"site_id", report.Header.SiteID,
		"items", len(report.Items),
		"photos", report.PhotoCount(),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// CheckInvariants rejects reports the glue layer should never have built.
func CheckInvariants(report *entity.Report) error {
	for i, it := range report.Items {
		if n := len(it.Photos); n > constants.MaxPhotosPerItem {
			return &LayoutInvariantError{Item: i + 1, Photos: n}
		}
	}
	return nil
}

// documentDate pins the document metadata to the report date so output is
// reproducible.
func documentDate(date string) time.Time {
	if t, err := time.Parse(common.DateLayout, strings.TrimSpace(date)); err == nil {
		return t
	}
	return time.Unix(0, 0).UTC()
}

func (e *Engine) renderTo(doc Document, report *entity.Report) error {
	doc.AddPage()
	e.writeHeader(doc, &report.Header)

	for i := range report.Items {
		if err := e.writeItem(doc, i+1, &report.Items[i]); err != nil {
			return err
		}
	}

	if entity.HasText(report.ClosingNotes) {
		doc.SetFont("", 11)
		doc.MultiCell(0, 6, fmt.Sprintf("%s: %s", e.cfg.Labels.ClosingNotes, report.ClosingNotes), "L")
	}
	return nil
}

func (e *Engine) writeHeader(doc Document, h *entity.ReportHeader) {
	l := e.cfg.Labels
	doc.SetFont("B", 14)
	doc.Cell(10, fmt.Sprintf("%s - %s: %s", l.Title, l.Site, h.SiteID))
	doc.SetFont("", 12)
	doc.Cell(8, fmt.Sprintf("%s: %s", l.Date, h.Date))
	if entity.HasText(h.InitialNotes) {
		doc.SetFont("", 11)
		doc.MultiCell(0, 6, fmt.Sprintf("%s: %s", l.InitialNotes, h.InitialNotes), "L")
	}
	doc.Ln(4)
}

func (e *Engine) writeItem(doc Document, n int, it *entity.InspectionItem) error {
	l := e.cfg.Labels
	doc.SetFont("B", 12)
	doc.MultiCell(0, 8, fmt.Sprintf("%s %d: %s - %s%s - %s", l.Item, n, it.Type, strings.TrimSpace(it.Depth), l.DepthUnit, it.Status), "L")
	doc.SetFont("", 11)
	if entity.HasText(it.Comment) {
		doc.MultiCell(0, 6, fmt.Sprintf("%s: %s", l.Comment, it.Comment), "L")
	}

	if len(it.Photos) == 0 {
		doc.Ln(e.cfg.EmptyItemSpacing)
		return nil
	}
	return e.writePhotoBlock(doc, n, it.Photos)
}

func imageName(item, photo int) string {
	return fmt.Sprintf("item-%03d-photo-%d", item, photo)
}

// writePhotoBlock places the photos of one item side by side with their labels
// underneath, then leaves the cursor below whatever ended up lowest.
func (e *Engine) writePhotoBlock(doc Document, item int, photos []entity.Photo) error {
	left, top, right := doc.Margins()
	pageW, _ := doc.PageSize()
	usable := pageW - left - right

	ok := make([]bool, len(photos))
	sizes := make([]ImageSize, len(photos))
	for j, p := range photos {
		img, err := PrepareImage(p.Data)
		if err == nil {
			err = doc.RegisterImage(imageName(item, j), img)
		}
		if err != nil {
			derr := &DecodeError{Item: item, Photo: j + 1, Err: err}
			e.logger.Warn("layout.photo.decode_failed", "item", item, "photo", j+1, "label", p.Label, "error", derr)
			continue
		}
		ok[j] = true
		sizes[j] = img.Size()
	}

	_, y0 := doc.GetXY()
	row, err := ComputeRow(left, usable, e.cfg.Spacing, y0, e.cfg.PlaceholderAspect, sizes)
	if err != nil {
		var lie *LayoutInvariantError
		if errors.As(err, &lie) {
			lie.Item = item
		}
		return err
	}

	doc.SetFont("", e.cfg.LabelFontSize)
	printable := doc.PageBreakTrigger() - top
	row = row.Fit(printable - e.cfg.LabelGap - e.cfg.LabelLineHeight - e.cfg.BlockPadding)
	if y0+e.blockHeight(doc, row, photos) > doc.PageBreakTrigger() && y0 > top+0.01 {
		doc.AddPage()
		_, y0 = doc.GetXY()
		row = row.At(y0)
	}

	for j, slot := range row.Slots {
		if ok[j] {
			doc.Image(imageName(item, j), slot.X, slot.Y, slot.W)
		} else {
			doc.Placeholder(slot.X, slot.Y, slot.W, slot.H, e.cfg.Labels.ImageUnavailable)
		}
	}

	labelY := y0 + row.MaxHeight + e.cfg.LabelGap
	lowest := y0 + row.MaxHeight
	if lines := e.labelLines(doc, row, photos); lines > 0 &&
		labelY+float64(lines)*e.cfg.LabelLineHeight > doc.PageBreakTrigger() {
		// the labels of a row stay side by side, so they move to the next page together
		doc.AddPage()
		_, labelY = doc.GetXY()
		lowest = labelY
	}
	page := doc.PageNo()
	for j, slot := range row.Slots {
		label := strings.TrimSpace(photos[j].Label)
		if label == "" {
			continue
		}
		doc.SetXY(slot.X, labelY)
		doc.MultiCell(slot.W, e.cfg.LabelLineHeight, label, "C")
		_, y := doc.GetXY()
		if p := doc.PageNo(); p != page {
			// a label longer than a page; the rest continue below it
			page = p
			labelY = y
			lowest = y
			continue
		}
		if y > lowest {
			lowest = y
		}
	}

	doc.SetXY(left, lowest+e.cfg.BlockPadding)
	doc.SetFont("", 11)
	return nil
}

// blockHeight estimates the vertical space of a photo row including wrapped labels.
func (e *Engine) blockHeight(doc Document, row Row, photos []entity.Photo) float64 {
	lines := e.labelLines(doc, row, photos)
	return row.MaxHeight + e.cfg.LabelGap + float64(lines)*e.cfg.LabelLineHeight + e.cfg.BlockPadding
}

// labelLines is the line count of the longest wrapped label in the row.
func (e *Engine) labelLines(doc Document, row Row, photos []entity.Photo) int {
	lines := 0
	for j, slot := range row.Slots {
		label := strings.TrimSpace(photos[j].Label)
		if label == "" {
			continue
		}
		if n := len(doc.SplitText(label, slot.W)); n > lines {
			lines = n
		}
	}
	return lines
}
