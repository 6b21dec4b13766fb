package layout

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

// Document is the paginated writing surface the engine drives.
type Document interface {
	PageSize() (w, h float64)
	Margins() (left, top, right float64)
	PageBreakTrigger() float64
	PageNo() int
	AddPage()
	SetFont(style string, size float64)
	// Cell writes a single full-width line and moves to the next line.
	Cell(h float64, text string)
	// MultiCell writes wrapped text of width w starting at the current position.
	MultiCell(w, h float64, text, align string)
	Ln(h float64)
	GetXY() (x, y float64)
	SetXY(x, y float64)
	SplitText(text string, w float64) []string
	RegisterImage(name string, img PreparedImage) error
	// Image draws a registered image of width w; the height follows its aspect ratio.
	Image(name string, x, y, w float64)
	Placeholder(x, y, w, h float64, text string)
	Output(w io.Writer) error
}

type pdfDocument struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	cfg    Config
	family string
}

func newPDFDocument(cfg Config, created time.Time, title string) *pdfDocument {
	pdf := fpdf.New(cfg.Orientation, cfg.Unit, cfg.PageSize, "")
	pdf.SetMargins(cfg.MarginLeft, cfg.MarginTop, cfg.MarginRight)
	pdf.SetAutoPageBreak(true, cfg.BreakMargin)
	pdf.SetCreationDate(created)
	pdf.SetModificationDate(created)
	pdf.SetCatalogSort(true)
	pdf.SetCreator("inspection-reports", true)
	pdf.SetTitle(title, true)
	pdf.AliasNbPages("")

	d := &pdfDocument{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		cfg:    cfg,
		family: cfg.FontFamily,
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(d.family, "I", 8)
		pdf.CellFormat(0, 8, d.tr(fmt.Sprintf("%s %d/{nb}", cfg.Labels.Page, pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	return d
}

func (d *pdfDocument) PageSize() (float64, float64) {
	return d.pdf.GetPageSize()
}

func (d *pdfDocument) Margins() (float64, float64, float64) {
	return d.cfg.MarginLeft, d.cfg.MarginTop, d.cfg.MarginRight
}

func (d *pdfDocument) PageBreakTrigger() float64 {
	_, h := d.pdf.GetPageSize()
	return h - d.cfg.BreakMargin
}

func (d *pdfDocument) PageNo() int {
	return d.pdf.PageNo()
}

func (d *pdfDocument) AddPage() {
	d.pdf.AddPage()
}

func (d *pdfDocument) SetFont(style string, size float64) {
	d.pdf.SetFont(d.family, style, size)
}

func (d *pdfDocument) Cell(h float64, text string) {
	d.pdf.CellFormat(0, h, d.tr(text), "", 1, "L", false, 0, "")
}

func (d *pdfDocument) MultiCell(w, h float64, text, align string) {
	d.pdf.MultiCell(w, h, d.tr(text), "", align, false)
}

func (d *pdfDocument) Ln(h float64) {
	d.pdf.Ln(h)
}

func (d *pdfDocument) GetXY() (float64, float64) {
	return d.pdf.GetXY()
}

func (d *pdfDocument) SetXY(x, y float64) {
	d.pdf.SetXY(x, y)
}

func (d *pdfDocument) SplitText(text string, w float64) []string {
	return d.pdf.SplitText(d.tr(text), w)
}

// RegisterImage embeds the image under name. A rejected image leaves the
// document usable; the error is returned instead of poisoning later calls.
func (d *pdfDocument) RegisterImage(name string, img PreparedImage) error {
	d.pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: img.Type}, bytes.NewReader(img.Data))
	if d.pdf.Err() {
		err := d.pdf.Error()
		d.pdf.ClearError()
		return err
	}
	return nil
}

func (d *pdfDocument) Image(name string, x, y, w float64) {
	d.pdf.ImageOptions(name, x, y, w, 0, false, fpdf.ImageOptions{}, 0, "")
}

func (d *pdfDocument) Placeholder(x, y, w, h float64, text string) {
	d.pdf.SetDrawColor(150, 150, 150)
	d.pdf.SetFillColor(235, 235, 235)
	d.pdf.Rect(x, y, w, h, "FD")
	d.pdf.SetTextColor(110, 110, 110)
	d.pdf.SetXY(x, y+h/2-3)
	d.pdf.CellFormat(w, 6, d.tr(text), "", 0, "C", false, 0, "")
	d.pdf.SetDrawColor(0, 0, 0)
	d.pdf.SetFillColor(255, 255, 255)
	d.pdf.SetTextColor(0, 0, 0)
}

func (d *pdfDocument) Output(w io.Writer) error {
	return d.pdf.Output(w)
}
