package export

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/inspection-reports/internal/entity"
)

// Renderer turns a finished report into document bytes.
type Renderer interface {
	Render(report *entity.Report) ([]byte, error)
}

type Config struct {
	From       string
	Recipients []string
	Subject    string
}

// Service packages rendered reports for download or for sending.
type Service struct {
	renderer Renderer
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(renderer Renderer, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{renderer: renderer, cfg: cfg, logger: logger, now: time.Now}
}

// RenderPDF returns the report document as PDF bytes.
func (s *Service) RenderPDF(ctx context.Context, report *entity.Report) ([]byte, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pdf, err := s.renderer.Render(report)
	if err != nil {
		s.logger.Error("export.pdf.failed", "site_id", report.Header.SiteID, "error", err)
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	s.logger.Info("export.pdf.ok",
		"site_id", report.Header.SiteID,
		"items", len(report.Items),
		"photos", report.PhotoCount(),
		"bytes", len(pdf),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pdf, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename is the download name for a report with the given extension.
func Filename(report *entity.Report, ext string) string {
	parts := []string{"inspection"}
	for _, p := range []string{report.Header.SiteID, report.Header.Date} {
		if p = strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(p), "-"), "-."); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "-") + "." + ext
}

// ExportItemsXLSX returns a workbook (as bytes) listing the report items.
func (s *Service) ExportItemsXLSX(ctx context.Context, report *entity.Report) ([]byte, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Items"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	// Report header block
	write(1, 1, "Site")
	write(2, 1, report.Header.SiteID)
	write(1, 2, "Date")
	write(2, 2, report.Header.Date)
	write(1, 3, "Initial notes")
	write(2, 3, report.Header.InitialNotes)

	const headerRow = 5
	headers := []string{"#", "Type", "Depth (m)", "Status", "Comment", "Photos", "Labels"}
	for i, h := range headers {
		write(i+1, headerRow, h)
	}

	row := headerRow + 1
	for i, it := range report.Items {
		labels := make([]string, 0, len(it.Photos))
		for _, p := range it.Photos {
			if l := strings.TrimSpace(p.Label); l != "" {
				labels = append(labels, l)
			}
		}

		write(1, row, i+1)
		write(2, row, it.Type)
		write(3, row, strings.TrimSpace(it.Depth))
		write(4, row, it.Status)
		write(5, row, truncate(it.Comment, 500))
		write(6, row, len(it.Photos))
		write(7, row, strings.Join(labels, "; "))
		row++
	}

	if entity.HasText(report.ClosingNotes) {
		write(1, row+1, "Closing notes")
		write(2, row+1, report.ClosingNotes)
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 14) // labels / #
	_ = f.SetColWidth(sheet, "B", "B", 22) // type
	_ = f.SetColWidth(sheet, "C", "D", 14) // depth, status
	_ = f.SetColWidth(sheet, "E", "E", 48) // comment
	_ = f.SetColWidth(sheet, "G", "G", 40) // labels

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"site_id", report.Header.SiteID,
		"rows", len(report.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
