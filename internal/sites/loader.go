package sites

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/inspection-reports/constants"
)

// DefaultColumn is the header of the identifier column in the site workbook.
const DefaultColumn = "POZO"

var ErrColumnNotFound = errors.New("site column not found")

// Load reads the site list at path. The format is picked by extension:
// xlsx/xlsm workbooks and csv files are read by header column, yaml files hold
// a plain list or a mapping with a "sites" list.
func Load(path, column string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if column == "" {
		column = DefaultColumn
	}
	start := time.Now()

	var (
		ids []string
		err error
	)
	switch ext := constants.NormalizeExt(filepath.Ext(path)); ext {
	case "xlsx", "xlsm":
		ids, err = loadXLSX(path, column)
	case "csv":
		ids, err = loadCSVFile(path, column)
	case "yaml", "yml":
		ids, err = loadYAMLFile(path)
	default:
		return nil, fmt.Errorf("unsupported site list format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("load sites from %s: %w", path, err)
	}

	c := NewCatalog(ids)
	logger.Info("sites.load.ok",
		"path", path,
		"sites", c.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return c, nil
}

func loadXLSX(path, column string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		ids, err := columnValues(rows, column)
		if errors.Is(err, ErrColumnNotFound) {
			continue
		}
		return ids, err
	}
	return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
}

func loadCSVFile(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return loadCSV(f, column)
}

func loadCSV(r io.Reader, column string) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	return columnValues(rows, column)
}

// columnValues finds the header row holding column and returns the cells below it.
func columnValues(rows [][]string, column string) ([]string, error) {
	for r, row := range rows {
		for c, cell := range row {
			if !strings.EqualFold(strings.TrimSpace(cell), column) {
				continue
			}
			var out []string
			for _, below := range rows[r+1:] {
				if c < len(below) {
					out = append(out, below[c])
				}
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
}

func loadYAMLFile(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseYAML(b)
}

func parseYAML(b []byte) ([]string, error) {
	var list []string
	if err := yaml.Unmarshal(b, &list); err == nil {
		return list, nil
	}
	var doc struct {
		Sites []string `yaml:"sites"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return doc.Sites, nil
}
