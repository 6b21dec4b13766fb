package sites

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}
	path := filepath.Join(t.TempDir(), "pozos.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadXLSX(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"ZONA", "POZO"},
		{"Norte", "P-101"},
		{"Norte", ""},
		{"Sur", "P-202"},
		{"Sur", "P-101"},
		{"Sur", 303},
	})

	c, err := Load(path, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"P-101", "P-202", "303"}, c.IDs())
	assert.True(t, c.Contains("P-202"))
	assert.True(t, c.Contains(" P-202 "))
	assert.False(t, c.Contains("P-999"))
}

func TestLoadXLSXMissingColumn(t *testing.T) {
	path := writeWorkbook(t, [][]any{{"NAME"}, {"x"}})

	_, err := Load(path, "POZO", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestLoadCSV(t *testing.T) {
	ids, err := loadCSV(strings.NewReader("id,site\n1,A-1\n2, B-2\n3\n"), "SITE")
	require.NoError(t, err)
	assert.Equal(t, []string{"A-1", "B-2"}, NewCatalog(ids).IDs())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()

	list := filepath.Join(dir, "list.yaml")
	require.NoError(t, os.WriteFile(list, []byte("- W-1\n- W-2\n"), 0o644))
	c, err := Load(list, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"W-1", "W-2"}, c.IDs())

	mapping := filepath.Join(dir, "map.yml")
	require.NoError(t, os.WriteFile(mapping, []byte("sites:\n  - X-1\n  - X-1\n  - X-2\n"), 0o644))
	c, err = Load(mapping, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"X-1", "X-2"}, c.IDs())
}

func TestLoadUnsupported(t *testing.T) {
	_, err := Load("sites.txt", "", nil)
	require.Error(t, err)
}

func TestCatalogIDsIsACopy(t *testing.T) {
	c := NewCatalog([]string{"a", "b"})
	ids := c.IDs()
	ids[0] = "z"
	assert.Equal(t, []string{"a", "b"}, c.IDs())

	var nilCatalog *Catalog
	assert.Equal(t, 0, nilCatalog.Len())
	assert.False(t, nilCatalog.Contains("a"))
}
