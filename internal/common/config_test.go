package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/inspection-reports/constants"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8000", cfg.Server.HTTPAddr)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "POZO", cfg.Sites.Column)
	assert.Equal(t, constants.DefaultMaxPhotoMB, cfg.Photos.MaxMB)
	assert.Equal(t, "en", cfg.Report.Lang)
	assert.Empty(t, cfg.Export.Recipients)
}

func TestLoadConfigEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
http:
  addr: ":8100"
report:
  lang: ES
export:
  recipients:
    - a@example.com
    - b@example.com
`), 0o644))

	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("HEIC_CONVERTER", "sips")
	t.Setenv("MAX_PHOTO_MB", "4")

	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, ":8100", cfg.Server.HTTPAddr)
	assert.Equal(t, "es", cfg.Report.Lang)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Export.Recipients)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "sips", cfg.Photos.HeicConverter)
	assert.Equal(t, 4, cfg.Photos.MaxMB)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestStringList(t *testing.T) {
	assert.Nil(t, StringList(nil))
	assert.Equal(t, []string{"a", "b"}, StringList(" a, ,b "))
	assert.Equal(t, []string{"a"}, StringList([]any{"a", " "}))
	assert.Equal(t, []string{"x", "y"}, StringList([]string{"x", "y"}))
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	cfg.Session.TTL = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)

	cfg.Session.TTL = time.Hour
	cfg.Sites.File = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
}
