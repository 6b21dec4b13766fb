package photos

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

var heifBrands = map[string]struct{}{
	"heic": {}, "heix": {}, "hevc": {}, "hevx": {},
	"heim": {}, "heis": {}, "mif1": {}, "msf1": {},
}

// IsHEIC sniffs the ISO-BMFF ftyp box for a HEIF/HEIC major brand.
func IsHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	_, ok := heifBrands[string(data[8:12])]
	return ok
}

// convertHEICtoPNG converts HEIC/HEIF bytes to PNG bytes.
// If cacheDir and hashHex are non-empty the PNG is persisted (and reused) at
//
//	{cacheDir}/{hashHex}.png
func convertHEICtoPNG(
	ctx context.Context,
	r Runner,
	logger *slog.Logger,
	converter string,
	data []byte,
	cacheDir string,
	hashHex string,
) ([]byte, error) {
	var cached string
	if cacheDir != "" && hashHex != "" {
		cached = filepath.Join(cacheDir, hashHex+".png")
		if b, err := os.ReadFile(cached); err == nil && len(b) > 0 {
			logger.Debug("photos.heic.cache_hit", "cache", cached)
			return b, nil
		}
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return nil, err
		}
	}

	tmpDir, err := os.MkdirTemp("", "inspection-heic-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	c := Conversion{
		Converter: converter,
		Input:     filepath.Join(tmpDir, "photo.heic"),
		Output:    filepath.Join(tmpDir, "photo.png"),
		Hash:      hashHex,
	}
	if _, err := c.Args(); err != nil {
		return nil, err
	}
	if err := os.WriteFile(c.Input, data, 0o600); err != nil {
		return nil, err
	}
	if errb, err := r.Convert(ctx, logger, c); err != nil {
		return nil, fmt.Errorf("%s failed: %w (%s)", converter, err, truncate(string(errb), 512))
	}

	b, err := os.ReadFile(c.Output)
	if err != nil {
		return nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}

	if cached != "" {
		if err := writeCacheFile(cacheDir, cached, b); err != nil {
			logger.Warn("photos.heic.cache_failed", "cache", cached, "error", err)
		} else {
			logger.Debug("photos.heic.cached", "cache", cached)
		}
	}
	return b, nil
}

// writeCacheFile writes b next to path and renames it into place, so readers
// see either no file or the complete PNG.
func writeCacheFile(dir, path string, b []byte) error {
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
