// Package photos prepares uploaded photos before they are stored in a session.
package photos

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/inspection-reports/internal/common"
)

type Config struct {
	HeicConverter    string
	ArtifactCacheDir string
	MaxBytes         int64
}

// Normalizer converts formats the document writer cannot read into ones it can.
type Normalizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

type Option func(*Normalizer)

// WithRunner replaces the command runner, used by tests.
func WithRunner(r Runner) Option {
	return func(n *Normalizer) { n.runner = r }
}

func NewNormalizer(cfg Config, logger *slog.Logger, opts ...Option) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Normalizer{cfg: cfg, runner: execRunner{}, logger: logger}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns data unchanged unless it is HEIC/HEIF, which is converted to
// PNG. On conversion failure the error is returned and callers may keep the raw
// bytes; the report renders a placeholder for them.
func (n *Normalizer) Normalize(ctx context.Context, data []byte) ([]byte, error) {
	if n.cfg.MaxBytes > 0 && int64(len(data)) > n.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: photo is %d bytes, limit is %d", common.ErrInvalidInput, len(data), n.cfg.MaxBytes)
	}
	if !IsHEIC(data) {
		return data, nil
	}

	sum := sha256.Sum256(data)
	hashHex := hex.EncodeToString(sum[:])
	out, err := convertHEICtoPNG(ctx, n.runner, n.logger, n.cfg.HeicConverter, data, n.cfg.ArtifactCacheDir, hashHex)
	if err != nil {
		n.logger.Warn("photos.heic.convert_failed", "sha256", hashHex, "converter", n.cfg.HeicConverter, "error", err)
		return nil, err
	}
	n.logger.Debug("photos.heic.converted", "sha256", hashHex, "bytes_in", len(data), "bytes_out", len(out))
	return out, nil
}
