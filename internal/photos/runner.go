package photos

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Conversion is one invocation of an external HEIC converter.
type Conversion struct {
	Converter string // heif-convert, magick or sips
	Input     string
	Output    string
	// Hash is the sha256 of the source photo; it ties converter logs to the upload.
	Hash string
}

// Args returns the command line for the configured converter.
func (c Conversion) Args() ([]string, error) {
	switch c.Converter {
	case "heif-convert", "magick":
		return []string{c.Input, c.Output}, nil
	case "sips":
		return []string{"-s", "format", "png", c.Input, "--out", c.Output}, nil
	default:
		return nil, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}
}

// Runner lets us stub external commands in tests.
type Runner interface {
	Convert(ctx context.Context, logger *slog.Logger, c Conversion) (stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Convert(ctx context.Context, logger *slog.Logger, c Conversion) ([]byte, error) {
	args, err := c.Args()
	if err != nil {
		return nil, err
	}
	log := logger.With("converter", c.Converter, "sha256", c.Hash)
	start := time.Now()

	cmd := exec.CommandContext(ctx, c.Converter, args...)
	var errb bytes.Buffer
	cmd.Stderr = &errb

	err = cmd.Run()
	dur := time.Since(start)
	if err != nil {
		log.Error("photos.heic.exec_failed",
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 8<<10),
		)
		return errb.Bytes(), err
	}
	log.Debug("photos.heic.exec_ok", "duration_ms", dur.Milliseconds())
	return errb.Bytes(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
