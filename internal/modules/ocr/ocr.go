package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/studylog/core/internal/config"
	"go.uber.org/zap"
)

// Engine extracts text from a rendered slide image.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// New selects the configured OCR engine.
func New(cfg config.OCRConfig, log *zap.Logger) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "vision", "google", "gcp":
		return newVisionEngine(cfg, log)
	case "tesseract", "":
		return newTesseractEngine(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}
}
