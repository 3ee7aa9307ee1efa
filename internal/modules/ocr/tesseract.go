package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/studylog/core/internal/config"
	"go.uber.org/zap"
)

const tesseractTimeout = 60 * time.Second

// languageTags maps config language codes to tesseract traineddata names.
var languageTags = map[string]string{
	"ko": "kor",
	"en": "eng",
	"ja": "jpn",
	"zh": "chi_sim",
}

// tesseractEngine shells out to the tesseract CLI.
type tesseractEngine struct {
	langArg string
	log     *zap.Logger
}

func newTesseractEngine(cfg config.OCRConfig, log *zap.Logger) *tesseractEngine {
	tags := make([]string, 0, len(cfg.Languages))
	for _, code := range cfg.Languages {
		tag, ok := languageTags[strings.ToLower(strings.TrimSpace(code))]
		if !ok {
			tag = strings.ToLower(strings.TrimSpace(code))
		}
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		tags = []string{"kor", "eng"}
	}
	return &tesseractEngine{langArg: strings.Join(tags, "+"), log: log}
}

func (e *tesseractEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, tesseractTimeout)
	defer cancel()

	var out, stderr bytes.Buffer
	// "stdout" makes tesseract print the recognized text instead of writing a file
	cmd := exec.CommandContext(ctx, "tesseract", imagePath, "stdout", "-l", e.langArg)
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	text := strings.TrimSpace(out.String())
	if e.log != nil {
		e.log.Debug("tesseract ocr", zap.String("image", imagePath), zap.Int("chars", len(text)))
	}
	return text, nil
}
