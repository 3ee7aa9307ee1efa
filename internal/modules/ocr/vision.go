package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/apiv1"
	"github.com/studylog/core/internal/config"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// visionEngine wraps the Cloud Vision document text detector.
type visionEngine struct {
	client *vision.ImageAnnotatorClient
	log    *zap.Logger
}

func newVisionEngine(cfg config.OCRConfig, log *zap.Logger) (*visionEngine, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if creds := strings.TrimSpace(cfg.CredentialsFile); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &visionEngine{client: client, log: log}, nil
}

func (e *visionEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, err := vision.NewImageFromReader(f)
	if err != nil {
		return "", fmt.Errorf("vision image: %w", err)
	}

	doc, err := e.client.DetectDocumentText(ctx, img, nil)
	if err != nil {
		return "", fmt.Errorf("vision detect: %w", err)
	}
	if doc == nil {
		return "", nil
	}
	text := strings.TrimSpace(doc.GetText())
	if e.log != nil {
		e.log.Debug("vision ocr", zap.String("image", imagePath), zap.Int("chars", len(text)))
	}
	return text, nil
}

// Close releases the underlying gRPC connection.
func (e *visionEngine) Close() error {
	return e.client.Close()
}
