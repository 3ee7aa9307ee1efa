package pdf

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	pdfinfoBin  = "pdfinfo"
	pdftoppmBin = "pdftoppm"

	renderDPI      = 150
	commandTimeout = 60 * time.Second
)

// PageCount reads the page count from the PDF itself via pdfinfo.
func PageCount(ctx context.Context, path string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, pdfinfoBin, path)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("pdfinfo %s: %w", filepath.Base(path), err)
	}

	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
		if err != nil {
			return 0, fmt.Errorf("pdfinfo pages line %q: %w", line, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("pdfinfo output missing Pages line")
}

// RenderPage rasterizes a single 1-based page to a PNG in outDir and
// returns the image path. The caller owns cleanup of the file.
func RenderPage(ctx context.Context, path string, page int, outDir string) (string, error) {
	if page < 1 {
		return "", fmt.Errorf("page %d out of range", page)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	prefix := filepath.Join(outDir, fmt.Sprintf("page-%d", page))
	cmd := exec.CommandContext(ctx, pdftoppmBin,
		"-png",
		"-r", strconv.Itoa(renderDPI),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-singlefile",
		path, prefix,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftoppm page %d: %w (%s)", page, err, strings.TrimSpace(stderr.String()))
	}

	img := prefix + ".png"
	if _, err := os.Stat(img); err != nil {
		return "", fmt.Errorf("pdftoppm produced no image for page %d: %w", page, err)
	}
	return img, nil
}

// IsAvailable reports whether the poppler tools are on PATH.
func IsAvailable() bool {
	_, err1 := exec.LookPath(pdfinfoBin)
	_, err2 := exec.LookPath(pdftoppmBin)
	return err1 == nil && err2 == nil
}
