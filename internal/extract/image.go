package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/healthscore-analysis-server/internal/domain"
)

// Page segmentation fallbacks tried in order until one produces text.
// The default mode handles most report photos; the explicit modes recover
// single-block, single-column and auto-segmented layouts.
var ocrConfigs = [][]string{
	nil,
	{"--psm", "6"},
	{"--psm", "4"},
	{"--psm", "3"},
	{"--psm", "1"},
}

// OCRExtractor shells out to the host tesseract binary to read report
// photos and screenshots, then scans the recognized text.
type OCRExtractor struct {
	logger        *logrus.Logger
	matcher       LabelMatcher
	tesseractPath string
}

// NewOCRExtractor creates an OCR extractor bound to a tesseract binary.
func NewOCRExtractor(logger *logrus.Logger, matcher LabelMatcher, tesseractPath string) *OCRExtractor {
	return &OCRExtractor{
		logger:        logger,
		matcher:       matcher,
		tesseractPath: tesseractPath,
	}
}

// Extract runs tesseract over the image with each segmentation config
// until one yields text. An image where every pass comes back empty
// yields no readings rather than an error.
func (e *OCRExtractor) Extract(ctx context.Context, src domain.SourceFile) ([]domain.BiomarkerReading, error) {
	if e.tesseractPath == "" {
		return nil, ErrOCRUnavailable
	}

	tmp, err := os.CreateTemp("", "ocr-*."+normalizeExt(src.Ext))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	defer func() {
		if rerr := os.Remove(tmp.Name()); rerr != nil {
			e.logger.WithError(rerr).Warn("Failed to remove OCR temp file")
		}
	}()

	if _, err := tmp.Write(src.Data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	var lastErr error
	for _, cfg := range ocrConfigs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := e.runTesseract(ctx, tmp.Name(), cfg)
		if err != nil {
			lastErr = err
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		readings := scanReadings(text, e.matcher)
		e.logger.WithFields(logrus.Fields{
			"file":     src.Name,
			"config":   strings.Join(cfg, " "),
			"readings": len(readings),
		}).Debug("OCR pass produced text")
		return readings, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, lastErr)
	}
	return []domain.BiomarkerReading{}, nil
}

func (e *OCRExtractor) runTesseract(ctx context.Context, imagePath string, cfg []string) (string, error) {
	args := append([]string{filepath.Clean(imagePath), "stdout"}, cfg...)
	cmd := exec.CommandContext(ctx, e.tesseractPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract %s: %v: %s", strings.Join(cfg, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
