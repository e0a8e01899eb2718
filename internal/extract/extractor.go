// Package extract turns uploaded report files into raw biomarker readings.
// Each extractor handles one format; the registry dispatches by extension
// and caches results keyed by content hash so identical re-uploads skip
// re-parsing and OCR.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/healthscore-analysis-server/internal/domain"
)

// Extraction failure modes. These surface as EXTRACTION_ERROR to the
// transport layer; a file that parses but yields no readings is not an
// error, it simply contributes nothing.
var (
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	ErrUnreadableFile       = errors.New("file could not be parsed")
	ErrOCRUnavailable       = errors.New("tesseract binary not available")
)

// LabelMatcher resolves a messy free-text label to a canonical biomarker
// identifier. The free-text extractors use it to keep only contexts that
// look like biomarkers; structured extractors pass labels through raw.
type LabelMatcher interface {
	MatchLabel(label string) (string, bool)
}

// Registry dispatches source files to format extractors.
type Registry struct {
	logger     *logrus.Logger
	extractors map[string]domain.Extractor
	cache      *Cache
}

// NewRegistry wires the format extractors from the upload configuration.
// OCR is registered only when enabled and a tesseract binary was found.
func NewRegistry(logger *logrus.Logger, matcher LabelMatcher, cfg *domain.UploadConfig, tesseractPath string) *Registry {
	r := &Registry{
		logger:     logger,
		extractors: make(map[string]domain.Extractor),
	}

	if cfg.CacheSize > 0 {
		r.cache = NewCache(cfg.CacheSize, cfg.CacheTTL)
	}

	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[normalizeExt(ext)] = true
	}

	if allowed["csv"] {
		r.extractors["csv"] = NewCSVExtractor(logger)
	}
	if allowed["xlsx"] {
		r.extractors["xlsx"] = NewXLSXExtractor(logger)
	}
	if allowed["pdf"] {
		r.extractors["pdf"] = NewPDFExtractor(logger, matcher)
	}

	if cfg.OCREnabled && tesseractPath != "" {
		ocr := NewOCRExtractor(logger, matcher, tesseractPath)
		for _, ext := range []string{"png", "jpg", "jpeg"} {
			if allowed[ext] {
				r.extractors[ext] = ocr
			}
		}
	}

	logger.WithField("formats", r.Formats()).Info("Extraction registry initialized")
	return r
}

// Formats returns the registered extensions.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		out = append(out, ext)
	}
	return out
}

// Supported reports whether the extension has a registered extractor.
func (r *Registry) Supported(ext string) bool {
	_, ok := r.extractors[normalizeExt(ext)]
	return ok
}

// Extract dispatches the file to its format extractor, consulting the
// content-hash cache first.
func (r *Registry) Extract(ctx context.Context, src domain.SourceFile) ([]domain.BiomarkerReading, error) {
	ext := normalizeExt(src.Ext)
	extractor, ok := r.extractors[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, src.Ext)
	}

	var key string
	if r.cache != nil {
		key = cacheKey(ext, src.Data)
		if readings, hit := r.cache.Get(key); hit {
			r.logger.WithFields(logrus.Fields{
				"file":     src.Name,
				"readings": len(readings),
			}).Debug("Extraction cache hit")
			return readings, nil
		}
	}

	readings, err := extractor.Extract(ctx, src)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.Add(key, readings)
	}

	r.logger.WithFields(logrus.Fields{
		"file":     src.Name,
		"format":   ext,
		"readings": len(readings),
	}).Info("Extracted biomarker readings")

	return readings, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// FileExt returns the lowercase extension of a filename without the dot,
// or an empty string when there is none.
func FileExt(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}
