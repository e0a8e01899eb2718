package extract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"

	"github.com/healthscore-analysis-server/internal/domain"
)

// PDFExtractor pulls the plain text out of a PDF report and scans it for
// recognizable biomarker readings.
type PDFExtractor struct {
	logger  *logrus.Logger
	matcher LabelMatcher
}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor(logger *logrus.Logger, matcher LabelMatcher) *PDFExtractor {
	return &PDFExtractor{logger: logger, matcher: matcher}
}

// Extract reads the document text. Scanned PDFs without a text layer yield
// no readings rather than an error.
func (e *PDFExtractor) Extract(ctx context.Context, src domain.SourceFile) ([]domain.BiomarkerReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(bytes.NewReader(src.Data), int64(len(src.Data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	readings := scanReadings(buf.String(), e.matcher)
	e.logger.WithFields(logrus.Fields{
		"file":     src.Name,
		"chars":    buf.Len(),
		"readings": len(readings),
	}).Debug("Scanned PDF text")

	return readings, nil
}
