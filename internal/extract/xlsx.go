package extract

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/healthscore-analysis-server/internal/domain"
)

// XLSXExtractor parses spreadsheet report exports. Every sheet is scanned
// with the same header/column heuristics as the CSV extractor.
type XLSXExtractor struct {
	logger *logrus.Logger
}

// NewXLSXExtractor creates a spreadsheet extractor.
func NewXLSXExtractor(logger *logrus.Logger) *XLSXExtractor {
	return &XLSXExtractor{logger: logger}
}

// Extract reads every sheet in workbook order.
func (e *XLSXExtractor) Extract(ctx context.Context, src domain.SourceFile) ([]domain.BiomarkerReading, error) {
	f, err := excelize.OpenReader(bytes.NewReader(src.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.WithError(cerr).Warn("Failed to close workbook")
		}
	}()

	readings := make([]domain.BiomarkerReading, 0)
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"sheet": sheet,
				"error": err.Error(),
			}).Warn("Skipping unreadable sheet")
			continue
		}
		if len(rows) < 2 {
			continue
		}

		nameCol, valCol, unitCol := locateColumns(rows[0])
		for _, row := range rows[1:] {
			if len(row) <= nameCol || len(row) <= valCol {
				continue
			}

			name := strings.TrimSpace(row[nameCol])
			value, err := strconv.ParseFloat(strings.TrimSpace(row[valCol]), 64)
			if name == "" || err != nil {
				continue
			}

			reading := domain.BiomarkerReading{Name: name, Value: value}
			if unitCol >= 0 && len(row) > unitCol {
				reading.Unit = strings.TrimSpace(row[unitCol])
			}
			readings = append(readings, reading)
		}
	}

	return readings, nil
}
