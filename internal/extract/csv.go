package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/healthscore-analysis-server/internal/domain"
)

// CSVExtractor parses delimited name/value report exports. The delimiter
// is sniffed from the first line and the name/value columns are located by
// header, falling back to the first two columns.
type CSVExtractor struct {
	logger *logrus.Logger
}

// NewCSVExtractor creates a CSV extractor.
func NewCSVExtractor(logger *logrus.Logger) *CSVExtractor {
	return &CSVExtractor{logger: logger}
}

var (
	nameHeaders = map[string]bool{"biomarker": true, "parameter": true, "name": true, "test": true}
	valHeaders  = map[string]bool{"value": true, "result": true, "level": true}
	unitHeaders = map[string]bool{"unit": true, "units": true}
)

// Extract reads all rows, skipping any that do not parse as a numeric
// value. A well-formed file with no numeric rows yields an empty slice.
func (e *CSVExtractor) Extract(ctx context.Context, src domain.SourceFile) ([]domain.BiomarkerReading, error) {
	reader := csv.NewReader(bytes.NewReader(src.Data))
	reader.Comma = sniffDelimiter(src.Data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return []domain.BiomarkerReading{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	nameCol, valCol, unitCol := locateColumns(header)

	readings := make([]domain.BiomarkerReading, 0)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed rows are skipped, not fatal; lab exports are messy.
			continue
		}
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

	return readings, nil
}

// locateColumns finds the name/value/unit columns by header, defaulting to
// the first two columns and no unit column.
func locateColumns(header []string) (nameCol, valCol, unitCol int) {
	nameCol, valCol, unitCol = 0, 1, -1
	for i, col := range header {
		switch key := strings.ToLower(strings.TrimSpace(col)); {
		case nameHeaders[key]:
			nameCol = i
		case valHeaders[key]:
			valCol = i
		case unitHeaders[key]:
			unitCol = i
		}
	}
	return nameCol, valCol, unitCol
}

// sniffDelimiter picks the delimiter that appears most in the first line.
func sniffDelimiter(data []byte) rune {
	line := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		line = data[:idx]
	}

	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, cand := range []byte{';', '\t', '|'} {
		if n := bytes.Count(line, []byte{cand}); n > bestCount {
			best, bestCount = rune(cand), n
		}
	}
	return best
}
