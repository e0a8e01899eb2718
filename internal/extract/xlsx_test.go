package extract

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/healthscore-analysis-server/internal/domain"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())
	return buf.Bytes()
}

func TestXLSXExtract(t *testing.T) {
	e := NewXLSXExtractor(testLogger())

	data := buildWorkbook(t, [][]interface{}{
		{"Biomarker", "Value", "Unit"},
		{"Glucose", 95, "mg/dL"},
		{"TSH", 2.5, "mIU/L"},
		{"Notes", "fasting sample", ""},
	})

	readings, err := e.Extract(context.Background(), domain.SourceFile{Name: "report.xlsx", Ext: "xlsx", Data: data})
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, "Glucose", readings[0].Name)
	assert.Equal(t, 95.0, readings[0].Value)
	assert.Equal(t, "mg/dL", readings[0].Unit)
	assert.Equal(t, "TSH", readings[1].Name)
}

func TestXLSXExtractFallbackColumns(t *testing.T) {
	e := NewXLSXExtractor(testLogger())

	data := buildWorkbook(t, [][]interface{}{
		{"col_a", "col_b"},
		{"hemoglobin", 14.2},
	})

	readings, err := e.Extract(context.Background(), domain.SourceFile{Name: "r.xlsx", Ext: "xlsx", Data: data})
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, "hemoglobin", readings[0].Name)
	assert.Equal(t, 14.2, readings[0].Value)
}

func TestXLSXExtractUnreadable(t *testing.T) {
	e := NewXLSXExtractor(testLogger())

	_, err := e.Extract(context.Background(), domain.SourceFile{Name: "r.xlsx", Ext: "xlsx", Data: []byte("not a workbook")})
	assert.ErrorIs(t, err, ErrUnreadableFile)
}
