package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthscore-analysis-server/internal/domain"
)

func newTestClassifier(t *testing.T) *BiomarkerClassifier {
	t.Helper()
	return NewBiomarkerClassifier(testLogger(), newTestTable(t))
}

func TestClassifyStatuses(t *testing.T) {
	classifier := newTestClassifier(t)

	tests := []struct {
		name     string
		reading  domain.BiomarkerReading
		sex      domain.Sex
		expected domain.Status
	}{
		{"glucose optimal", domain.BiomarkerReading{Name: "glucose", Value: 95}, domain.SEX_UNKNOWN, domain.OPTIMAL},
		{"glucose lower boundary inclusive", domain.BiomarkerReading{Name: "glucose", Value: 70}, domain.SEX_UNKNOWN, domain.OPTIMAL},
		{"glucose upper boundary inclusive", domain.BiomarkerReading{Name: "glucose", Value: 100}, domain.SEX_UNKNOWN, domain.OPTIMAL},
		{"glucose above optimal", domain.BiomarkerReading{Name: "glucose", Value: 110}, domain.SEX_UNKNOWN, domain.ABOVE_OPTIMAL},
		{"glucose above acceptable", domain.BiomarkerReading{Name: "glucose", Value: 126}, domain.SEX_UNKNOWN, domain.ABOVE_ACCEPTABLE},
		{"glucose below acceptable", domain.BiomarkerReading{Name: "glucose", Value: 55}, domain.SEX_UNKNOWN, domain.BELOW_ACCEPTABLE},
		{"cholesterol in slightly-high band", domain.BiomarkerReading{Name: "total_cholesterol", Value: 220}, domain.SEX_UNKNOWN, domain.ABOVE_OPTIMAL},
		{"cholesterol severe", domain.BiomarkerReading{Name: "total_cholesterol", Value: 260}, domain.SEX_UNKNOWN, domain.ABOVE_ACCEPTABLE},
		{"female hemoglobin below acceptable", domain.BiomarkerReading{Name: "hemoglobin", Value: 10.5}, domain.FEMALE, domain.BELOW_ACCEPTABLE},
		{"male hemoglobin same value", domain.BiomarkerReading{Name: "hemoglobin", Value: 10.5}, domain.MALE, domain.BELOW_ACCEPTABLE},
		{"female hemoglobin optimal", domain.BiomarkerReading{Name: "hemoglobin", Value: 13}, domain.FEMALE, domain.OPTIMAL},
		{"male hdl below optimal", domain.BiomarkerReading{Name: "hdl", Value: 37}, domain.MALE, domain.BELOW_OPTIMAL},
		{"female hdl below acceptable", domain.BiomarkerReading{Name: "hdl", Value: 37}, domain.FEMALE, domain.BELOW_ACCEPTABLE},
		{"hdl no upper bound", domain.BiomarkerReading{Name: "hdl", Value: 95}, domain.MALE, domain.OPTIMAL},
		{"unknown biomarker", domain.BiomarkerReading{Name: "XYZ-123", Value: 42}, domain.SEX_UNKNOWN, domain.UNKNOWN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifier.Classify(tt.reading, tt.sex)
			assert.Equal(t, tt.expected, result.Status)
			assert.Equal(t, tt.expected == domain.OPTIMAL, result.IsOptimal)
		})
	}
}

func TestClassifyMessages(t *testing.T) {
	classifier := newTestClassifier(t)

	t.Run("optimal", func(t *testing.T) {
		result := classifier.Classify(domain.BiomarkerReading{Name: "glucose", Value: 95}, domain.SEX_UNKNOWN)
		assert.Equal(t, "This is within optimal range.", result.Message)
	})

	t.Run("above optimal cites range", func(t *testing.T) {
		result := classifier.Classify(domain.BiomarkerReading{Name: "total_cholesterol", Value: 220}, domain.SEX_UNKNOWN)
		assert.Equal(t, "This is above optimal range; acceptable range is <200.", result.Message)
	})

	t.Run("below acceptable cites range", func(t *testing.T) {
		result := classifier.Classify(domain.BiomarkerReading{Name: "hemoglobin", Value: 10.5}, domain.FEMALE)
		assert.Equal(t, "This is below acceptable range; acceptable range is 12-16.", result.Message)
	})

	t.Run("unknown biomarker", func(t *testing.T) {
		result := classifier.Classify(domain.BiomarkerReading{Name: "XYZ-123", Value: 42}, domain.SEX_UNKNOWN)
		assert.Equal(t, "No reference range available.", result.Message)
	})
}

func TestClassifyInvalidValues(t *testing.T) {
	classifier := newTestClassifier(t)

	tests := []struct {
		name  string
		value float64
	}{
		{"nan", math.NaN()},
		{"positive infinity", math.Inf(1)},
		{"negative infinity", math.Inf(-1)},
		{"negative", -10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifier.Classify(domain.BiomarkerReading{Name: "glucose", Value: tt.value}, domain.SEX_UNKNOWN)
			assert.Equal(t, domain.UNKNOWN, result.Status)
			assert.False(t, result.IsOptimal)
			assert.Contains(t, result.Message, "Invalid value")
		})
	}
}

func TestClassifyMetadata(t *testing.T) {
	classifier := newTestClassifier(t)

	result := classifier.Classify(domain.BiomarkerReading{Name: "glucose", Value: 95}, domain.SEX_UNKNOWN)
	assert.Equal(t, "Glucose", result.Name)
	assert.Equal(t, "mg/dL", result.Unit)
	assert.Equal(t, "70-100", result.AcceptableRange)
	assert.Equal(t, "70-100", result.OptimalRange)

	result = classifier.Classify(domain.BiomarkerReading{Name: "total_cholesterol", Value: 150}, domain.SEX_UNKNOWN)
	assert.Equal(t, "Total Cholesterol", result.Name)
	assert.Equal(t, "<200", result.OptimalRange)

	result = classifier.Classify(domain.BiomarkerReading{Name: "hba1c", Value: 5.0}, domain.SEX_UNKNOWN)
	assert.Equal(t, "HbA1c", result.Name)
}

func TestFormatBounds(t *testing.T) {
	f := domain.Float
	assert.Equal(t, "70-100", formatBounds(f(70), f(100)))
	assert.Equal(t, "<200", formatBounds(nil, f(200)))
	assert.Equal(t, ">40", formatBounds(f(40), nil))
	assert.Equal(t, "0.4-4", formatBounds(f(0.4), f(4.0)))
	assert.Equal(t, "", formatBounds(nil, nil))
}

func TestClassifyNeverPanicsOnUnknownName(t *testing.T) {
	classifier := newTestClassifier(t)
	require.NotPanics(t, func() {
		classifier.Classify(domain.BiomarkerReading{Name: "", Value: 1}, domain.SEX_UNKNOWN)
	})
}
