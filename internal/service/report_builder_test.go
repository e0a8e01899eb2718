package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/healthscore-analysis-server/internal/domain"
)

func TestBuildAllOptimal(t *testing.T) {
	builder := NewReportBuilder()

	tests := []struct {
		name     string
		statuses []domain.Status
		expected bool
	}{
		{"every biomarker optimal", []domain.Status{domain.OPTIMAL, domain.OPTIMAL}, true},
		{"one above optimal", []domain.Status{domain.OPTIMAL, domain.ABOVE_OPTIMAL}, false},
		{"one unknown", []domain.Status{domain.OPTIMAL, domain.UNKNOWN}, false},
		{"no biomarkers", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := make([]domain.ClassifiedBiomarker, len(tt.statuses))
			for i, s := range tt.statuses {
				classified[i] = domain.ClassifiedBiomarker{Status: s}
			}
			result := builder.Build(classified, nil, len(classified))
			assert.Equal(t, tt.expected, result.AllOptimal)
		})
	}
}

func TestBuildEmptyInput(t *testing.T) {
	builder := NewReportBuilder()

	result := builder.Build(nil, nil, 0)
	assert.NotNil(t, result.Biomarkers)
	assert.NotNil(t, result.Detections)
	assert.Empty(t, result.Biomarkers)
	assert.Empty(t, result.Detections)
	assert.False(t, result.AllOptimal)
	assert.Equal(t, 0, result.SourceFileCount)
	assert.False(t, result.GeneratedAt.IsZero())
}

func TestBuildPreservesInputs(t *testing.T) {
	builder := NewReportBuilder()

	classified := []domain.ClassifiedBiomarker{{Name: "Glucose", Status: domain.OPTIMAL}}
	detections := []domain.DiseaseDetection{{ConditionName: "Prediabetes"}}

	result := builder.Build(classified, detections, 3)
	assert.Equal(t, classified, result.Biomarkers)
	assert.Equal(t, detections, result.Detections)
	assert.Equal(t, 3, result.SourceFileCount)
}
