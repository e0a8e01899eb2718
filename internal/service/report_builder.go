package service

import (
	"time"

	"github.com/healthscore-analysis-server/internal/domain"
)

// ReportBuilder assembles the terminal AnalysisResult. It adds no decision
// logic beyond the all-optimal summary flag.
type ReportBuilder struct{}

// NewReportBuilder creates a report builder.
func NewReportBuilder() *ReportBuilder {
	return &ReportBuilder{}
}

// Build assembles the result from already-computed parts. AllOptimal is
// true only when at least one biomarker was classified and every one of
// them is optimal; any UNKNOWN entry forces it false.
func (b *ReportBuilder) Build(classified []domain.ClassifiedBiomarker, detections []domain.DiseaseDetection, sourceCount int) *domain.AnalysisResult {
	if classified == nil {
		classified = make([]domain.ClassifiedBiomarker, 0)
	}
	if detections == nil {
		detections = make([]domain.DiseaseDetection, 0)
	}

	allOptimal := len(classified) > 0
	for _, c := range classified {
		if c.Status != domain.OPTIMAL {
			allOptimal = false
			break
		}
	}

	return &domain.AnalysisResult{
		Biomarkers:      classified,
		Detections:      detections,
		AllOptimal:      allOptimal,
		SourceFileCount: sourceCount,
		GeneratedAt:     time.Now().UTC(),
	}
}
