// Package service implements the biomarker evaluation engine: reference
// range lookup, classification, multi-source aggregation, disease rule
// evaluation and report assembly.
package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/healthscore-analysis-server/internal/domain"
)

// AnalyzerService orchestrates one analysis request: aggregate the
// extracted readings, classify every averaged biomarker, run the disease
// rule library and assemble the result. Each request is independent; the
// service holds only immutable tables and is safe for concurrent use.
type AnalyzerService struct {
	logger     *logrus.Logger
	table      *ReferenceTable
	classifier *BiomarkerClassifier
	aggregator *Aggregator
	ruleEngine *DiseaseRuleEngine
	builder    *ReportBuilder
}

// NewAnalyzerService wires the engine from a rule library.
func NewAnalyzerService(logger *logrus.Logger, lib *RuleLibrary) (*AnalyzerService, error) {
	table, err := NewReferenceTable(logger, lib)
	if err != nil {
		return nil, err
	}

	return &AnalyzerService{
		logger:     logger,
		table:      table,
		classifier: NewBiomarkerClassifier(logger, table),
		aggregator: NewAggregator(logger, table),
		ruleEngine: NewDiseaseRuleEngine(logger, lib.Rules),
		builder:    NewReportBuilder(),
	}, nil
}

// ReferenceTable exposes the lookup for collaborators that need label
// matching, such as the free-text extractor.
func (s *AnalyzerService) ReferenceTable() *ReferenceTable {
	return s.table
}

// Analyze evaluates the readings extracted from one batch of uploaded
// files. Empty input yields an empty result rather than an error.
func (s *AnalyzerService) Analyze(ctx context.Context, sources []domain.SourceReadings, sex domain.Sex) (*domain.AnalysisResult, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := s.aggregator.Aggregate(sources)

	classified := make([]domain.ClassifiedBiomarker, 0, set.Len())
	for _, key := range set.Order {
		entry := set.Entries[key]
		c := s.classifier.Classify(domain.BiomarkerReading{
			Name:  key,
			Value: entry.Mean,
		}, sex)
		c.SourceCount = entry.Count
		c.Sources = entry.Sources
		classified = append(classified, c)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detections := s.ruleEngine.Evaluate(set)
	result := s.builder.Build(classified, detections, len(sources))

	s.logger.WithFields(logrus.Fields{
		"sources":     len(sources),
		"biomarkers":  len(classified),
		"detections":  len(detections),
		"all_optimal": result.AllOptimal,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Analysis completed")

	return result, nil
}
