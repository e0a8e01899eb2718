package service

import (
	"github.com/sirupsen/logrus"

	"github.com/healthscore-analysis-server/internal/domain"
)

// Aggregator merges the readings from multiple uploaded files into one
// biomarker set, averaging the values of biomarkers that appear in more
// than one source. Labels are canonicalized before merging so "Glucose"
// in one file and "blood glucose" in another land on the same entry.
type Aggregator struct {
	logger *logrus.Logger
	table  domain.ReferenceLookup
}

// NewAggregator creates an aggregator backed by the given lookup.
func NewAggregator(logger *logrus.Logger, table domain.ReferenceLookup) *Aggregator {
	return &Aggregator{
		logger: logger,
		table:  table,
	}
}

// Aggregate merges all sources into one set. The mean is the arithmetic
// average of the raw contributions, independent of source order; only the
// first-seen display order depends on input order. Unrecognized labels are
// kept under a stable normalized key so they still appear in the report.
func (a *Aggregator) Aggregate(sources []domain.SourceReadings) *domain.AggregatedBiomarkerSet {
	set := domain.NewAggregatedBiomarkerSet()

	for _, src := range sources {
		for _, reading := range src.Readings {
			key, recognized := a.table.Canonicalize(reading.Name)
			if key == "" {
				continue
			}
			if !recognized {
				a.logger.WithFields(logrus.Fields{
					"label":  reading.Name,
					"source": src.SourceID,
				}).Debug("Unrecognized biomarker label kept as-is")
			}
			set.Add(key, src.SourceID, reading.Value)
		}
	}

	a.logger.WithFields(logrus.Fields{
		"sources":    len(sources),
		"biomarkers": set.Len(),
	}).Debug("Aggregated biomarker readings")

	return set
}
