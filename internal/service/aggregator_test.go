package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthscore-analysis-server/internal/domain"
)

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	return NewAggregator(testLogger(), newTestTable(t))
}

func TestAggregateAveragesAcrossSources(t *testing.T) {
	agg := newTestAggregator(t)

	sources := []domain.SourceReadings{
		{SourceID: "report-a.csv", Readings: []domain.BiomarkerReading{
			{Name: "glucose", Value: 90},
			{Name: "tsh", Value: 2.0},
		}},
		{SourceID: "report-b.csv", Readings: []domain.BiomarkerReading{
			{Name: "glucose", Value: 100},
		}},
	}

	set := agg.Aggregate(sources)
	require.Equal(t, 2, set.Len())

	glucose := set.Entries["glucose"]
	require.NotNil(t, glucose)
	assert.Equal(t, 95.0, glucose.Mean)
	assert.Equal(t, 2, glucose.Count)
	assert.Equal(t, []domain.SourceValue{
		{SourceID: "report-a.csv", Value: 90},
		{SourceID: "report-b.csv", Value: 100},
	}, glucose.Sources)

	tsh := set.Entries["tsh"]
	require.NotNil(t, tsh)
	assert.Equal(t, 2.0, tsh.Mean)
	assert.Equal(t, 1, tsh.Count)
}

func TestAggregateMergesSynonyms(t *testing.T) {
	agg := newTestAggregator(t)

	sources := []domain.SourceReadings{
		{SourceID: "a", Readings: []domain.BiomarkerReading{{Name: "Glucose", Value: 80}}},
		{SourceID: "b", Readings: []domain.BiomarkerReading{{Name: "blood glucose", Value: 120}}},
	}

	set := agg.Aggregate(sources)
	require.Equal(t, 1, set.Len())

	v, ok := set.Value("glucose")
	require.True(t, ok)
	assert.Equal(t, 100.0, v)
}

func TestAggregateMeanIsOrderIndependent(t *testing.T) {
	agg := newTestAggregator(t)

	forward := []domain.SourceReadings{
		{SourceID: "a", Readings: []domain.BiomarkerReading{{Name: "glucose", Value: 88}}},
		{SourceID: "b", Readings: []domain.BiomarkerReading{{Name: "glucose", Value: 104}}},
		{SourceID: "c", Readings: []domain.BiomarkerReading{{Name: "glucose", Value: 96}}},
	}
	reversed := []domain.SourceReadings{forward[2], forward[1], forward[0]}

	a, _ := agg.Aggregate(forward).Value("glucose")
	b, _ := agg.Aggregate(reversed).Value("glucose")
	assert.Equal(t, a, b)
}

func TestAggregateKeepsUnknownLabels(t *testing.T) {
	agg := newTestAggregator(t)

	sources := []domain.SourceReadings{
		{SourceID: "a", Readings: []domain.BiomarkerReading{{Name: "XYZ-123", Value: 42}}},
		{SourceID: "b", Readings: []domain.BiomarkerReading{{Name: "xyz 123", Value: 44}}},
	}

	set := agg.Aggregate(sources)
	require.Equal(t, 1, set.Len())

	v, ok := set.Value("xyz_123")
	require.True(t, ok)
	assert.Equal(t, 43.0, v)
}

func TestAggregatePreservesFirstSeenOrder(t *testing.T) {
	agg := newTestAggregator(t)

	sources := []domain.SourceReadings{
		{SourceID: "a", Readings: []domain.BiomarkerReading{
			{Name: "tsh", Value: 2},
			{Name: "glucose", Value: 90},
		}},
		{SourceID: "b", Readings: []domain.BiomarkerReading{
			{Name: "glucose", Value: 100},
			{Name: "hemoglobin", Value: 14},
		}},
	}

	set := agg.Aggregate(sources)
	assert.Equal(t, []string{"tsh", "glucose", "hemoglobin"}, set.Order)
}

func TestAggregateEmptyInput(t *testing.T) {
	agg := newTestAggregator(t)

	set := agg.Aggregate(nil)
	assert.Equal(t, 0, set.Len())

	set = agg.Aggregate([]domain.SourceReadings{{SourceID: "a"}})
	assert.Equal(t, 0, set.Len())
}
