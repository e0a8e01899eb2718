package domain

import (
	"fmt"
	"math"
	"time"
)

// Core Data Models

// BiomarkerReading represents one raw name/value pair produced by an
// extractor. The name is the raw label as it appeared in the source file;
// canonicalization happens inside the engine.
type BiomarkerReading struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// SourceReadings groups the readings extracted from a single uploaded file.
type SourceReadings struct {
	SourceID string             `json:"source_id"`
	Readings []BiomarkerReading `json:"readings"`
}

// ReferenceRange represents the optimal and acceptable bounds for one
// biomarker, optionally restricted to one sex. A nil optimal bound means the
// range is open on that side. A nil acceptable bound means the optimal bound
// is the hard bound on that side (values beyond it are immediately outside
// the acceptable range).
type ReferenceRange struct {
	Biomarker      string   `json:"biomarker" yaml:"biomarker"`
	Unit           string   `json:"unit" yaml:"unit"`
	Sex            Sex      `json:"sex,omitempty" yaml:"sex,omitempty"`
	OptimalLow     *float64 `json:"optimal_low,omitempty" yaml:"optimal_low,omitempty"`
	OptimalHigh    *float64 `json:"optimal_high,omitempty" yaml:"optimal_high,omitempty"`
	AcceptableLow  *float64 `json:"acceptable_low,omitempty" yaml:"acceptable_low,omitempty"`
	AcceptableHigh *float64 `json:"acceptable_high,omitempty" yaml:"acceptable_high,omitempty"`
	// Display is the human-readable acceptable range cited in messages,
	// e.g. "70-100", "<200", ">40".
	Display string `json:"display" yaml:"display"`
}

// HardLow returns the lower bound beyond which a value is below the
// acceptable range, or nil if the range is open downward.
func (r *ReferenceRange) HardLow() *float64 {
	if r.AcceptableLow != nil {
		return r.AcceptableLow
	}
	return r.OptimalLow
}

// HardHigh returns the upper bound beyond which a value is above the
// acceptable range, or nil if the range is open upward.
func (r *ReferenceRange) HardHigh() *float64 {
	if r.AcceptableHigh != nil {
		return r.AcceptableHigh
	}
	return r.OptimalHigh
}

// Validate ensures the bounds are coherent: optimal bounds must lie within
// the acceptable bounds on any side where both are present.
func (r *ReferenceRange) Validate() error {
	if r.Biomarker == "" {
		return fmt.Errorf("reference range validation: biomarker identifier is required")
	}
	if !r.Sex.IsValid() {
		return fmt.Errorf("reference range validation: invalid sex variant %q", r.Sex)
	}
	if r.OptimalLow != nil && r.OptimalHigh != nil && *r.OptimalLow > *r.OptimalHigh {
		return fmt.Errorf("reference range validation: %s optimal bounds inverted", r.Biomarker)
	}
	if r.AcceptableLow != nil && r.OptimalLow != nil && *r.AcceptableLow > *r.OptimalLow {
		return fmt.Errorf("reference range validation: %s optimal low outside acceptable low", r.Biomarker)
	}
	if r.AcceptableHigh != nil && r.OptimalHigh != nil && *r.AcceptableHigh < *r.OptimalHigh {
		return fmt.Errorf("reference range validation: %s optimal high outside acceptable high", r.Biomarker)
	}
	return nil
}

// ClassifiedBiomarker represents the evaluation of one biomarker value
// against its reference range. It is recomputed on every request and never
// mutated after creation.
type ClassifiedBiomarker struct {
	Name            string        `json:"name"`
	Value           float64       `json:"value"`
	Unit            string        `json:"unit,omitempty"`
	Status          Status        `json:"status"`
	Message         string        `json:"message"`
	IsOptimal       bool          `json:"is_optimal"`
	AcceptableRange string        `json:"acceptable_range,omitempty"`
	OptimalRange    string        `json:"optimal_range,omitempty"`
	SourceCount     int           `json:"source_count,omitempty"`
	Sources         []SourceValue `json:"sources,omitempty"`
}

// SourceValue records one raw contribution to an aggregated biomarker for
// traceability, so presentation can surface per-source disagreement.
type SourceValue struct {
	SourceID string  `json:"source_id"`
	Value    float64 `json:"value"`
}

// AggregatedBiomarker represents one biomarker averaged across the source
// files that contain it.
type AggregatedBiomarker struct {
	Name    string        `json:"name"`
	Mean    float64       `json:"mean"`
	Count   int           `json:"count"`
	Sources []SourceValue `json:"sources"`
}

// AggregatedBiomarkerSet maps canonical biomarker identifiers to their
// averaged values. Order preserves the first-seen sequence across sources
// for stable rendering.
type AggregatedBiomarkerSet struct {
	Entries map[string]*AggregatedBiomarker `json:"entries"`
	Order   []string                        `json:"order"`
}

// NewAggregatedBiomarkerSet creates an empty aggregated set.
func NewAggregatedBiomarkerSet() *AggregatedBiomarkerSet {
	return &AggregatedBiomarkerSet{
		Entries: make(map[string]*AggregatedBiomarker),
	}
}

// Add records one source contribution for the given canonical name and
// recomputes the running mean.
func (s *AggregatedBiomarkerSet) Add(name, sourceID string, value float64) {
	entry, ok := s.Entries[name]
	if !ok {
		entry = &AggregatedBiomarker{Name: name}
		s.Entries[name] = entry
		s.Order = append(s.Order, name)
	}
	entry.Sources = append(entry.Sources, SourceValue{SourceID: sourceID, Value: value})
	entry.Count = len(entry.Sources)
	var sum float64
	for _, sv := range entry.Sources {
		sum += sv.Value
	}
	entry.Mean = sum / float64(entry.Count)
}

// Value returns the averaged value for the given canonical name. The second
// return is false when the biomarker is absent from every source, which makes
// any predicate referencing it evaluate false instead of failing.
func (s *AggregatedBiomarkerSet) Value(name string) (float64, bool) {
	entry, ok := s.Entries[name]
	if !ok {
		return 0, false
	}
	return entry.Mean, true
}

// Len returns the number of distinct biomarkers in the set.
func (s *AggregatedBiomarkerSet) Len() int {
	return len(s.Entries)
}

// RulePredicate represents one condition of a disease rule. The Operator is
// the explicit discriminant: Threshold carries the comparison value for the
// scalar operators, Low/High carry the inclusive bounds for OP_BETWEEN, and
// OP_EXISTS needs neither.
type RulePredicate struct {
	Biomarker string   `json:"biomarker" yaml:"biomarker"`
	Operator  Operator `json:"operator" yaml:"operator"`
	Threshold float64  `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Low       float64  `json:"low,omitempty" yaml:"low,omitempty"`
	High      float64  `json:"high,omitempty" yaml:"high,omitempty"`
}

// Describe returns the human-readable form of the predicate used in
// detection traces, e.g. "glucose >= 126".
func (p RulePredicate) Describe() string {
	switch p.Operator {
	case OP_BETWEEN:
		return fmt.Sprintf("%s between %s and %s", p.Biomarker, trimFloat(p.Low), trimFloat(p.High))
	case OP_EXISTS:
		return fmt.Sprintf("%s present", p.Biomarker)
	default:
		return fmt.Sprintf("%s %s %s", p.Biomarker, p.Operator, trimFloat(p.Threshold))
	}
}

// Validate ensures the predicate is structurally sound.
func (p RulePredicate) Validate() error {
	if p.Biomarker == "" {
		return fmt.Errorf("predicate validation: biomarker identifier is required")
	}
	if !p.Operator.IsValid() {
		return fmt.Errorf("predicate validation: %w: %q", ErrInvalidOperator, p.Operator)
	}
	if p.Operator == OP_BETWEEN && p.Low > p.High {
		return fmt.Errorf("predicate validation: %s between bounds inverted", p.Biomarker)
	}
	return nil
}

// DiseaseRule represents one condition in the static rule library.
type DiseaseRule struct {
	Key             string          `json:"key" yaml:"key"`
	Name            string          `json:"name" yaml:"name"`
	Logic           RuleLogic       `json:"logic" yaml:"logic"`
	Predicates      []RulePredicate `json:"predicates" yaml:"predicates"`
	Risk            RiskLevel       `json:"risk" yaml:"risk"`
	Reasoning       string          `json:"reasoning" yaml:"reasoning"`
	Symptoms        []string        `json:"symptoms" yaml:"symptoms"`
	Recommendations []string        `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
}

// Validate ensures the rule is usable by the engine.
func (r *DiseaseRule) Validate() error {
	if r.Key == "" || r.Name == "" {
		return fmt.Errorf("disease rule validation: key and name are required")
	}
	if !r.Logic.IsValid() {
		return fmt.Errorf("disease rule validation: %w: %q", ErrInvalidLogic, r.Logic)
	}
	if !r.Risk.IsValid() {
		return fmt.Errorf("disease rule validation: %w: %q", ErrInvalidRisk, r.Risk)
	}
	if len(r.Predicates) == 0 {
		return fmt.Errorf("disease rule validation: %s has no predicates", r.Key)
	}
	for _, p := range r.Predicates {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("disease rule validation: %s: %w", r.Key, err)
		}
	}
	return nil
}

// DiseaseDetection represents one rule whose predicates were satisfied by
// the aggregated biomarker set.
type DiseaseDetection struct {
	ConditionName     string    `json:"condition_name"`
	Risk              RiskLevel `json:"risk_level"`
	RiskDisplay       string    `json:"risk_display"`
	Reasoning         string    `json:"reasoning"`
	MatchedPredicates []string  `json:"matched_predicates"`
	Symptoms          []string  `json:"symptoms"`
	Recommendations   []string  `json:"recommendations"`
}

// AnalysisResult is the terminal artifact returned to the presentation
// layer. Immutable once built.
type AnalysisResult struct {
	Biomarkers      []ClassifiedBiomarker `json:"biomarkers"`
	Detections      []DiseaseDetection    `json:"detections"`
	AllOptimal      bool                  `json:"all_optimal"`
	SourceFileCount int                   `json:"source_file_count"`
	GeneratedAt     time.Time             `json:"generated_at"`
}

// SourceFile represents one uploaded file handed to an extractor.
type SourceFile struct {
	Name string
	Ext  string
	Data []byte
}

// trimFloat formats a float without trailing zeros for display strings.
func trimFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

// Float returns a pointer to v; helper for building reference tables.
func Float(v float64) *float64 {
	return &v
}
