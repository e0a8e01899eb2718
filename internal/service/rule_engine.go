package service

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/healthscore-analysis-server/internal/domain"
)

// DiseaseRuleEngine evaluates the static disease rule library against an
// aggregated biomarker set. Rules are independent: every rule whose
// predicates are satisfied yields a detection, with no suppression or
// deduplication across rules.
type DiseaseRuleEngine struct {
	logger *logrus.Logger
	rules  []domain.DiseaseRule
}

// NewDiseaseRuleEngine creates an engine over a validated rule library.
func NewDiseaseRuleEngine(logger *logrus.Logger, rules []domain.DiseaseRule) *DiseaseRuleEngine {
	return &DiseaseRuleEngine{
		logger: logger,
		rules:  rules,
	}
}

// Evaluate runs every rule against the set and returns the detections
// ordered by descending risk, then by library declaration order.
func (e *DiseaseRuleEngine) Evaluate(set *domain.AggregatedBiomarkerSet) []domain.DiseaseDetection {
	detections := make([]domain.DiseaseDetection, 0)

	for _, rule := range e.rules {
		matched, ok := e.evaluateRule(rule, set)
		if !ok {
			continue
		}

		detections = append(detections, domain.DiseaseDetection{
			ConditionName:     rule.Name,
			Risk:              rule.Risk,
			RiskDisplay:       rule.Risk.DisplayName(),
			Reasoning:         rule.Reasoning,
			MatchedPredicates: matched,
			Symptoms:          rule.Symptoms,
			Recommendations:   rule.Recommendations,
		})

		e.logger.WithFields(logrus.Fields{
			"condition": rule.Key,
			"risk":      rule.Risk.String(),
			"matched":   matched,
		}).Debug("Disease rule fired")
	}

	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Risk.Rank() > detections[j].Risk.Rank()
	})

	return detections
}

// evaluateRule reports whether the rule fires and which predicates were
// satisfied. AND rules require every predicate; OR rules require at least
// one, and only the satisfied ones are reported in the trace.
func (e *DiseaseRuleEngine) evaluateRule(rule domain.DiseaseRule, set *domain.AggregatedBiomarkerSet) ([]string, bool) {
	matched := make([]string, 0, len(rule.Predicates))

	for _, p := range rule.Predicates {
		if evaluatePredicate(p, set) {
			matched = append(matched, p.Describe())
		} else if rule.Logic == domain.LOGIC_ALL {
			return nil, false
		}
	}

	if len(matched) == 0 {
		return nil, false
	}
	return matched, true
}

// evaluatePredicate applies one predicate to the aggregated value. A
// biomarker absent from every source makes the predicate false rather
// than an error, and NaN fails every comparison.
func evaluatePredicate(p domain.RulePredicate, set *domain.AggregatedBiomarkerSet) bool {
	v, ok := set.Value(p.Biomarker)
	if !ok {
		return false
	}

	switch p.Operator {
	case domain.OP_GTE:
		return v >= p.Threshold
	case domain.OP_GT:
		return v > p.Threshold
	case domain.OP_LTE:
		return v <= p.Threshold
	case domain.OP_LT:
		return v < p.Threshold
	case domain.OP_EQ:
		return v == p.Threshold
	case domain.OP_BETWEEN:
		return v >= p.Low && v <= p.High
	case domain.OP_EXISTS:
		return !math.IsNaN(v)
	default:
		return false
	}
}
