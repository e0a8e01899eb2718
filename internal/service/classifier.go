package service

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/healthscore-analysis-server/internal/domain"
)

// BiomarkerClassifier evaluates individual biomarker values against the
// reference table. Classification is a pure function of (value, range); the
// classifier never fails a request, unusable inputs degrade to UNKNOWN.
type BiomarkerClassifier struct {
	logger *logrus.Logger
	table  domain.ReferenceLookup
}

// NewBiomarkerClassifier creates a classifier backed by the given table.
func NewBiomarkerClassifier(logger *logrus.Logger, table domain.ReferenceLookup) *BiomarkerClassifier {
	return &BiomarkerClassifier{
		logger: logger,
		table:  table,
	}
}

// Classify evaluates one reading against the reference range selected for
// the given sex. Boundary values on the optimal bounds are inclusive.
func (c *BiomarkerClassifier) Classify(reading domain.BiomarkerReading, sex domain.Sex) domain.ClassifiedBiomarker {
	result := domain.ClassifiedBiomarker{
		Name:  displayName(reading.Name),
		Value: reading.Value,
		Unit:  reading.Unit,
	}

	if math.IsNaN(reading.Value) || math.IsInf(reading.Value, 0) {
		result.Status = domain.UNKNOWN
		result.Message = "Invalid value: measurement is not a finite number."
		return result
	}
	if reading.Value < 0 {
		result.Status = domain.UNKNOWN
		result.Message = "Invalid value: negative measurement is not physically possible."
		return result
	}

	rng, err := c.table.Lookup(reading.Name, sex)
	if err != nil {
		if !errors.Is(err, domain.ErrRangeNotFound) {
			c.logger.WithFields(logrus.Fields{
				"biomarker": reading.Name,
				"error":     err.Error(),
			}).Warn("Reference lookup failed")
		}
		result.Status = domain.UNKNOWN
		result.Message = "No reference range available."
		return result
	}

	if result.Unit == "" {
		result.Unit = rng.Unit
	}
	result.AcceptableRange = rng.Display
	result.OptimalRange = formatBounds(rng.OptimalLow, rng.OptimalHigh)

	result.Status = classifyValue(reading.Value, rng)
	result.IsOptimal = result.Status == domain.OPTIMAL
	result.Message = statusMessage(result.Status, rng.Display)

	return result
}

// classifyValue places a finite value into one of the five range statuses.
func classifyValue(v float64, rng *domain.ReferenceRange) domain.Status {
	withinLow := rng.OptimalLow == nil || v >= *rng.OptimalLow
	withinHigh := rng.OptimalHigh == nil || v <= *rng.OptimalHigh
	if withinLow && withinHigh {
		return domain.OPTIMAL
	}

	if !withinLow {
		if rng.AcceptableLow != nil && v >= *rng.AcceptableLow {
			return domain.BELOW_OPTIMAL
		}
		return domain.BELOW_ACCEPTABLE
	}

	if rng.AcceptableHigh != nil && v <= *rng.AcceptableHigh {
		return domain.ABOVE_OPTIMAL
	}
	return domain.ABOVE_ACCEPTABLE
}

// statusMessage renders the advisory string for a classified value. Every
// out-of-optimal message cites the published reference interval.
func statusMessage(status domain.Status, display string) string {
	switch status {
	case domain.OPTIMAL:
		return "This is within optimal range."
	case domain.BELOW_OPTIMAL:
		return fmt.Sprintf("This is below optimal range; acceptable range is %s.", display)
	case domain.ABOVE_OPTIMAL:
		return fmt.Sprintf("This is above optimal range; acceptable range is %s.", display)
	case domain.BELOW_ACCEPTABLE:
		return fmt.Sprintf("This is below acceptable range; acceptable range is %s.", display)
	case domain.ABOVE_ACCEPTABLE:
		return fmt.Sprintf("This is above acceptable range; acceptable range is %s.", display)
	default:
		return "No reference range available."
	}
}

// formatBounds renders a bound pair as "70-100", "<200" or ">40". Both
// sides open yields an empty string.
func formatBounds(low, high *float64) string {
	switch {
	case low != nil && high != nil:
		return fmt.Sprintf("%s-%s", formatValue(*low), formatValue(*high))
	case high != nil:
		return "<" + formatValue(*high)
	case low != nil:
		return ">" + formatValue(*low)
	default:
		return ""
	}
}

func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

// displayName renders a canonical identifier for presentation, so
// "total_cholesterol" becomes "Total Cholesterol".
func displayName(canonical string) string {
	words := strings.FieldsFunc(canonical, func(r rune) bool {
		return r == '_' || r == ' '
	})
	for i, w := range words {
		if special, ok := displayOverrides[w]; ok {
			words[i] = special
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var displayOverrides = map[string]string{
	"hdl":   "HDL",
	"ldl":   "LDL",
	"tsh":   "TSH",
	"bp":    "BP",
	"hba1c": "HbA1c",
	"b12":   "B12",
}
