package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/healthscore-analysis-server/internal/domain"
)

// Label/value patterns for free text produced by PDF extraction and OCR.
// Lab reports render readings as "Glucose: 95 mg/dL", "Glucose = 95",
// tabular whitespace runs, or plain "Glucose 95 mg/dL" lines.
var readingPatterns = []*regexp.Regexp{
	// "Parameter: 95 mg/dL" and "Parameter = 95 mg/dL"
	regexp.MustCompile(`(?m)([A-Za-z][A-Za-z0-9 \t()-]{2,}?)\s*[:=]\s*([0-9]+(?:\.[0-9]+)?)\s*([A-Za-z/%μ]*)`),
	// Tabular "Parameter    95    mg/dL"
	regexp.MustCompile(`(?m)([A-Za-z][A-Za-z0-9 ()-]{2,}?)[\t ]{2,}([0-9]+(?:\.[0-9]+)?)[\t ]*([A-Za-z/%μ]*)`),
	// Plain "Parameter 95 mg/dL"
	regexp.MustCompile(`(?m)([A-Za-z][A-Za-z ]{4,}?)\s+([0-9]+(?:\.[0-9]+)?)\s*([A-Za-z/%μ]*)`),
}

// scanReadings extracts biomarker readings from free text. Only labels the
// matcher recognizes are kept; prose around a number ("patient age 45")
// never becomes a reading. The first match per biomarker wins across all
// patterns, mirroring top-to-bottom report order.
func scanReadings(text string, matcher LabelMatcher) []domain.BiomarkerReading {
	readings := make([]domain.BiomarkerReading, 0)
	seen := make(map[string]bool)

	for _, pattern := range readingPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			label := strings.TrimSpace(m[1])
			if len(label) < 3 {
				continue
			}

			canonical, ok := matchWithOCRVariants(matcher, label)
			if !ok || seen[canonical] {
				continue
			}

			value, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}

			seen[canonical] = true
			readings = append(readings, domain.BiomarkerReading{
				Name:  canonical,
				Value: value,
				Unit:  strings.TrimSpace(m[3]),
			})
		}
	}

	return readings
}

// matchWithOCRVariants retries the match with common OCR digit/letter
// confusions ("g1ucose", "hem0globin") undone.
func matchWithOCRVariants(matcher LabelMatcher, label string) (string, bool) {
	if canonical, ok := matcher.MatchLabel(label); ok {
		return canonical, true
	}
	variants := []string{
		strings.ReplaceAll(label, "0", "o"),
		strings.ReplaceAll(label, "1", "l"),
		strings.ReplaceAll(strings.ReplaceAll(label, "0", "o"), "1", "l"),
	}
	for _, v := range variants {
		if v == label {
			continue
		}
		if canonical, ok := matcher.MatchLabel(v); ok {
			return canonical, true
		}
	}
	return "", false
}
