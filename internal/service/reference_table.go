package service

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/healthscore-analysis-server/internal/domain"
)

// ReferenceTable resolves biomarker labels to reference ranges. It is built
// once from a RuleLibrary and is safe for concurrent readers; nothing is
// mutated after construction.
type ReferenceTable struct {
	logger *logrus.Logger

	// ranges maps canonical identifiers to their variants. Sex-independent
	// biomarkers have exactly one variant with Sex == SEX_UNKNOWN.
	ranges map[string][]domain.ReferenceRange

	// synonyms maps normalized keyword forms to canonical identifiers. Both
	// the spaced form ("total cholesterol") and the collapsed form
	// ("totalcholesterol") are registered so labels survive formatting loss.
	synonyms map[string]string

	// fuzzy holds the keywords eligible for containment matching, longest
	// first, so "ldl cholesterol" wins over "cholesterol".
	fuzzy []fuzzyKeyword

	order []string
}

type fuzzyKeyword struct {
	keyword   string
	canonical string
}

// NewReferenceTable builds the lookup structures from the given library.
func NewReferenceTable(logger *logrus.Logger, lib *RuleLibrary) (*ReferenceTable, error) {
	if err := lib.Validate(); err != nil {
		return nil, err
	}

	t := &ReferenceTable{
		logger:   logger,
		ranges:   make(map[string][]domain.ReferenceRange),
		synonyms: make(map[string]string),
	}

	for _, entry := range lib.Ranges {
		key := entry.Biomarker
		if _, seen := t.ranges[key]; !seen {
			t.order = append(t.order, key)
		}
		t.ranges[key] = append(t.ranges[key], entry.ReferenceRange)

		t.registerSynonym(key, key)
		for _, kw := range entry.Keywords {
			t.registerSynonym(kw, key)
		}
	}

	for kw, canonical := range t.synonyms {
		// Short keywords ("tc", "hr", "hb") only match exactly; containment
		// would fire on nearly every label.
		if len(kw) < 4 {
			continue
		}
		t.fuzzy = append(t.fuzzy, fuzzyKeyword{keyword: kw, canonical: canonical})
	}
	sort.Slice(t.fuzzy, func(i, j int) bool {
		if len(t.fuzzy[i].keyword) != len(t.fuzzy[j].keyword) {
			return len(t.fuzzy[i].keyword) > len(t.fuzzy[j].keyword)
		}
		return t.fuzzy[i].keyword < t.fuzzy[j].keyword
	})

	logger.WithFields(logrus.Fields{
		"biomarkers": len(t.ranges),
		"synonyms":   len(t.synonyms),
	}).Info("Reference table initialized")

	return t, nil
}

func (t *ReferenceTable) registerSynonym(label, canonical string) {
	norm := normalizeLabel(label)
	if norm == "" {
		return
	}
	t.synonyms[norm] = canonical
	collapsed := strings.ReplaceAll(norm, " ", "")
	if collapsed != norm {
		t.synonyms[collapsed] = canonical
	}
}

// Biomarkers returns the canonical identifiers in declaration order.
func (t *ReferenceTable) Biomarkers() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Canonicalize maps a raw label to its canonical biomarker identifier.
// Unrecognized labels return a stable normalized key and false, so unknown
// biomarkers still merge consistently across sources.
func (t *ReferenceTable) Canonicalize(name string) (string, bool) {
	norm := normalizeLabel(name)
	if canonical, ok := t.synonyms[norm]; ok {
		return canonical, true
	}
	if canonical, ok := t.synonyms[strings.ReplaceAll(norm, " ", "")]; ok {
		return canonical, true
	}
	return canonicalKey(name), false
}

// MatchLabel resolves messy free-text labels (OCR output, report prose) to a
// canonical identifier. It tries exact canonicalization first, then keyword
// containment in either direction for multi-word keywords.
func (t *ReferenceTable) MatchLabel(label string) (string, bool) {
	if canonical, ok := t.Canonicalize(label); ok {
		return canonical, true
	}

	norm := normalizeLabel(label)
	if len(norm) < 2 {
		return "", false
	}
	for _, f := range t.fuzzy {
		if strings.Contains(norm, f.keyword) {
			return f.canonical, true
		}
	}
	return "", false
}

// Lookup returns the reference range for the given raw label and sex.
// Sex-variant biomarkers resolve to the matching variant; SEX_UNKNOWN
// resolves to the union of all variants so no value is penalized on a
// bound that only applies to one sex.
func (t *ReferenceTable) Lookup(name string, sex domain.Sex) (*domain.ReferenceRange, error) {
	canonical, ok := t.Canonicalize(name)
	if !ok {
		return nil, fmt.Errorf("lookup %q: %w", name, domain.ErrRangeNotFound)
	}

	variants := t.ranges[canonical]
	if len(variants) == 0 {
		return nil, fmt.Errorf("lookup %q: %w", name, domain.ErrRangeNotFound)
	}
	if len(variants) == 1 {
		r := variants[0]
		return &r, nil
	}

	if sex != domain.SEX_UNKNOWN {
		for _, v := range variants {
			if v.Sex == sex {
				r := v
				return &r, nil
			}
		}
	}
	return unionRange(canonical, variants), nil
}

// unionRange widens sex variants into one range: the loosest bound wins on
// every side, and a nil (open) side stays open.
func unionRange(canonical string, variants []domain.ReferenceRange) *domain.ReferenceRange {
	u := domain.ReferenceRange{
		Biomarker: canonical,
		Unit:      variants[0].Unit,
		Sex:       domain.SEX_UNKNOWN,
	}

	u.OptimalLow = minBound(pick(variants, func(r domain.ReferenceRange) *float64 { return r.OptimalLow }))
	u.OptimalHigh = maxBound(pick(variants, func(r domain.ReferenceRange) *float64 { return r.OptimalHigh }))
	u.AcceptableLow = minBound(pick(variants, func(r domain.ReferenceRange) *float64 { return r.AcceptableLow }))
	u.AcceptableHigh = maxBound(pick(variants, func(r domain.ReferenceRange) *float64 { return r.AcceptableHigh }))

	displays := make([]string, 0, len(variants))
	for _, v := range variants {
		if v.Display == "" {
			continue
		}
		if v.Sex != domain.SEX_UNKNOWN {
			displays = append(displays, fmt.Sprintf("%s (%s)", v.Display, v.Sex))
		} else {
			displays = append(displays, v.Display)
		}
	}
	u.Display = strings.Join(displays, ", ")

	return &u
}

// pick collects one bound from every variant; a nil entry means that
// variant is open on this side, which makes the union open too.
func pick(variants []domain.ReferenceRange, f func(domain.ReferenceRange) *float64) []*float64 {
	out := make([]*float64, len(variants))
	for i, v := range variants {
		out[i] = f(v)
	}
	return out
}

func minBound(bounds []*float64) *float64 {
	var min *float64
	for _, b := range bounds {
		if b == nil {
			return nil
		}
		if min == nil || *b < *min {
			min = b
		}
	}
	return min
}

func maxBound(bounds []*float64) *float64 {
	var max *float64
	for _, b := range bounds {
		if b == nil {
			return nil
		}
		if max == nil || *b > *max {
			max = b
		}
	}
	return max
}

// normalizeLabel lowercases a label, maps every non-alphanumeric rune to a
// space and collapses runs, so "Hemoglobin-A1c", "HEMOGLOBIN_A1C" and
// "hemoglobin a1c" all normalize identically.
func normalizeLabel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// canonicalKey converts an arbitrary label into a stable snake_case key for
// biomarkers that have no reference entry.
func canonicalKey(s string) string {
	return strings.ReplaceAll(normalizeLabel(s), " ", "_")
}
