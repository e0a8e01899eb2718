// Package domain contains core business entities and types for biomarker
// evaluation and rule-based disease-risk assessment of uploaded lab reports.
package domain

import (
	"errors"
)

// Status represents the classification of a biomarker value against its
// reference range. Boundary values on the optimal bounds are inclusive,
// so a value equal to either optimal bound classifies as OPTIMAL.
type Status string

const (
	OPTIMAL          Status = "optimal"
	ABOVE_OPTIMAL    Status = "above_optimal"
	BELOW_OPTIMAL    Status = "below_optimal"
	ABOVE_ACCEPTABLE Status = "above_acceptable"
	BELOW_ACCEPTABLE Status = "below_acceptable"
	UNKNOWN          Status = "unknown"
)

// RiskLevel represents the severity of a disease detection
type RiskLevel string

const (
	HIGH_RISK   RiskLevel = "high"
	MEDIUM_RISK RiskLevel = "medium"
	LOW_RISK    RiskLevel = "low"
)

// Sex selects sex-dependent reference range variants. SEX_UNKNOWN makes
// the lookup fall back to the union of both variants rather than guessing.
type Sex string

const (
	MALE        Sex = "male"
	FEMALE      Sex = "female"
	SEX_UNKNOWN Sex = ""
)

// Operator represents a rule predicate comparison
type Operator string

const (
	OP_GTE     Operator = ">="
	OP_GT      Operator = ">"
	OP_LTE     Operator = "<="
	OP_LT      Operator = "<"
	OP_EQ      Operator = "=="
	OP_BETWEEN Operator = "between"
	OP_EXISTS  Operator = "exists"
)

// RuleLogic represents how a rule combines its predicates
type RuleLogic string

const (
	LOGIC_ALL RuleLogic = "AND"
	LOGIC_ANY RuleLogic = "OR"
)

// Validation errors for reference and rule table integrity
var (
	ErrRangeNotFound   = errors.New("no reference range available")
	ErrInvalidValue    = errors.New("invalid biomarker value")
	ErrInvalidStatus   = errors.New("invalid biomarker status")
	ErrInvalidRisk     = errors.New("invalid risk level")
	ErrInvalidOperator = errors.New("invalid predicate operator")
	ErrInvalidLogic    = errors.New("invalid rule logic")
)

// IsValid validates the biomarker status.
func (s Status) IsValid() bool {
	switch s {
	case OPTIMAL, ABOVE_OPTIMAL, BELOW_OPTIMAL, ABOVE_ACCEPTABLE, BELOW_ACCEPTABLE, UNKNOWN:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsOutOfRange reports whether the status indicates a clinically abnormal
// value, i.e. outside the acceptable range.
func (s Status) IsOutOfRange() bool {
	return s == ABOVE_ACCEPTABLE || s == BELOW_ACCEPTABLE
}

// IsValid validates the risk level.
func (r RiskLevel) IsValid() bool {
	switch r {
	case HIGH_RISK, MEDIUM_RISK, LOW_RISK:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk level.
func (r RiskLevel) String() string {
	return string(r)
}

// DisplayName returns the human-readable risk label used in reports.
func (r RiskLevel) DisplayName() string {
	switch r {
	case HIGH_RISK:
		return "High Risk"
	case MEDIUM_RISK:
		return "Medium Risk"
	case LOW_RISK:
		return "Low Risk"
	default:
		return "Unknown Risk"
	}
}

// Rank returns the sort rank of the risk level; higher means more severe.
// Used for deterministic ordering of detections.
func (r RiskLevel) Rank() int {
	switch r {
	case HIGH_RISK:
		return 3
	case MEDIUM_RISK:
		return 2
	case LOW_RISK:
		return 1
	default:
		return 0
	}
}

// IsValid validates the sex value. SEX_UNKNOWN is valid input.
func (s Sex) IsValid() bool {
	switch s {
	case MALE, FEMALE, SEX_UNKNOWN:
		return true
	default:
		return false
	}
}

// IsValid validates the predicate operator.
func (o Operator) IsValid() bool {
	switch o {
	case OP_GTE, OP_GT, OP_LTE, OP_LT, OP_EQ, OP_BETWEEN, OP_EXISTS:
		return true
	default:
		return false
	}
}

// IsValid validates the rule logic discriminant.
func (l RuleLogic) IsValid() bool {
	switch l {
	case LOGIC_ALL, LOGIC_ANY:
		return true
	default:
		return false
	}
}
