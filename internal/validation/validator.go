// Package validation provides shape validation for externally authored flag
// documents. A failed validation rejects one reload; it never takes down an
// adapter that already serves a good document.
package validation

import (
	"fmt"

	"github.com/flagmux/flagmux/internal/engine"
)

// ValidationResult holds the result of validation.
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// NewValidationResult creates a new validation result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:  true,
		Errors: make(map[string]string),
	}
}

// AddError adds a field error and marks the result as invalid.
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	v.Errors[field] = message
}

// Err reduces the result to a single error, nil when valid.
func (v *ValidationResult) Err() error {
	if v.Valid {
		return nil
	}
	for field, message := range v.Errors {
		return fmt.Errorf("%s: %s", field, message)
	}
	return fmt.Errorf("invalid document")
}

// SimpleDocument checks a simple-condition document: every flag key must be
// non-empty and every rule needs a condition object.
func SimpleDocument(doc *engine.FeatureDocument) error {
	result := NewValidationResult()
	for key, feature := range *doc {
		if key == "" {
			result.AddError("flags", "flag keys cannot be empty")
			continue
		}
		for i, rule := range feature.Rules {
			if rule.Condition == nil {
				result.AddError(
					fmt.Sprintf("%s.rules[%d]", key, i),
					"rule is missing its condition object",
				)
			}
		}
	}
	return result.Err()
}

// SegmentDocument checks a segment document: feature names must be unique
// and non-empty, and every feature state must reference a known feature.
func SegmentDocument(doc *engine.SegmentDocument) error {
	result := NewValidationResult()

	featureIDs := make(map[int64]bool, len(doc.Features))
	names := make(map[string]bool, len(doc.Features))
	for i, f := range doc.Features {
		if f.Name == "" {
			result.AddError(fmt.Sprintf("features[%d]", i), "feature name cannot be empty")
			continue
		}
		if names[f.Name] {
			result.AddError(fmt.Sprintf("features[%d]", i), fmt.Sprintf("duplicate feature name %q", f.Name))
		}
		names[f.Name] = true
		featureIDs[f.ID] = true
	}

	for i, st := range doc.FeatureStates {
		if !featureIDs[st.FeatureID] {
			result.AddError(
				fmt.Sprintf("feature_states[%d]", i),
				fmt.Sprintf("references unknown feature_id %d", st.FeatureID),
			)
		}
	}

	return result.Err()
}
