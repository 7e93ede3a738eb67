// Package engine evaluates flag rule documents against request attributes.
// It implements the two document dialects the gateway serves from disk: the
// simple-condition dialect (per-flag ordered condition rules) and the
// segment dialect (audience segments plus per-segment feature states).
package engine

// Value is a raw JSON flag value. Coercion to bool or string happens at the
// evaluation boundary, never inside the matching logic.
type Value = any

// FeatureDocument is the simple-condition dialect: a mapping from flag key
// to its definition. The whole document is replaced on reload, never patched.
type FeatureDocument map[string]FeatureDefinition

// FeatureDefinition is one flag's default value and its ordered rules.
type FeatureDefinition struct {
	DefaultValue Value           `json:"defaultValue"`
	Rules        []ConditionRule `json:"rules"`
}

// ConditionRule forces a value when every condition entry equality-matches
// the request attributes. Rules apply in file order; first match wins.
type ConditionRule struct {
	Condition map[string]Value `json:"condition"`
	Force     Value            `json:"force"`
}

// SegmentDocument is the segment dialect: three collections parsed from one
// JSON document. Field names mirror externally authored documents exactly.
type SegmentDocument struct {
	Features      []Feature      `json:"features"`
	Segments      []Segment      `json:"segments"`
	FeatureStates []FeatureState `json:"feature_states"`
}

// Feature maps a flag name to its numeric id.
type Feature struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Segment is a named audience expressed as matching rules.
type Segment struct {
	ID    int64         `json:"id"`
	Rules []SegmentRule `json:"rules"`
}

// SegmentRule groups conditions under a combinator type. Only type "ALL" is
// supported; any other type fails the segment closed.
type SegmentRule struct {
	Type       string             `json:"type"`
	Conditions []SegmentCondition `json:"conditions"`
}

// SegmentCondition compares one request attribute against an expected value.
// Only operator "EQUAL" is supported; any other operator fails closed.
type SegmentCondition struct {
	Property string `json:"property"`
	Operator string `json:"operator"`
	Value    Value  `json:"value"`
}

// FeatureState assigns a value/enabled pair to a feature, either scoped to a
// segment or, with a null segment_id, as the unsegmented default.
type FeatureState struct {
	FeatureID int64  `json:"feature_id"`
	SegmentID *int64 `json:"segment_id"`
	Value     Value  `json:"value"`
	Enabled   *bool  `json:"enabled"`
}

const (
	segmentRuleAll       = "ALL"
	segmentOperatorEqual = "EQUAL"
)

// AnonymousUserID substitutes for a missing or empty caller-supplied user id.
const AnonymousUserID = "anonymous"

// Attributes is the evaluation context: attribute name to attribute value,
// always carrying at least "userId". Built fresh per request, never mutated.
type Attributes map[string]string

// NewAttributes builds the per-request context for userID, defaulting an
// empty id to AnonymousUserID.
func NewAttributes(userID string) Attributes {
	if userID == "" {
		userID = AnonymousUserID
	}
	return Attributes{"userId": userID}
}
