package engine

// ResolveSimple evaluates flagKey against a simple-condition document.
//
// Lookup misses return the caller's default. Otherwise rules run in file
// order: a rule matches when every condition entry equality-matches the
// attributes (a missing attribute fails the rule, never matches). The first
// matching rule contributes its forced value, falling back to the flag's own
// defaultValue when force is absent. With no match the flag's defaultValue
// applies, and failing that, the caller's default.
func ResolveSimple(doc FeatureDocument, flagKey string, attrs Attributes, def Value) Value {
	feature, ok := doc[flagKey]
	if !ok {
		return def
	}

	for _, rule := range feature.Rules {
		if !conditionMatches(rule.Condition, attrs) {
			continue
		}
		if rule.Force != nil {
			return rule.Force
		}
		if feature.DefaultValue != nil {
			return feature.DefaultValue
		}
		return def
	}

	if feature.DefaultValue != nil {
		return feature.DefaultValue
	}
	return def
}

func conditionMatches(condition map[string]Value, attrs Attributes) bool {
	for property, expected := range condition {
		attr, ok := attrs[property]
		if !ok {
			return false
		}
		if !equalAsStrings(attr, expected) {
			return false
		}
	}
	return true
}
