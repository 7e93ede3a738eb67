package engine

// Index is the derived lookup structure for one segment document revision.
// It is built in full from a freshly parsed document and must be published
// by reference swap: readers holding an Index always see one coherent
// revision, never a partially rebuilt one.
type Index struct {
	featureIDByName map[string]int64
	segments        []Segment
	statesByFeature map[int64][]FeatureState
}

// BuildIndex derives the lookup structures from doc. State slices preserve
// document order, which drives selection precedence in ResolveState.
func BuildIndex(doc *SegmentDocument) *Index {
	ix := &Index{
		featureIDByName: make(map[string]int64, len(doc.Features)),
		segments:        doc.Segments,
		statesByFeature: make(map[int64][]FeatureState, len(doc.Features)),
	}
	for _, f := range doc.Features {
		ix.featureIDByName[f.Name] = f.ID
	}
	for _, st := range doc.FeatureStates {
		ix.statesByFeature[st.FeatureID] = append(ix.statesByFeature[st.FeatureID], st)
	}
	return ix
}

// FeatureID resolves a flag key to its numeric feature id.
func (ix *Index) FeatureID(flagKey string) (int64, bool) {
	id, ok := ix.featureIDByName[flagKey]
	return id, ok
}

// ResolveState selects the effective feature state for (featureID, attrs):
// first the earliest state (in document order) scoped to a matched segment,
// then the earliest unsegmented state, else absent.
func (ix *Index) ResolveState(featureID int64, attrs Attributes) (FeatureState, bool) {
	states := ix.statesByFeature[featureID]
	if len(states) == 0 {
		return FeatureState{}, false
	}

	matched := make(map[int64]bool, len(ix.segments))
	for _, seg := range ix.segments {
		if SegmentMatches(seg, attrs) {
			matched[seg.ID] = true
		}
	}

	for _, st := range states {
		if st.SegmentID != nil && matched[*st.SegmentID] {
			return st, true
		}
	}
	for _, st := range states {
		if st.SegmentID == nil {
			return st, true
		}
	}
	return FeatureState{}, false
}

// SegmentMatches reports whether attrs satisfy every rule of the segment.
// Unsupported rule types and operators fail closed: they make the segment
// not match rather than being ignored.
func SegmentMatches(seg Segment, attrs Attributes) bool {
	for _, rule := range seg.Rules {
		if rule.Type != segmentRuleAll {
			return false
		}
		for _, cond := range rule.Conditions {
			if cond.Operator != segmentOperatorEqual {
				return false
			}
			attr, present := attrs[cond.Property]
			if !present || !equalAsStrings(attr, cond.Value) {
				return false
			}
		}
	}
	return true
}

// BoolFromState coerces a selected state to a boolean: the state's value if
// present, else its enabled bit, else the caller's default.
func BoolFromState(st FeatureState, ok bool, def bool) bool {
	if !ok {
		return def
	}
	if st.Value != nil {
		return CoerceBool(st.Value, def)
	}
	if st.Enabled != nil {
		return *st.Enabled
	}
	return def
}

// StringFromState coerces a selected state to a string: the state's value if
// present, else the caller's default.
func StringFromState(st FeatureState, ok bool, def string) string {
	if !ok {
		return def
	}
	if st.Value != nil {
		return CoerceString(st.Value, def)
	}
	return def
}
