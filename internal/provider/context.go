package provider

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/open-feature/go-sdk/openfeature"

	"github.com/flagmux/flagmux/internal/engine"
)

// BuildGenericContext builds the evaluation context for the local-daemon
// protocol: targeting key plus a userId attribute. Empty user ids become
// "anonymous".
func BuildGenericContext(userID string) openfeature.EvaluationContext {
	uid := userID
	if uid == "" {
		uid = engine.AnonymousUserID
	}
	return openfeature.NewEvaluationContext(uid, map[string]any{"userId": uid})
}

// targetingContextStrategy is one way of constructing the targeting SDK's
// context object. SDK releases have shipped both a builder-based API and a
// single-call factory; the table below is negotiated once at adapter
// construction rather than probed on every call.
type targetingContextStrategy struct {
	name  string
	build func(uid string) ldcontext.Context
}

func targetingContextStrategies() []targetingContextStrategy {
	return []targetingContextStrategy{
		{
			name: "builder",
			build: func(uid string) ldcontext.Context {
				return ldcontext.NewBuilder(uid).SetString("userId", uid).Build()
			},
		},
		{
			name: "factory",
			build: func(uid string) ldcontext.Context {
				return ldcontext.New(uid)
			},
		},
	}
}

// negotiateTargetingContext picks the first usable context construction
// strategy, preferring the builder style. An empty table means the backend
// SDK exposes no context API we understand.
func negotiateTargetingContext() (targetingContextStrategy, error) {
	for _, s := range targetingContextStrategies() {
		if s.build != nil {
			return s, nil
		}
	}
	return targetingContextStrategy{}, ErrUnsupportedBackend
}

// buildTargetingContext applies a negotiated strategy, defaulting empty user
// ids to "anonymous".
func buildTargetingContext(s targetingContextStrategy, userID string) ldcontext.Context {
	uid := userID
	if uid == "" {
		uid = engine.AnonymousUserID
	}
	return s.build(uid)
}
