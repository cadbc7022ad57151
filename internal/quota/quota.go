// Package quota decides whether a generation request is allowed under the
// free-tier allowance. Pure policy, no side effects.
package quota

import "lettergen/internal/domain"

// FreeLimit is the number of generations available without a subscription.
const FreeLimit = 3

// Decision is the outcome of evaluating a profile against the quota.
type Decision struct {
	Allowed       bool
	Subscribed    bool
	FreeRemaining int
}

// Evaluate maps the usage counter and subscription state to a decision.
// Subscribers are never limited; free users are denied once the allowance
// is exhausted.
func Evaluate(generationsUsed int, isPro bool, status string) Decision {
	subscribed := isPro && (status == domain.StatusActive || status == domain.StatusTrialing)

	remaining := FreeLimit - generationsUsed
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:       subscribed || remaining > 0,
		Subscribed:    subscribed,
		FreeRemaining: remaining,
	}
}
