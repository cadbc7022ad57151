package billing

import (
	"strings"
	"time"

	"lettergen/internal/domain"
)

// NormalizeStatus maps a raw provider status to the canonical
// (subscription_status, is_pro) pair. Cancelled subscriptions whose paid
// period has not yet elapsed keep their entitlement until the period end
// passes. Unknown statuses are stored verbatim and never grant entitlement.
func NormalizeStatus(raw string, periodEnd *time.Time, now time.Time) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return domain.StatusActive, true
	case "trialing", "on_trial":
		return domain.StatusTrialing, true
	case "past_due":
		return domain.StatusPastDue, false
	case "canceled", "cancelled":
		if periodEnd != nil && periodEnd.After(now) {
			return domain.StatusActive, true
		}
		return domain.StatusCanceled, false
	case "unpaid":
		return domain.StatusUnpaid, false
	case "":
		return domain.StatusNone, false
	default:
		return raw, false
	}
}
