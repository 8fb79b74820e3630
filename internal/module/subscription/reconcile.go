package subscription

import "time"

// IsEntitled reports whether sub grants access at now. The stored status
// alone is not enough: an active grant past its end date is not entitled.
func IsEntitled(sub Subscription, now time.Time) bool {
	return sub.Status == StatusActive &&
		sub.PlanEndDate != nil &&
		now.Before(*sub.PlanEndDate)
}

// Expired reports whether sub is active with an end date before now.
func Expired(sub Subscription, now time.Time) bool {
	return sub.Status == StatusActive &&
		sub.PlanEndDate != nil &&
		!sub.PlanEndDate.IsZero() &&
		sub.PlanEndDate.Before(now)
}

// Reconcile returns a copy of records with every expired active subscription
// demoted to inactive. The result is index-aligned with the input and the
// input is not modified.
func Reconcile(records []Record, now time.Time) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r
		if Expired(r.Subscription, now) {
			out[i].Subscription.Status = StatusInactive
		}
	}
	return out
}
