package stripe

import "strings"

// Payment/subscription status normalization for values coming off the
// Stripe wire. Used only when storing provider state locally.
func NormalizeStatus(s string) string {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "active", "trialing":
		return "ACTIVE"
	case "canceled", "incomplete_expired", "unpaid":
		return "CANCELED"
	case "":
		return "NONE"
	default:
		return strings.ToUpper(strings.TrimSpace(s))
	}
}
