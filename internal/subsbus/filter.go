package subsbus

// RowFilter is applied by a consumer before an event is considered a
// match. An unset (nil) field accepts every value for that field; both
// unset accepts all events.
type RowFilter struct {
	UserID   *float64
	TenantID *float64
}

// Matches reports whether event satisfies the filter: for each non-nil
// field, event.Data[field] must equal it as a JSON number; a missing data
// field fails the match.
func (f RowFilter) Matches(event *Event) bool {
	if f.UserID != nil && !numEquals(event.Data["user_id"], *f.UserID) {
		return false
	}
	if f.TenantID != nil && !numEquals(event.Data["tenant_id"], *f.TenantID) {
		return false
	}
	return true
}

func numEquals(v interface{}, want float64) bool {
	switch n := v.(type) {
	case float64:
		return n == want
	case int:
		return float64(n) == want
	case int64:
		return float64(n) == want
	default:
		return false
	}
}
