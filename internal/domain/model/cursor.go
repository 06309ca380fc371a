package model

// Cursor records the most recent authoritative commit published for a
// (owner, repo, ref) key. Ordering is decided solely by the CI run number,
// which the provider guarantees strictly increasing; wall-clock timestamps
// are not trusted because publishes may be retried or arrive out of order.
//
// The stored run number is monotonically non-decreasing: a candidate is
// applied only when no cursor exists or its run number exceeds the stored
// one. Stale candidates are silently dropped, not errors.
type Cursor struct {
	SHA       string
	RunNumber int64
}
