package tracker

// Reconcilable is the contract an entity variant must satisfy to take part in
// the stable-identity merge. UpdateFrom mutates the receiver's fields from a
// freshly parsed record of the same variant without replacing the reference;
// Dispose releases the entity's resources when it vanishes from the feed.
type Reconcilable[T any] interface {
	NormalizedCallsign() string
	UpdateFrom(T)
	Dispose()
}

// Reconcile merges a freshly parsed batch against the previously tracked
// collection. Entities present in both keep their original object reference
// with fields updated from the incoming record, so any external reference
// held before the call remains valid afterwards. New entities are reported
// through added (which assigns their identity), vanished entities through
// removed, then disposed.
//
// Matching is a linear first-match scan by normalized callsign. For batches
// in the low hundreds this beats building a hash join each cycle, and it
// pins down the behavior when two existing entities share a normalized
// callsign: the first one wins, silently.
//
// The returned collection preserves incoming order and, when both inputs are
// non-empty, has exactly len(incoming) elements.
func Reconcile[T Reconcilable[T]](existing, incoming []T, added func(T), removed func(T)) []T {
	if len(incoming) == 0 {
		return existing
	}

	if len(existing) == 0 {
		// Everything becomes newly tracked
		for _, in := range incoming {
			if added != nil {
				added(in)
			}
		}
		return incoming
	}

	remaining := make([]T, len(existing))
	copy(remaining, existing)

	out := make([]T, 0, len(incoming))

	for _, in := range incoming {
		key := in.NormalizedCallsign()

		matched := false
		for i, ex := range remaining {
			if ex.NormalizedCallsign() != key {
				continue
			}
			ex.UpdateFrom(in)
			out = append(out, ex)
			remaining = append(remaining[:i], remaining[i+1:]...)
			matched = true
			break
		}

		if !matched {
			if added != nil {
				added(in)
			}
			out = append(out, in)
		}
	}

	// Present before, absent now: tear down
	for _, ex := range remaining {
		if removed != nil {
			removed(ex)
		}
		ex.Dispose()
	}

	return out
}
