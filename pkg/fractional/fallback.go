package fractional

// Source generates ordering keys with graceful degradation. Legacy or
// corrupted documents can carry non-monotonic sibling indices, so a reorder
// or ungroup must never fail outright: each strategy is tried only if the
// previous one errors or returns the wrong count, and the last resort always
// terminates with some valid ordering at the cost of ideal placement.
type Source struct {
	// NKeysBetween is injectable so tests can force individual strategies
	// to fail. Defaults to the package generator.
	NKeysBetween func(a, b string, n int) ([]string, error)
}

// NewSource returns a Source backed by the package generator.
func NewSource() *Source {
	return &Source{NKeysBetween: NKeysBetween}
}

// NKeysWithFallback produces n strictly-ordered keys, preferring the interval
// (after, before), then (after, open), then (anchor, open), then fully
// unconstrained, and finally chaining single keys one at a time. after,
// before and anchor may each be "" (open). The anchor is typically the
// original container's own index.
func (s *Source) NKeysWithFallback(after, before, anchor string, n int) []string {
	if n <= 0 {
		return []string{}
	}
	attempts := [][2]string{
		{after, before},
		{after, ""},
		{anchor, ""},
		{"", ""},
	}
	for _, bounds := range attempts {
		keys, err := s.NKeysBetween(bounds[0], bounds[1], n)
		if err == nil && len(keys) == n {
			return keys
		}
	}
	// Sequential chain from an open interval; KeyBetween cannot fail here
	// absent a generator bug.
	keys := make([]string, 0, n)
	prev := ""
	for i := 0; i < n; i++ {
		k, err := KeyBetween(prev, "")
		if err != nil {
			break
		}
		keys = append(keys, k)
		prev = k
	}
	return keys
}
