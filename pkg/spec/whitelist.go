package spec

import "sort"

// Whitelist is an allow-set of pubkeys, an empty whitelist allows everything.
type Whitelist map[string]struct{}

func NewWhitelist(keys ...string) Whitelist {
	w := make(Whitelist, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		w[k] = struct{}{}
	}
	return w
}

func (w Whitelist) Contains(key string) bool {
	if len(w) == 0 {
		return true
	}
	_, ok := w[key]
	return ok
}

func (w Whitelist) IsEmpty() bool {
	return len(w) == 0
}

func (w Whitelist) Keys() []string {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
