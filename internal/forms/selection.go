package forms

import (
	"slices"
	"strings"
)

func addKey(keys []string, k string) []string {
	k = strings.TrimSpace(k)
	if k == "" || slices.Contains(keys, k) {
		return keys
	}
	return append(keys, k)
}

func removeKey(keys []string, k string) []string {
	return slices.DeleteFunc(slices.Clone(keys), func(s string) bool { return s == k })
}

// compact trims keys and drops blanks and duplicates, keeping order.
func compact(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = addKey(out, k)
	}
	return out
}
