// Package str contains small string-slice utilities.
package str

// In returns true if v equals one of s.
func In(v string, s ...string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// Uniq returns the unique strings in strs,
// keeping the order of first appearance.
func Uniq(strs ...string) []string {
	seen := make(map[string]struct{}, len(strs))
	out := make([]string, 0, len(strs))
	for _, s := range strs {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
