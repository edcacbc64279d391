package paths

import "strings"

// IsWildcard reports whether s contains '*' or '?'.
func IsWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// Match reports whether text matches pattern. '*' matches any run of
// characters including separators, '?' matches exactly one character.
// Matching is case-insensitive and treats '/' and '\' as equal.
func Match(pattern, text string) bool {
	p := []rune(folderKey(pattern))
	t := []rune(folderKey(text))

	pi, ti := 0, 0
	star, mark := -1, 0
	for ti < len(t) {
		switch {
		case pi < len(p) && (p[pi] == '?' || p[pi] == t[ti]):
			pi++
			ti++
		case pi < len(p) && p[pi] == '*':
			star = pi
			mark = ti
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			ti = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
