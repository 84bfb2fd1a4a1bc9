// Package glob matches single path components and whole component chains
// against wildcard patterns.
//
// Supported syntax: `?` (one character), `*` (a run of characters inside
// the component), `**` (supermatch, may bridge component boundaries),
// `[...]` character classes with `!` negation and `a-z` ranges, and `\`
// escapes.
package glob

// IsGlob reports whether name contains an unescaped glob metacharacter.
func IsGlob(name string) bool {
	escaped := false
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == '*' || ch == '?' || ch == '[' || ch == ']' {
			return true
		}
	}
	return false
}

// Match matches a single path component against pattern.
//
// The second return value signals a supermatch: the pattern hit a `**`,
// meaning the match may extend across a path-separator boundary and the
// caller should consider descendants as well.
//
// The `*` wildcard scans forward to the next literal character of the
// pattern without backtracking. A pattern with several `*` separated by
// repeated literals can therefore mismatch (e.g. `a*ab` vs `aaab`); that
// mirrors the reference matcher and is pinned by tests.
func Match(pattern, name string) (matched bool, supermatch bool) {
	gi := 0
	si := 0

	for si < len(name) {
		if gi >= len(pattern) {
			return false, false
		}

		switch pattern[gi] {
		case '\\':
			gi++ // skip backslash
			if gi < len(pattern) && pattern[gi] == name[si] {
				gi++
				si++
			} else {
				return false, false
			}

		case '?':
			gi++
			si++

		case '*':
			next := gi + 1
			if next < len(pattern) && pattern[next] == '*' {
				// ** matches across the component edge
				return true, true
			}
			if next == len(pattern) {
				// trailing * matches the remainder
				return true, false
			}
			mi := si
			for mi < len(name) && name[mi] != pattern[next] {
				mi++
			}
			if mi == len(name) {
				return false, false
			}
			gi = next
			si = mi

		case '[':
			gi++
			invert := false
			if gi < len(pattern) && pattern[gi] == '!' {
				invert = true
				gi++
			}

			classMatched := false
			var prevChar byte
			for gi < len(pattern) && pattern[gi] != ']' {
				if pattern[gi] == '-' && prevChar != 0 && gi+1 < len(pattern) && pattern[gi+1] != ']' {
					rangeEnd := pattern[gi+1]
					if name[si] >= prevChar && name[si] <= rangeEnd {
						classMatched = true
					}
					prevChar = 0
					gi += 2
				} else {
					if name[si] == pattern[gi] {
						classMatched = true
					}
					prevChar = pattern[gi]
					gi++
				}
			}
			if gi >= len(pattern) {
				// missing closing bracket
				return false, false
			}
			if classMatched == invert {
				return false, false
			}
			gi++ // skip the closing bracket
			si++

		default:
			if pattern[gi] == name[si] {
				gi++
				si++
			} else {
				return false, false
			}
		}
	}

	// consume trailing wildcards that match the empty remainder
	for gi < len(pattern) && pattern[gi] == '*' {
		gi++
	}

	return gi == len(pattern) && si == len(name), false
}

// MatchPath matches a glob path against a concrete path, component-wise.
// A supermatch component may swallow one or more concrete components,
// bridging differing segment counts.
func MatchPath(pattern, concrete []string) bool {
	if len(pattern) == 0 {
		return len(concrete) == 0
	}
	if len(concrete) == 0 {
		return false
	}

	matched, super := Match(pattern[0], concrete[0])
	if !matched {
		return false
	}
	if super {
		// The ** component consumed concrete[0]; let it optionally swallow
		// any further run of components.
		for skip := 1; skip <= len(concrete); skip++ {
			if MatchPath(pattern[1:], concrete[skip:]) {
				return true
			}
		}
		return false
	}
	return MatchPath(pattern[1:], concrete[1:])
}
