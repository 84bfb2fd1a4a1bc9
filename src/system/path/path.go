// Package path parses absolute slash-separated paths into validated
// component chains.
package path

import (
	"strings"

	"github.com/voodooEntity/pathspace/src/system/core"
	"github.com/voodooEntity/pathspace/src/system/glob"
)

// Path is a parsed absolute path. The zero value is invalid; obtain
// instances through Parse.
type Path struct {
	raw        string
	components []string
	isGlob     bool
	index      int
	hasIndex   bool
}

// Parse validates and splits pathStr. Paths must start with '/', contain
// no empty, '.' or '..' components, and balance any single quotes. A
// trailing `[n]` suffix on the last component selects the n-th queued
// value instead of the front one. Components wrapped in single quotes are
// treated literally, with glob metacharacters escaped.
func Parse(pathStr string) (Path, error) {
	return parse(pathStr, true)
}

// ParseBasic validates the leading slash and component shape but skips
// quote resolution, so quotes pass through as literal characters.
func ParseBasic(pathStr string) (Path, error) {
	return parse(pathStr, false)
}

func parse(pathStr string, full bool) (Path, error) {
	if pathStr == "" || pathStr[0] != '/' {
		return Path{}, core.NewError(core.InvalidPath, "path must be absolute: "+pathStr)
	}

	// tolerate a single trailing slash
	trimmed := pathStr
	if len(trimmed) > 1 && trimmed[len(trimmed)-1] == '/' {
		trimmed = trimmed[:len(trimmed)-1]
	}
	if trimmed == "/" {
		return Path{raw: "/", components: nil}, nil
	}

	parts := strings.Split(trimmed[1:], "/")
	components := make([]string, 0, len(parts))
	p := Path{raw: trimmed, index: -1}

	for i, part := range parts {
		if part == "" || part == "." || part == ".." {
			return Path{}, core.NewError(core.InvalidPathSubcomponent, "invalid path component in "+pathStr)
		}

		if i == len(parts)-1 {
			base, idx, ok := splitIndex(part)
			if ok {
				part = base
				p.index = idx
				p.hasIndex = true
			}
		}

		if full {
			part, err := unquote(part)
			if err != nil {
				return Path{}, err
			}
			if part == "" {
				return Path{}, core.NewError(core.InvalidPathSubcomponent, "empty path component in "+pathStr)
			}
			if glob.IsGlob(part) {
				p.isGlob = true
			}
			components = append(components, part)
			continue
		}

		if glob.IsGlob(part) {
			p.isGlob = true
		}
		components = append(components, part)
	}

	p.components = components
	return p, nil
}

// ParseUnchecked splits pathStr without component validation, for
// callers that already know the string is well formed. Quoting is not
// resolved; index suffixes and glob syntax are still recognized.
func ParseUnchecked(pathStr string) (Path, error) {
	if pathStr == "" || pathStr[0] != '/' {
		return Path{}, core.NewError(core.InvalidPath, "path must be absolute: "+pathStr)
	}
	trimmed := pathStr
	if len(trimmed) > 1 && trimmed[len(trimmed)-1] == '/' {
		trimmed = trimmed[:len(trimmed)-1]
	}
	if trimmed == "/" {
		return Path{raw: "/"}, nil
	}

	parts := strings.Split(trimmed[1:], "/")
	p := Path{raw: trimmed, components: parts, index: -1}
	if base, idx, ok := splitIndex(parts[len(parts)-1]); ok {
		parts[len(parts)-1] = base
		p.index = idx
		p.hasIndex = true
	}
	for _, part := range parts {
		if glob.IsGlob(part) {
			p.isGlob = true
			break
		}
	}
	return p, nil
}

// splitIndex strips a trailing [n] suffix. The brackets must follow a
// non-empty prefix and wrap only digits.
func splitIndex(component string) (base string, index int, ok bool) {
	if len(component) < 3 || component[len(component)-1] != ']' {
		return component, 0, false
	}
	open := strings.LastIndexByte(component, '[')
	if open <= 0 {
		return component, 0, false
	}
	digits := component[open+1 : len(component)-1]
	if digits == "" {
		return component, 0, false
	}
	n := 0
	for i := 0; i < len(digits); i++ {
		ch := digits[i]
		if ch < '0' || ch > '9' {
			return component, 0, false
		}
		n = n*10 + int(ch-'0')
	}
	return component[:open], n, true
}

// unquote resolves single-quoted spans. Inside quotes glob
// metacharacters lose their meaning and are escaped for the matcher.
func unquote(component string) (string, error) {
	if !strings.ContainsRune(component, '\'') {
		return component, nil
	}

	var b strings.Builder
	inQuote := false
	for i := 0; i < len(component); i++ {
		ch := component[i]
		if ch == '\'' {
			inQuote = !inQuote
			continue
		}
		if inQuote && (ch == '*' || ch == '?' || ch == '[' || ch == ']' || ch == '\\') {
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
	}
	if inQuote {
		return "", core.NewError(core.UnmatchedQuotes, "unmatched quote in path component "+component)
	}
	return b.String(), nil
}

// String returns the path as parsed, including any index suffix.
func (p Path) String() string { return p.raw }

// Components returns the validated component chain. The root path has
// an empty chain.
func (p Path) Components() []string { return p.components }

// IsGlob reports whether any component carries glob syntax.
func (p Path) IsGlob() bool { return p.isGlob }

// Index returns the queue index requested by a [n] suffix, and whether
// one was present.
func (p Path) Index() (int, bool) { return p.index, p.hasIndex }

// Join builds a concrete path string from components.
func Join(components []string) string {
	if len(components) == 0 {
		return "/"
	}
	return "/" + strings.Join(components, "/")
}
