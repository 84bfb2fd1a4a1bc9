// Package capability gates store operations by path pattern.
package capability

import (
	"strings"

	"github.com/voodooEntity/pathspace/src/system/core"
	"github.com/voodooEntity/pathspace/src/system/glob"
)

// Perm is a bitmask of granted operation classes.
type Perm uint8

const (
	Read Perm = 1 << iota
	Write
	Execute

	All = Read | Write | Execute
)

// Rule grants the permissions in Perms on every path the glob pattern
// covers.
type Rule struct {
	Pattern string
	Perms   Perm
}

// Capabilities is a set of grant rules. The zero value is unrestricted
// and allows everything; an empty non-nil rule list denies everything.
type Capabilities struct {
	rules      []compiledRule
	restricted bool
}

type compiledRule struct {
	components []string
	perms      Perm
}

// New compiles a restricted capability set from rules. Patterns are
// absolute paths and may contain globs.
func New(rules ...Rule) (Capabilities, error) {
	c := Capabilities{restricted: true}
	for _, r := range rules {
		if r.Pattern == "" || r.Pattern[0] != '/' {
			return Capabilities{}, core.NewError(core.InvalidPath, "capability pattern must be absolute: "+r.Pattern)
		}
		pattern := r.Pattern
		if len(pattern) > 1 && pattern[len(pattern)-1] == '/' {
			pattern = pattern[:len(pattern)-1]
		}
		var components []string
		if pattern != "/" {
			components = strings.Split(pattern[1:], "/")
		}
		c.rules = append(c.rules, compiledRule{components: components, perms: r.Perms})
	}
	return c, nil
}

// Unrestricted returns a capability set that permits every operation.
func Unrestricted() Capabilities { return Capabilities{} }

// IsRestricted reports whether the set carries rules at all.
func (c Capabilities) IsRestricted() bool { return c.restricted }

// Allows reports whether the given permission is granted on the
// concrete path components. Grants from all matching rules accumulate.
func (c Capabilities) Allows(perm Perm, components []string) bool {
	if !c.restricted {
		return true
	}
	var granted Perm
	for _, r := range c.rules {
		if glob.MatchPath(r.components, components) {
			granted |= r.perms
		}
	}
	return granted&perm == perm
}

// Check returns the capability error for a denied operation, nil when
// allowed. Write denials carry their own code.
func (c Capabilities) Check(perm Perm, components []string, pathStr string) error {
	if c.Allows(perm, components) {
		return nil
	}
	if perm&Write != 0 {
		return core.NewError(core.CapabilityWriteMissing, "no write capability for "+pathStr)
	}
	return core.NewError(core.CapabilityMismatch, "operation not permitted on "+pathStr)
}
