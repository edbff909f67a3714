package resolution

import (
	"fmt"
	"strings"
)

// Scope is the part of a build a configuration is resolved for. The scope
// selects the repositories that are consulted.
type Scope int

const (
	ScopeSettings Scope = iota
	ScopePlugin
	ScopeBuildscript
	ScopeProject
)

var scopeNames = [...]string{
	ScopeSettings:    "settings",
	ScopePlugin:      "plugin",
	ScopeBuildscript: "buildscript",
	ScopeProject:     "project",
}

// Scopes lists all scopes in resolution order.
func Scopes() []Scope {
	return []Scope{ScopeSettings, ScopePlugin, ScopeBuildscript, ScopeProject}
}

func (s Scope) String() string {
	if s < 0 || int(s) >= len(scopeNames) {
		return fmt.Sprintf("Scope(%d)", int(s))
	}
	return scopeNames[s]
}

// ParseScope parses a scope name case-insensitively.
func ParseScope(name string) (Scope, error) {
	for i, n := range scopeNames {
		if strings.EqualFold(n, name) {
			return Scope(i), nil
		}
	}
	return 0, fmt.Errorf("unknown resolution scope %q", name)
}
