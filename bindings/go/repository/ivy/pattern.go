package ivy

import (
	"fmt"
	"strings"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
)

// Layout names.
const (
	LayoutGradle = "gradle"
	LayoutMaven  = "maven"
	LayoutIvy    = "ivy"
)

// Layout is a set of artifact and descriptor patterns.
type Layout struct {
	ArtifactPatterns []string
	IvyPatterns      []string
	// M2Compatible replaces the dots of the organisation with slashes.
	M2Compatible bool
}

// LayoutByName returns the predefined layout name.
// An empty name selects the gradle layout.
func LayoutByName(name string) (Layout, error) {
	switch name {
	case "", LayoutGradle:
		return Layout{
			ArtifactPatterns: []string{"[organisation]/[module]/[revision]/[artifact]-[revision](-[classifier])(.[ext])"},
			IvyPatterns:      []string{"[organisation]/[module]/[revision]/ivy-[revision].xml"},
		}, nil
	case LayoutMaven:
		return Layout{
			ArtifactPatterns: []string{"[organisation]/[module]/[revision]/[artifact]-[revision](-[classifier])(.[ext])"},
			IvyPatterns:      []string{"[organisation]/[module]/[revision]/ivy-[revision].xml"},
			M2Compatible:     true,
		}, nil
	case LayoutIvy:
		return Layout{
			ArtifactPatterns: []string{"[organisation]/[module]/[revision]/[type]s/[artifact](-[classifier])(.[ext])"},
			IvyPatterns:      []string{"[organisation]/[module]/[revision]/[type]s/[artifact](.[ext])"},
		}, nil
	default:
		return Layout{}, fmt.Errorf("unknown ivy layout %q", name)
	}
}

// Tokens returns the pattern token values for id.
func (l Layout) Tokens(id artifact.Identifier) map[string]string {
	org := id.Group
	if l.M2Compatible {
		org = strings.ReplaceAll(org, ".", "/")
	}
	tokens := map[string]string{
		"organisation": org,
		"organization": org,
		"module":       id.Name,
		"revision":     id.Version,
		"artifact":     id.Name,
		"type":         id.Type,
		"ext":          id.Extension,
		"classifier":   id.Classifier,
	}
	if id.Type == artifact.TypeIvy {
		tokens["artifact"] = "ivy"
		tokens["ext"] = artifact.ExtensionIvy
	}
	return tokens
}

// Patterns returns the patterns that apply to id.
func (l Layout) Patterns(id artifact.Identifier) []string {
	if id.Type == artifact.TypeIvy {
		return l.IvyPatterns
	}
	return l.ArtifactPatterns
}

// Substitute replaces every [token] in pattern. Optional parts enclosed in
// parentheses are dropped if any token inside them is empty.
func Substitute(pattern string, tokens map[string]string) (string, error) {
	var (
		out      strings.Builder
		optional strings.Builder
		inGroup  bool
		empty    bool
	)
	target := &out
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '[':
			end := strings.IndexByte(pattern[i:], ']')
			if end < 0 {
				return "", fmt.Errorf("unterminated token in pattern %q", pattern)
			}
			name := pattern[i+1 : i+end]
			value, ok := tokens[name]
			if !ok {
				return "", fmt.Errorf("unknown token [%s] in pattern %q", name, pattern)
			}
			if value == "" {
				empty = true
			}
			target.WriteString(value)
			i += end
		case '(':
			if inGroup {
				return "", fmt.Errorf("nested optional part in pattern %q", pattern)
			}
			inGroup, empty = true, false
			optional.Reset()
			target = &optional
		case ')':
			if !inGroup {
				return "", fmt.Errorf("unbalanced ')' in pattern %q", pattern)
			}
			if !empty {
				out.WriteString(optional.String())
			}
			inGroup = false
			target = &out
		default:
			target.WriteByte(c)
		}
	}
	if inGroup {
		return "", fmt.Errorf("unterminated optional part in pattern %q", pattern)
	}
	return out.String(), nil
}
