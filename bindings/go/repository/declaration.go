package repository

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Type is the kind of a declared repository.
type Type string

const (
	TypeMaven Type = "maven"
	TypeIvy   Type = "ivy"
)

// Declaration describes a repository as configured in the build.
type Declaration struct {
	Name string `json:"name,omitempty"`
	Type Type   `json:"type"`
	URL  string `json:"url"`

	// Layout is the ivy layout name: gradle, maven or ivy.
	Layout string `json:"layout,omitempty"`
	// ArtifactPatterns and IvyPatterns override the layout of ivy repositories.
	ArtifactPatterns []string `json:"artifactPatterns,omitempty"`
	IvyPatterns      []string `json:"ivyPatterns,omitempty"`

	Content     Content      `json:"content,omitempty"`
	Credentials *Credentials `json:"credentials,omitempty"`
}

// Content restricts the groups a repository is consulted for.
// Patterns are globs where '.' separates segments.
type Content struct {
	IncludeGroups []string `json:"includeGroups,omitempty"`
	ExcludeGroups []string `json:"excludeGroups,omitempty"`
}

// IsEmpty reports whether no content rule is configured.
func (c Content) IsEmpty() bool {
	return len(c.IncludeGroups) == 0 && len(c.ExcludeGroups) == 0
}

// Credentials are basic auth credentials for a repository.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (d Declaration) String() string {
	if d.Name != "" {
		return fmt.Sprintf("%s(%s %s)", d.Name, d.Type, d.URL)
	}
	return fmt.Sprintf("%s %s", d.Type, d.URL)
}

// IsLocal reports whether the repository lives on the local filesystem.
// Local repositories cannot be fetched by the packaging layer.
func (d Declaration) IsLocal() bool {
	if d.URL == "" || filepath.IsAbs(d.URL) || strings.HasPrefix(d.URL, ".") {
		return true
	}
	u, err := url.Parse(d.URL)
	if err != nil {
		return false
	}
	return u.Scheme == "" || u.Scheme == "file"
}

// Validate checks that the declaration can be turned into a resolver.
func (d Declaration) Validate() error {
	switch d.Type {
	case TypeMaven, TypeIvy:
	default:
		return fmt.Errorf("repository %s: unsupported type %q", d, d.Type)
	}
	u, err := url.Parse(d.URL)
	if err != nil {
		return fmt.Errorf("repository %s: invalid url: %w", d, err)
	}
	if !d.IsLocal() && u.Host == "" {
		return fmt.Errorf("repository %s: url has no host", d)
	}
	return nil
}
