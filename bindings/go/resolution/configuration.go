package resolution

import (
	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
)

// Configuration is the host build's resolution result of one configuration
// of one scope. It is read only.
type Configuration struct {
	Name string `json:"name"`
	// CanBeResolved is false for configurations that only declare
	// dependencies. Absent means resolvable.
	CanBeResolved *bool `json:"canBeResolved,omitempty"`
	// FirstLevel are the modules requested directly.
	FirstLevel []artifact.Coordinate `json:"firstLevel,omitempty"`
	// Artifacts are all files the host located for the configuration.
	Artifacts []ResolvedArtifact `json:"artifacts,omitempty"`
	// Unresolved are the requests the host could not resolve at all.
	Unresolved []Selector `json:"unresolved,omitempty"`
}

// Resolvable reports whether the configuration can be resolved.
func (c *Configuration) Resolvable() bool {
	return c.CanBeResolved == nil || *c.CanBeResolved
}

// ComponentKind is the kind of component owning a resolved artifact.
type ComponentKind string

const (
	// ComponentModule is an external module with a group, name and version.
	ComponentModule ComponentKind = "module"
	// ComponentProject is a project of the build itself.
	ComponentProject ComponentKind = "project"
)

// ResolvedArtifact is a file the host build located.
type ResolvedArtifact struct {
	// Component defaults to ComponentModule.
	Component ComponentKind `json:"component,omitempty"`
	// Project is the path of the owning project for project components.
	Project string `json:"project,omitempty"`

	Group      string `json:"group,omitempty"`
	Name       string `json:"name"`
	Version    string `json:"version,omitempty"`
	Type       string `json:"type"`
	Extension  string `json:"extension,omitempty"`
	Classifier string `json:"classifier,omitempty"`

	// File is the local copy in the host's cache.
	File string `json:"file,omitempty"`
}

// IsModule reports whether the artifact belongs to an external module.
// Only those artifacts can be fetched from a repository.
func (a ResolvedArtifact) IsModule() bool {
	return (a.Component == "" || a.Component == ComponentModule) &&
		a.Group != "" && a.Name != "" && a.Version != ""
}

// Coordinate returns the coordinate of the owning module.
func (a ResolvedArtifact) Coordinate() artifact.Coordinate {
	return artifact.Coordinate{Group: a.Group, Name: a.Name, Version: a.Version}
}

// Identifier returns the artifact identifier. A missing type falls back to
// the extension.
func (a ResolvedArtifact) Identifier() artifact.Identifier {
	typ := a.Type
	if typ == "" {
		typ = a.Extension
	}
	return artifact.New(a.Group, a.Name, a.Version, typ).
		WithExtension(a.Extension).
		WithClassifier(a.Classifier)
}

// Selector is a dependency request. Version is empty for requests without
// a version.
type Selector struct {
	Group   string `json:"group"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Coordinate returns the requested coordinate.
func (s Selector) Coordinate() artifact.Coordinate {
	return artifact.Coordinate{Group: s.Group, Name: s.Name, Version: s.Version}
}
