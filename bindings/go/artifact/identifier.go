package artifact

import (
	"cmp"
	"fmt"
	"strings"
)

// Well known artifact types.
const (
	TypeJar    = "jar"
	TypePom    = "pom"
	TypeIvy    = "ivy"
	TypeModule = "module"

	// ExtensionIvy is the file extension of ivy descriptors. Ivy is the only
	// type whose extension differs from the type name.
	ExtensionIvy = "xml"
)

// Identifier uniquely identifies a single artifact file of a module.
// Two identifiers denote the same artifact if and only if all fields match.
// An empty Classifier means the artifact has no classifier.
type Identifier struct {
	Group      string `json:"group"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	Type       string `json:"type"`
	Extension  string `json:"extension"`
	Classifier string `json:"classifier,omitempty"`
}

// New creates an identifier for the given coordinate parts and type.
// The extension defaults to the type, except for ivy descriptors which are
// always stored as xml.
func New(group, name, version, typ string) Identifier {
	ext := typ
	if typ == TypeIvy {
		ext = ExtensionIvy
	}
	return Identifier{
		Group:     group,
		Name:      name,
		Version:   version,
		Type:      typ,
		Extension: ext,
	}
}

// WithExtension returns a copy of the identifier with the given extension.
// An empty extension keeps the current one.
func (i Identifier) WithExtension(ext string) Identifier {
	if ext != "" {
		i.Extension = ext
	}
	return i
}

// WithClassifier returns a copy of the identifier with the given classifier.
func (i Identifier) WithClassifier(classifier string) Identifier {
	i.Classifier = classifier
	return i
}

// Coordinate returns the module coordinate the artifact belongs to.
func (i Identifier) Coordinate() Coordinate {
	return Coordinate{Group: i.Group, Name: i.Name, Version: i.Version}
}

// IsDescriptor reports whether the artifact is a metadata descriptor.
// Descriptors are never hashed from the local copy of the host tool, because
// mirrors may serve them with different line endings than the normalized
// copy on disk.
func (i Identifier) IsDescriptor() bool {
	return i.Type == TypePom || i.Type == TypeIvy
}

// Filename renders the maven style file name of the artifact:
// name-version[-classifier].extension
func (i Identifier) Filename() string {
	var sb strings.Builder
	sb.WriteString(i.Name)
	sb.WriteByte('-')
	sb.WriteString(i.Version)
	if i.Classifier != "" {
		sb.WriteByte('-')
		sb.WriteString(i.Classifier)
	}
	if i.Extension != "" {
		sb.WriteByte('.')
		sb.WriteString(i.Extension)
	}
	return sb.String()
}

// String renders group:name:version[:classifier]@extension followed by the
// type if it differs from the extension.
func (i Identifier) String() string {
	var sb strings.Builder
	sb.WriteString(i.Group)
	sb.WriteByte(':')
	sb.WriteString(i.Name)
	sb.WriteByte(':')
	sb.WriteString(i.Version)
	if i.Classifier != "" {
		sb.WriteByte(':')
		sb.WriteString(i.Classifier)
	}
	sb.WriteByte('@')
	sb.WriteString(i.Extension)
	if i.Type != i.Extension {
		fmt.Fprintf(&sb, " (%s)", i.Type)
	}
	return sb.String()
}

// Compare orders identifiers lexicographically by group, name, version, type,
// classifier and extension.
func (i Identifier) Compare(o Identifier) int {
	return cmp.Or(
		cmp.Compare(i.Group, o.Group),
		cmp.Compare(i.Name, o.Name),
		cmp.Compare(i.Version, o.Version),
		cmp.Compare(i.Type, o.Type),
		cmp.Compare(i.Classifier, o.Classifier),
		cmp.Compare(i.Extension, o.Extension),
	)
}

// CompareIdentifiers is Identifier.Compare as a plain function, for use with
// the slices package.
func CompareIdentifiers(a, b Identifier) int {
	return a.Compare(b)
}
