package descriptor

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
)

// ProjectDescriptor is a maven project descriptor.
type ProjectDescriptor struct {
	coordinate artifact.Coordinate
	parent     *artifact.Coordinate
}

var _ Descriptor = (*ProjectDescriptor)(nil)

type pomProject struct {
	XMLName    xml.Name   `xml:"project"`
	GroupID    string     `xml:"groupId"`
	ArtifactID string     `xml:"artifactId"`
	Version    string     `xml:"version"`
	Parent     *pomParent `xml:"parent"`
}

type pomParent struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

// ParseProject reads a POM file. Group and version are inherited from the
// parent when the project does not declare them. A parent that is not fully
// declared, or refers to unresolved properties, makes the descriptor
// malformed.
func ParseProject(r io.Reader) (*ProjectDescriptor, error) {
	var p pomProject
	if err := newDecoder(r).Decode(&p); err != nil {
		return nil, &MalformedError{Kind: KindPOM, Cause: err}
	}

	d := &ProjectDescriptor{
		coordinate: artifact.Coordinate{
			Group:   strings.TrimSpace(p.GroupID),
			Name:    strings.TrimSpace(p.ArtifactID),
			Version: strings.TrimSpace(p.Version),
		},
	}

	if p.Parent != nil {
		parent := artifact.Coordinate{
			Group:   strings.TrimSpace(p.Parent.GroupID),
			Name:    strings.TrimSpace(p.Parent.ArtifactID),
			Version: strings.TrimSpace(p.Parent.Version),
		}
		if err := validateCoordinate(parent); err != nil {
			return nil, malformed(KindPOM, "parent of %s: %w", d.coordinate.Name, err)
		}
		d.parent = &parent
		if d.coordinate.Group == "" {
			d.coordinate.Group = parent.Group
		}
		if d.coordinate.Version == "" {
			d.coordinate.Version = parent.Version
		}
	}

	if d.coordinate.Name == "" {
		return nil, malformed(KindPOM, "project has no artifactId")
	}
	return d, nil
}

func (d *ProjectDescriptor) Kind() Kind {
	return KindPOM
}

func (d *ProjectDescriptor) Coordinate() artifact.Coordinate {
	return d.coordinate
}

// Parent returns the declared parent, if any.
func (d *ProjectDescriptor) Parent() (artifact.Coordinate, bool) {
	if d.parent == nil {
		return artifact.Coordinate{}, false
	}
	return *d.parent, true
}

func (d *ProjectDescriptor) Ancestors() []artifact.Coordinate {
	if d.parent == nil {
		return nil
	}
	return []artifact.Coordinate{*d.parent}
}

func validateCoordinate(c artifact.Coordinate) error {
	for _, part := range []struct{ field, value string }{
		{"group", c.Group},
		{"name", c.Name},
		{"version", c.Version},
	} {
		if part.value == "" {
			return fmt.Errorf("missing %s in %s", part.field, c)
		}
		if strings.Contains(part.value, "${") {
			return fmt.Errorf("unresolved property in %s %q", part.field, part.value)
		}
	}
	return nil
}

func newDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.CharsetReader = charsetReader
	return dec
}

// charsetReader decodes the encoding declared by a descriptor to UTF-8.
// Labels neither IANA nor WHATWG know are read as is.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil || enc == nil {
		if enc, err = htmlindex.Get(label); err != nil {
			return input, nil
		}
	}
	return enc.NewDecoder().Reader(input), nil
}
