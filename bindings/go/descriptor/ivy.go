package descriptor

import (
	"encoding/xml"
	"io"
	"strings"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
)

// LegacyDescriptor is an ivy module descriptor.
type LegacyDescriptor struct {
	coordinate artifact.Coordinate
	extends    []artifact.Coordinate
}

var _ Descriptor = (*LegacyDescriptor)(nil)

type ivyModule struct {
	XMLName xml.Name `xml:"ivy-module"`
	Info    *ivyInfo `xml:"info"`
}

type ivyInfo struct {
	Organisation string       `xml:"organisation,attr"`
	Module       string       `xml:"module,attr"`
	Revision     string       `xml:"revision,attr"`
	Extends      []ivyExtends `xml:"extends"`
}

type ivyExtends struct {
	Organisation string `xml:"organisation,attr"`
	Module       string `xml:"module,attr"`
	Revision     string `xml:"revision,attr"`
}

// ParseLegacy reads an ivy.xml file. An extends element without an
// organisation refers to the organisation of the extending module.
func ParseLegacy(r io.Reader) (*LegacyDescriptor, error) {
	var m ivyModule
	if err := newDecoder(r).Decode(&m); err != nil {
		return nil, &MalformedError{Kind: KindIvy, Cause: err}
	}
	if m.Info == nil {
		return nil, malformed(KindIvy, "missing info element")
	}

	d := &LegacyDescriptor{
		coordinate: artifact.Coordinate{
			Group:   strings.TrimSpace(m.Info.Organisation),
			Name:    strings.TrimSpace(m.Info.Module),
			Version: strings.TrimSpace(m.Info.Revision),
		},
	}
	if d.coordinate.Name == "" {
		return nil, malformed(KindIvy, "info has no module")
	}

	for _, ext := range m.Info.Extends {
		parent := artifact.Coordinate{
			Group:   strings.TrimSpace(ext.Organisation),
			Name:    strings.TrimSpace(ext.Module),
			Version: strings.TrimSpace(ext.Revision),
		}
		if parent.Group == "" {
			parent.Group = d.coordinate.Group
		}
		if err := validateCoordinate(parent); err != nil {
			return nil, malformed(KindIvy, "extends of %s: %w", d.coordinate, err)
		}
		d.extends = append(d.extends, parent)
	}
	return d, nil
}

func (d *LegacyDescriptor) Kind() Kind {
	return KindIvy
}

func (d *LegacyDescriptor) Coordinate() artifact.Coordinate {
	return d.coordinate
}

func (d *LegacyDescriptor) Ancestors() []artifact.Coordinate {
	return d.extends
}
