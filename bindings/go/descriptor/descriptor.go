// Package descriptor parses module descriptors and follows the links to the
// descriptors they inherit from.
//
// Two families are supported: maven project descriptors (POM files) with at
// most one parent, and ivy module descriptors which may extend any number of
// other descriptors.
package descriptor

import (
	"errors"
	"fmt"
	"io"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
)

// Kind is the family of a descriptor.
type Kind string

const (
	KindPOM Kind = artifact.TypePom
	KindIvy Kind = artifact.TypeIvy
)

// Identifier returns the identifier of the descriptor file of coord.
func (k Kind) Identifier(coord artifact.Coordinate) artifact.Identifier {
	return coord.Identifier(string(k))
}

// Descriptor is a parsed module descriptor.
type Descriptor interface {
	Kind() Kind
	// Coordinate is the coordinate declared by the descriptor, with inherited
	// parts filled in from the parent.
	Coordinate() artifact.Coordinate
	// Ancestors are the descriptors this descriptor inherits from.
	Ancestors() []artifact.Coordinate
}

// MalformedError is returned for descriptors that cannot be parsed or that
// link to an ancestor that cannot be identified.
type MalformedError struct {
	Kind  Kind
	Cause error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s descriptor: %v", e.Kind, e.Cause)
}

func (e *MalformedError) Unwrap() error {
	return e.Cause
}

func malformed(kind Kind, format string, args ...any) error {
	return &MalformedError{Kind: kind, Cause: fmt.Errorf(format, args...)}
}

// Parse reads a descriptor of the given kind.
func Parse(kind Kind, r io.Reader) (Descriptor, error) {
	switch kind {
	case KindPOM:
		return ParseProject(r)
	case KindIvy:
		return ParseLegacy(r)
	default:
		return nil, fmt.Errorf("unsupported descriptor kind %q", kind)
	}
}

// IsMalformed reports whether err is caused by a malformed descriptor.
func IsMalformed(err error) bool {
	var merr *MalformedError
	return errors.As(err, &merr)
}
