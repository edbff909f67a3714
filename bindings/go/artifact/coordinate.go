package artifact

import (
	"cmp"
	"fmt"
	"strings"
)

// Coordinate identifies a module without specifying an artifact type.
type Coordinate struct {
	Group   string `json:"group"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ParseCoordinate parses group:name:version.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Coordinate{}, fmt.Errorf("invalid coordinate %q: expected group:name:version", s)
	}
	for _, part := range parts {
		if part == "" {
			return Coordinate{}, fmt.Errorf("invalid coordinate %q: empty segment", s)
		}
	}
	return Coordinate{Group: parts[0], Name: parts[1], Version: parts[2]}, nil
}

// Identifier returns the identifier of the coordinate's artifact of the given type.
func (c Coordinate) Identifier(typ string) Identifier {
	return New(c.Group, c.Name, c.Version, typ)
}

func (c Coordinate) String() string {
	return c.Group + ":" + c.Name + ":" + c.Version
}

func (c Coordinate) Compare(o Coordinate) int {
	return cmp.Or(
		cmp.Compare(c.Group, o.Group),
		cmp.Compare(c.Name, o.Name),
		cmp.Compare(c.Version, o.Version),
	)
}
