package artifact

import (
	"fmt"
	"slices"
)

// HashConflict records that different sources reported different hashes for
// the same artifact.
type HashConflict struct {
	Identifier Identifier
	Hashes     []string
}

func (c HashConflict) String() string {
	return fmt.Sprintf("%s: conflicting sha256 %v", c.Identifier, c.Hashes)
}

// Merge collapses artifacts sharing an identifier into a single record whose
// URLs are the union of all members. The result is sorted by identifier and
// does not depend on the order of the input.
func Merge(artifacts []Artifact) []Artifact {
	merged, _ := MergeWithConflicts(artifacts)
	return merged
}

// MergeWithConflicts works like Merge and additionally reports every
// identifier for which the members disagree on the hash. In that case the
// lexicographically smallest hash is kept so that the result stays
// independent of the input order.
func MergeWithConflicts(artifacts []Artifact) ([]Artifact, []HashConflict) {
	type group struct {
		urls   []string
		hashes []string
	}
	groups := make(map[Identifier]*group, len(artifacts))
	for _, a := range artifacts {
		g, ok := groups[a.Identifier]
		if !ok {
			g = &group{}
			groups[a.Identifier] = g
		}
		g.urls = append(g.urls, a.URLs...)
		if a.SHA256 != "" {
			g.hashes = append(g.hashes, a.SHA256)
		}
	}

	result := make([]Artifact, 0, len(groups))
	var conflicts []HashConflict
	for id, g := range groups {
		slices.Sort(g.hashes)
		g.hashes = slices.Compact(g.hashes)
		var hash string
		if len(g.hashes) > 0 {
			hash = g.hashes[0]
		}
		if len(g.hashes) > 1 {
			conflicts = append(conflicts, HashConflict{Identifier: id, Hashes: g.hashes})
		}
		result = append(result, NewArtifact(id, hash, g.urls...))
	}
	slices.SortFunc(result, CompareArtifacts)
	slices.SortFunc(conflicts, func(a, b HashConflict) int {
		return a.Identifier.Compare(b.Identifier)
	})
	return result, conflicts
}

// WithURLs drops every artifact without a source URL.
func WithURLs(artifacts []Artifact) []Artifact {
	return slices.DeleteFunc(slices.Clone(artifacts), func(a Artifact) bool {
		return !a.HasURLs()
	})
}

// Without drops every artifact whose identifier is contained in ids.
func Without(artifacts []Artifact, ids []Identifier) []Artifact {
	if len(ids) == 0 {
		return artifacts
	}
	excluded := make(map[Identifier]struct{}, len(ids))
	for _, id := range ids {
		excluded[id] = struct{}{}
	}
	return slices.DeleteFunc(slices.Clone(artifacts), func(a Artifact) bool {
		_, ok := excluded[a.Identifier]
		return ok
	})
}

// Identifiers returns the identifiers of the given artifacts in order.
func Identifiers(artifacts []Artifact) []Identifier {
	ids := make([]Identifier, 0, len(artifacts))
	for _, a := range artifacts {
		ids = append(ids, a.Identifier)
	}
	return ids
}

// SortedUnique sorts identifiers and removes duplicates.
func SortedUnique(ids []Identifier) []Identifier {
	out := slices.Clone(ids)
	slices.SortFunc(out, CompareIdentifiers)
	return slices.Compact(out)
}
