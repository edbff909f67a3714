package artifact

import (
	"slices"
)

// Artifact is a resolved artifact: its identity, every URL known to serve it
// and its SHA-256 content hash, if one could be determined.
//
// The identifier is embedded so that encoded artifacts keep the field order
// group, name, version, type, extension, classifier, urls, sha256.
type Artifact struct {
	Identifier
	URLs   []string `json:"urls"`
	SHA256 string   `json:"sha256,omitempty"`
}

// NewArtifact creates an artifact with a normalized URL set.
func NewArtifact(id Identifier, sha256 string, urls ...string) Artifact {
	return Artifact{
		Identifier: id,
		URLs:       normalizeURLs(urls),
		SHA256:     sha256,
	}
}

// HasURLs reports whether at least one source URL is known. Artifacts
// without URLs cannot be fetched and are never part of a manifest.
func (a Artifact) HasURLs() bool {
	return len(a.URLs) > 0
}

// Clone returns a deep copy of the artifact.
func (a Artifact) Clone() Artifact {
	a.URLs = slices.Clone(a.URLs)
	return a
}

// CompareArtifacts orders artifacts by identifier.
func CompareArtifacts(a, b Artifact) int {
	return a.Identifier.Compare(b.Identifier)
}

func normalizeURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u != "" {
			out = append(out, u)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
