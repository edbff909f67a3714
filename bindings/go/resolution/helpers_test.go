package resolution_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/require"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
	"gradle2nix.dev/gradle2nix/bindings/go/descriptor"
	"gradle2nix.dev/gradle2nix/bindings/go/repository"
)

// memoryRepository serves files from memory. URLs are <base>/<group>/<file>.
type memoryRepository struct {
	base  string
	files map[artifact.Identifier]string
	calls atomic.Int32
}

func newMemoryRepository(base string) *memoryRepository {
	return &memoryRepository{base: base, files: make(map[artifact.Identifier]string)}
}

func (m *memoryRepository) with(id artifact.Identifier, content string) *memoryRepository {
	m.files[id] = content
	return m
}

func (m *memoryRepository) url(id artifact.Identifier) string {
	return m.base + "/" + id.Group + "/" + id.Filename()
}

func (m *memoryRepository) Resolve(_ context.Context, id artifact.Identifier, opts ...repository.ResolveOption) (*artifact.Artifact, error) {
	m.calls.Add(1)
	content, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, repository.ErrNotFound)
	}
	hash := repository.NewResolveOptions(opts...).KnownSHA256
	if hash == "" {
		hash = digest.SHA256.FromString(content).Encoded()
	}
	a := artifact.NewArtifact(id, hash, m.url(id))
	return &a, nil
}

func (m *memoryRepository) Fetch(_ context.Context, id artifact.Identifier) (io.ReadCloser, error) {
	content, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, repository.ErrNotFound)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (m *memoryRepository) String() string {
	return m.base
}

func coord(t testing.TB, s string) artifact.Coordinate {
	t.Helper()
	c, err := artifact.ParseCoordinate(s)
	require.NoError(t, err)
	return c
}

func pomXML(c artifact.Coordinate, parent *artifact.Coordinate) string {
	var sb strings.Builder
	sb.WriteString("<project>\n")
	if parent != nil {
		fmt.Fprintf(&sb, "  <parent><groupId>%s</groupId><artifactId>%s</artifactId><version>%s</version></parent>\n",
			parent.Group, parent.Name, parent.Version)
	}
	fmt.Fprintf(&sb, "  <groupId>%s</groupId>\n  <artifactId>%s</artifactId>\n  <version>%s</version>\n</project>\n",
		c.Group, c.Name, c.Version)
	return sb.String()
}

// latin1 declares doc as ISO-8859-1 and adds a comment with non-ASCII
// Latin-1 bytes.
func latin1(doc string) string {
	return "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<!-- Jos\xe9 M\xfcller -->\n" + doc
}

func ivyXML(c artifact.Coordinate, extends ...artifact.Coordinate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<ivy-module version=\"2.0\">\n  <info organisation=%q module=%q revision=%q>\n",
		c.Group, c.Name, c.Version)
	for _, e := range extends {
		fmt.Fprintf(&sb, "    <extends organisation=%q module=%q revision=%q/>\n", e.Group, e.Name, e.Version)
	}
	sb.WriteString("  </info>\n</ivy-module>\n")
	return sb.String()
}

func writeFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sha256Of(content string) string {
	return digest.SHA256.FromString(content).Encoded()
}

type mapLocator map[artifact.Identifier]string

func (m mapLocator) Locate(_ context.Context, id artifact.Identifier) (io.ReadCloser, error) {
	content, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, descriptor.ErrNotFound)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func repositoryLocator(repos ...*memoryRepository) descriptor.Locator {
	resolvers := make([]repository.Resolver, 0, len(repos))
	for _, r := range repos {
		resolvers = append(resolvers, r)
	}
	return descriptor.NewFetcherLocator(resolvers)
}
