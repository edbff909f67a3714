// Package gradlecache reads descriptors from the module cache of a Gradle
// user home, where the host build already downloaded them.
package gradlecache

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
	"gradle2nix.dev/gradle2nix/bindings/go/descriptor"
)

// FilesDir is the location of the artifact store below the Gradle user home.
// Files are stored as <group>/<name>/<version>/<sha1>/<file>.
var FilesDir = filepath.Join("caches", "modules-2", "files-2.1")

// Locator is a descriptor.Locator backed by the Gradle module cache.
type Locator struct {
	fsys fs.FS
}

var _ descriptor.Locator = (*Locator)(nil)

// New creates a locator for the cache of gradleUserHome.
func New(gradleUserHome string) *Locator {
	return NewFS(os.DirFS(filepath.Join(gradleUserHome, FilesDir)))
}

// NewFS creates a locator for a files-2.1 directory tree.
func NewFS(fsys fs.FS) *Locator {
	return &Locator{fsys: fsys}
}

// Filename returns the name of the cached file of a descriptor. Ivy
// descriptors are stored as ivy-<version>.xml, everything else under its
// maven file name.
func Filename(id artifact.Identifier) string {
	if id.Type == artifact.TypeIvy {
		return "ivy-" + id.Version + "." + artifact.ExtensionIvy
	}
	return id.Filename()
}

// Locate opens the first cached copy of id. Copies are looked up in the
// order of their content hash directories.
func (l *Locator) Locate(_ context.Context, id artifact.Identifier) (io.ReadCloser, error) {
	dir := path.Join(id.Group, id.Name, id.Version)
	if !fs.ValidPath(dir) {
		return nil, fmt.Errorf("%s: invalid cache path %q: %w", id, dir, descriptor.ErrNotFound)
	}
	entries, err := fs.ReadDir(l.fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, descriptor.ErrNotFound)
	}
	name := Filename(id)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		f, err := l.fsys.Open(path.Join(dir, entry.Name(), name))
		if err != nil {
			continue
		}
		return f, nil
	}
	return nil, fmt.Errorf("%s: not in gradle cache: %w", id, descriptor.ErrNotFound)
}
