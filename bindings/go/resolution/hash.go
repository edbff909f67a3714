package resolution

import (
	"fmt"
	"os"
	"sync"

	"github.com/opencontainers/go-digest"
)

// fileHasher computes SHA-256 hashes of local files once per path.
type fileHasher struct {
	mu    sync.Mutex
	cache map[string]string
}

func newFileHasher() *fileHasher {
	return &fileHasher{cache: make(map[string]string)}
}

func (h *fileHasher) hash(path string) (string, error) {
	h.mu.Lock()
	cached, ok := h.cache[path]
	h.mu.Unlock()
	if ok {
		return cached, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s failed: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	dig, err := digest.SHA256.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("hashing %s failed: %w", path, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache[path] = dig.Encoded()
	return dig.Encoded(), nil
}

// localHash returns the hash of the host's copy of an artifact.
//
// Descriptors are never hashed locally: some repositories serve POM and ivy
// files with CRLF line endings while the host stores them normalized, so the
// local hash would not match the file a fixed-output fetch downloads.
// The repositories determine the hash of descriptors instead.
func (h *fileHasher) localHash(a ResolvedArtifact) (string, error) {
	if a.File == "" || a.Identifier().IsDescriptor() {
		return "", nil
	}
	return h.hash(a.File)
}
