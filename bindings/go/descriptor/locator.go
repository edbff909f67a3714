package descriptor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
	"gradle2nix.dev/gradle2nix/bindings/go/repository"
)

// ErrNotFound is returned by a Locator that has no content for a descriptor.
var ErrNotFound = errors.New("descriptor not found")

// Locator provides the content of descriptor files.
type Locator interface {
	Locate(ctx context.Context, id artifact.Identifier) (io.ReadCloser, error)
}

// LocatorFunc adapts a function to a Locator.
type LocatorFunc func(ctx context.Context, id artifact.Identifier) (io.ReadCloser, error)

func (f LocatorFunc) Locate(ctx context.Context, id artifact.Identifier) (io.ReadCloser, error) {
	return f(ctx, id)
}

// Chain asks each locator in order and returns the first content found.
type Chain []Locator

func (c Chain) Locate(ctx context.Context, id artifact.Identifier) (io.ReadCloser, error) {
	for _, l := range c {
		if l == nil {
			continue
		}
		rc, err := l.Locate(ctx, id)
		if err == nil {
			return rc, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
}

// FetcherLocator reads descriptors from the repositories that can stream
// content, in order.
type FetcherLocator struct {
	fetchers []repository.Fetcher
}

// NewFetcherLocator uses every resolver that implements repository.Fetcher.
func NewFetcherLocator(resolvers []repository.Resolver) *FetcherLocator {
	l := &FetcherLocator{}
	for _, r := range resolvers {
		if f, ok := r.(repository.Fetcher); ok {
			l.fetchers = append(l.fetchers, f)
		}
	}
	return l
}

func (l *FetcherLocator) Locate(ctx context.Context, id artifact.Identifier) (io.ReadCloser, error) {
	for _, f := range l.fetchers {
		rc, err := f.Fetch(ctx, id)
		if err == nil {
			return rc, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
}

// Load locates and parses the descriptor of the given kind for coord.
// It returns ErrNotFound if no locator has the descriptor and a
// MalformedError if it cannot be parsed.
func Load(ctx context.Context, locator Locator, coord artifact.Coordinate, kind Kind) (Descriptor, error) {
	rc, err := locator.Locate(ctx, kind.Identifier(coord))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rc.Close()
	}()
	d, err := Parse(kind, rc)
	if err != nil {
		return nil, fmt.Errorf("parsing %s descriptor of %s failed: %w", kind, coord, err)
	}
	return d, nil
}
