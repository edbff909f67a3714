// Package cache memoises repository answers for the duration of a model build.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
	"gradle2nix.dev/gradle2nix/bindings/go/repository"
)

// DefaultSize is the number of answers kept by a store created with size <= 0.
const DefaultSize = 4096

type key struct {
	repository string
	id         artifact.Identifier
	sha256     string
}

type entry struct {
	artifact  *artifact.Artifact
	err       error
	cancelled bool
}

// Store holds the answers of all resolvers wrapped by it. Found and not
// found answers are kept, failed lookups are not.
type Store struct {
	lru    *expirable.LRU[key, *entry]
	flight singleflight.Group
}

// NewStore creates a store holding up to size answers. Entries never expire,
// a store is meant to live as long as one model build.
func NewStore(size int) *Store {
	if size <= 0 {
		size = DefaultSize
	}
	return &Store{
		lru: expirable.NewLRU[key, *entry](size, nil, 0),
	}
}

// Len returns the number of cached answers.
func (s *Store) Len() int {
	return s.lru.Len()
}

// Wrap returns a resolver answering from the store. name identifies the
// wrapped repository and must be unique within the store.
func (s *Store) Wrap(name string, delegate repository.Resolver) *Resolver {
	return &Resolver{name: name, store: s, delegate: delegate}
}

// Resolver is a caching repository.Resolver.
type Resolver struct {
	name     string
	store    *Store
	delegate repository.Resolver
}

var (
	_ repository.Resolver = (*Resolver)(nil)
	_ repository.Fetcher  = (*Resolver)(nil)
)

// Resolve answers from the store or asks the wrapped resolver once.
// Concurrent calls for the same key share one lookup. Only found and not
// found answers are stored, any other failure is retried by the next call.
func (r *Resolver) Resolve(ctx context.Context, id artifact.Identifier, opts ...repository.ResolveOption) (*artifact.Artifact, error) {
	options := repository.NewResolveOptions(opts...)
	k := key{repository: r.name, id: id, sha256: options.KnownSHA256}

	if cached, ok := r.store.lru.Get(k); ok {
		return cached.result()
	}

	flightKey := fmt.Sprintf("%s|%s|%s", k.repository, k.id, k.sha256)
	for {
		ch := r.store.flight.DoChan(flightKey, func() (any, error) {
			if cached, ok := r.store.lru.Get(k); ok {
				return cached, nil
			}
			a, err := r.delegate.Resolve(ctx, id, opts...)
			e := &entry{artifact: a, err: err, cancelled: ctx.Err() != nil}
			if a != nil {
				clone := a.Clone()
				e.artifact = &clone
			}
			if !e.cancelled && e.cacheable() {
				r.store.lru.Add(k, e)
			}
			return e, nil
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			e := res.Val.(*entry)
			// the shared lookup ran under another caller's context
			if e.cancelled && ctx.Err() == nil {
				continue
			}
			return e.result()
		}
	}
}

func (e *entry) cacheable() bool {
	return e.err == nil || errors.Is(e.err, repository.ErrNotFound)
}

func (e *entry) result() (*artifact.Artifact, error) {
	if e.err != nil {
		return nil, e.err
	}
	if e.artifact == nil {
		return nil, repository.ErrNotFound
	}
	clone := e.artifact.Clone()
	return &clone, nil
}

// Fetch is not cached.
func (r *Resolver) Fetch(ctx context.Context, id artifact.Identifier) (io.ReadCloser, error) {
	fetcher, ok := r.delegate.(repository.Fetcher)
	if !ok {
		return nil, fmt.Errorf("fetching %s from %s: %w", id, r.name, repository.ErrNotFound)
	}
	return fetcher.Fetch(ctx, id)
}

func (r *Resolver) String() string {
	return r.name
}
