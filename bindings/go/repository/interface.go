package repository

import (
	"context"
	"errors"
	"io"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
)

// Realm is the logging realm of repository backends.
const Realm = "repository"

// ErrNotFound is returned by a Resolver if the repository cannot serve an artifact.
var ErrNotFound = errors.New("not found")

// Resolver resolves artifact identifiers against a single repository.
//
// A Resolver signals that it cannot serve an artifact by returning an error,
// usually wrapping ErrNotFound. Callers treat every error as "absent" for
// that repository: unreachable hosts, missing files and checksum mismatches
// never abort a resolution.
type Resolver interface {
	// Resolve returns the artifact with all URLs of this repository that
	// serve it and its SHA-256 hash.
	Resolve(ctx context.Context, id artifact.Identifier, opts ...ResolveOption) (*artifact.Artifact, error)
}

// Fetcher is implemented by resolvers that can stream the content of an
// artifact. It is used to read descriptors that are not available locally.
type Fetcher interface {
	Fetch(ctx context.Context, id artifact.Identifier) (io.ReadCloser, error)
}

// ResolveOptions are the options of a single Resolve call.
type ResolveOptions struct {
	// KnownSHA256 is a hash that was already computed by the caller.
	// Resolvers trust it and only confirm that the artifact exists.
	KnownSHA256 string
}

type ResolveOption func(*ResolveOptions)

// WithKnownSHA256 passes an already known SHA-256 hash to the resolver.
func WithKnownSHA256(sha256 string) ResolveOption {
	return func(o *ResolveOptions) {
		o.KnownSHA256 = sha256
	}
}

// NewResolveOptions applies opts to an empty ResolveOptions.
func NewResolveOptions(opts ...ResolveOption) ResolveOptions {
	var o ResolveOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
