// Package maven resolves artifacts from repositories using the maven2 layout.
package maven

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	slogcontext "github.com/veqryn/slog-context"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
	"gradle2nix.dev/gradle2nix/bindings/go/repository"
	"gradle2nix.dev/gradle2nix/bindings/go/repository/internal/remote"
)

// Repository is a remote maven2 repository.
type Repository struct {
	name     string
	base     string
	endpoint *remote.Endpoint
}

var (
	_ repository.Resolver = (*Repository)(nil)
	_ repository.Fetcher  = (*Repository)(nil)
)

type Options struct {
	Name        string
	Client      *http.Client
	Credentials *repository.Credentials
}

type Option func(*Options)

// WithName sets the name used in logs.
func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithHTTPClient sets the client used for all requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.Client = client
	}
}

// WithCredentials enables basic authentication.
func WithCredentials(credentials *repository.Credentials) Option {
	return func(o *Options) {
		o.Credentials = credentials
	}
}

// New creates a repository rooted at baseURL.
func New(baseURL string, opts ...Option) *Repository {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	return &Repository{
		name: options.Name,
		base: strings.TrimSuffix(baseURL, "/"),
		endpoint: &remote.Endpoint{
			Client:      options.Client,
			Credentials: options.Credentials,
		},
	}
}

// URL returns the location of id in the repository:
// <base>/<group as path>/<name>/<version>/<name>-<version>[-<classifier>].<ext>
func (r *Repository) URL(id artifact.Identifier) string {
	return strings.Join([]string{
		r.base,
		strings.ReplaceAll(id.Group, ".", "/"),
		id.Name,
		id.Version,
		id.Filename(),
	}, "/")
}

// Resolve confirms that the repository serves id and determines its hash.
// With a known hash only the existence of the file is checked, otherwise
// the published .sha256 checksum is read or the file is downloaded.
func (r *Repository) Resolve(ctx context.Context, id artifact.Identifier, opts ...repository.ResolveOption) (*artifact.Artifact, error) {
	options := repository.NewResolveOptions(opts...)
	url := r.URL(id)

	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", repository.Realm))
	logger.Log(ctx, slog.LevelDebug, "resolving artifact",
		slog.String("repository", r.String()),
		slog.String("artifact", id.String()),
		slog.String("url", url),
	)

	hash := options.KnownSHA256
	if hash != "" {
		if err := r.endpoint.Exists(ctx, url); err != nil {
			return nil, fmt.Errorf("resolving %s in %s failed: %w", id, r, err)
		}
	} else {
		var err error
		if hash, err = r.endpoint.SHA256(ctx, url); err != nil {
			return nil, fmt.Errorf("resolving %s in %s failed: %w", id, r, err)
		}
	}

	a := artifact.NewArtifact(id, hash, url)
	return &a, nil
}

// Fetch streams the content of id.
func (r *Repository) Fetch(ctx context.Context, id artifact.Identifier) (io.ReadCloser, error) {
	rc, err := r.endpoint.Open(ctx, r.URL(id))
	if err != nil {
		return nil, fmt.Errorf("fetching %s from %s failed: %w", id, r, err)
	}
	return rc, nil
}

func (r *Repository) String() string {
	if r.name != "" {
		return r.name
	}
	return r.base
}
