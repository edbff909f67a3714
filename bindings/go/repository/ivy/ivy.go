// Package ivy resolves artifacts from ivy repositories described by
// artifact and descriptor patterns.
package ivy

import (
	"context"
	"errors"
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

// Repository is a remote ivy repository.
type Repository struct {
	name     string
	base     string
	layout   Layout
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

// New creates a repository rooted at baseURL using layout.
func New(baseURL string, layout Layout, opts ...Option) *Repository {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	return &Repository{
		name:   options.Name,
		base:   strings.TrimSuffix(baseURL, "/"),
		layout: layout,
		endpoint: &remote.Endpoint{
			Client:      options.Client,
			Credentials: options.Credentials,
		},
	}
}

// URLs returns every candidate location of id. Absolute patterns are used
// as they are, relative ones are resolved against the repository URL.
func (r *Repository) URLs(id artifact.Identifier) ([]string, error) {
	tokens := r.layout.Tokens(id)
	patterns := r.layout.Patterns(id)
	urls := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		path, err := Substitute(pattern, tokens)
		if err != nil {
			return nil, err
		}
		if strings.Contains(path, "://") {
			urls = append(urls, path)
		} else {
			urls = append(urls, r.base+"/"+strings.TrimPrefix(path, "/"))
		}
	}
	return urls, nil
}

// Resolve checks every candidate location of id and returns all locations
// that serve it. The hash is taken from the first location unless a known
// hash is passed.
func (r *Repository) Resolve(ctx context.Context, id artifact.Identifier, opts ...repository.ResolveOption) (*artifact.Artifact, error) {
	options := repository.NewResolveOptions(opts...)
	candidates, err := r.URLs(id)
	if err != nil {
		return nil, fmt.Errorf("resolving %s in %s failed: %w", id, r, err)
	}

	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", repository.Realm))

	hash := options.KnownSHA256
	var (
		found []string
		errs  []error
	)
	for _, url := range candidates {
		logger.Log(ctx, slog.LevelDebug, "probing artifact",
			slog.String("repository", r.String()),
			slog.String("artifact", id.String()),
			slog.String("url", url),
		)
		if hash == "" {
			if hash, err = r.endpoint.SHA256(ctx, url); err != nil {
				errs = append(errs, err)
				continue
			}
		} else if err := r.endpoint.Exists(ctx, url); err != nil {
			errs = append(errs, err)
			continue
		}
		found = append(found, url)
	}
	if len(found) == 0 {
		if len(errs) == 0 {
			errs = append(errs, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("resolving %s in %s failed: %w", id, r, errors.Join(errs...))
	}

	a := artifact.NewArtifact(id, hash, found...)
	return &a, nil
}

// Fetch streams the content of id from the first location that serves it.
func (r *Repository) Fetch(ctx context.Context, id artifact.Identifier) (io.ReadCloser, error) {
	candidates, err := r.URLs(id)
	if err != nil {
		return nil, err
	}
	var errs []error
	for _, url := range candidates {
		rc, err := r.endpoint.Open(ctx, url)
		if err == nil {
			return rc, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		errs = append(errs, repository.ErrNotFound)
	}
	return nil, fmt.Errorf("fetching %s from %s failed: %w", id, r, errors.Join(errs...))
}

func (r *Repository) String() string {
	if r.name != "" {
		return r.name
	}
	return r.base
}
