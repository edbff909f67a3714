// Package factory turns repository declarations into resolvers.
package factory

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	slogcontext "github.com/veqryn/slog-context"

	"gradle2nix.dev/gradle2nix/bindings/go/repository"
	"gradle2nix.dev/gradle2nix/bindings/go/repository/cache"
	"gradle2nix.dev/gradle2nix/bindings/go/repository/filter"
	"gradle2nix.dev/gradle2nix/bindings/go/repository/internal/remote"
	"gradle2nix.dev/gradle2nix/bindings/go/repository/ivy"
	"gradle2nix.dev/gradle2nix/bindings/go/repository/maven"
)

// PluginPortalURL is the maven repository of the Gradle Plugin Portal.
const PluginPortalURL = "https://plugins.gradle.org/m2"

// PluginPortal is the declaration used for plugin resolution when no plugin
// repositories are declared.
func PluginPortal() repository.Declaration {
	return repository.Declaration{
		Name: "Gradle Central Plugin Repository",
		Type: repository.TypeMaven,
		URL:  PluginPortalURL,
	}
}

// Options configures the creation of resolvers.
type Options struct {
	// Client is used by all remote repositories. Defaults to http.DefaultClient.
	Client *http.Client
	// Store caches the answers of the created resolvers if set.
	Store *cache.Store
}

// New creates one resolver per declaration, keeping the declaration order.
// Local repositories are skipped: files on the build machine cannot be
// fetched by the packaging layer. Invalid declarations are an error.
func New(ctx context.Context, declarations []repository.Declaration, opts Options) ([]repository.Resolver, error) {
	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", repository.Realm))

	resolvers := make([]repository.Resolver, 0, len(declarations))
	seen := make(map[string]struct{}, len(declarations))
	for _, decl := range declarations {
		if decl.IsLocal() {
			logger.Log(ctx, slog.LevelDebug, "skipping local repository", slog.String("repository", decl.String()))
			continue
		}
		if err := decl.Validate(); err != nil {
			return nil, err
		}

		key := cacheKey(decl)
		if _, ok := seen[key]; ok {
			logger.Log(ctx, slog.LevelDebug, "skipping duplicate repository", slog.String("repository", decl.String()))
			continue
		}
		seen[key] = struct{}{}

		r, err := newResolver(decl, opts.Client)
		if err != nil {
			return nil, err
		}
		if !decl.Content.IsEmpty() {
			if r, err = filter.New(r, filter.Rules{
				IncludeGroups: decl.Content.IncludeGroups,
				ExcludeGroups: decl.Content.ExcludeGroups,
			}); err != nil {
				return nil, fmt.Errorf("repository %s: %w", decl, err)
			}
		}
		if opts.Store != nil {
			r = opts.Store.Wrap(key, r)
		}
		resolvers = append(resolvers, r)
	}
	return resolvers, nil
}

func newResolver(decl repository.Declaration, client *http.Client) (repository.Resolver, error) {
	switch decl.Type {
	case repository.TypeMaven:
		return maven.New(decl.URL,
			maven.WithName(decl.String()),
			maven.WithHTTPClient(client),
			maven.WithCredentials(decl.Credentials),
		), nil
	case repository.TypeIvy:
		layout, err := ivy.LayoutByName(decl.Layout)
		if err != nil {
			return nil, fmt.Errorf("repository %s: %w", decl, err)
		}
		if len(decl.ArtifactPatterns) > 0 {
			layout.ArtifactPatterns = decl.ArtifactPatterns
		}
		if len(decl.IvyPatterns) > 0 {
			layout.IvyPatterns = decl.IvyPatterns
		}
		return ivy.New(decl.URL, layout,
			ivy.WithName(decl.String()),
			ivy.WithHTTPClient(client),
			ivy.WithCredentials(decl.Credentials),
		), nil
	default:
		return nil, fmt.Errorf("repository %s: unsupported type %q", decl, decl.Type)
	}
}

// cacheKey identifies a declaration independent of its display name, so
// the same repository declared in several scopes shares cached answers.
func cacheKey(decl repository.Declaration) string {
	key := fmt.Sprintf("%s|%s|%s|%v|%v|%v|%v",
		decl.Type, decl.URL, decl.Layout,
		decl.ArtifactPatterns, decl.IvyPatterns,
		slices.Sorted(slices.Values(decl.Content.IncludeGroups)),
		slices.Sorted(slices.Values(decl.Content.ExcludeGroups)),
	)
	if decl.Credentials != nil {
		key += "|" + decl.Credentials.Username
	}
	return key
}

// NewHTTPClient creates a client for remote repositories that retries
// transient failures. A zero timeout means no timeout.
func NewHTTPClient(timeout time.Duration, userAgent string) *http.Client {
	return remote.NewClient(remote.WithTimeout(timeout), remote.WithUserAgent(userAgent))
}
