// Package resolution computes the artifacts a build depends on from the
// configurations the host build resolved.
package resolution

import (
	"context"
	"fmt"
	"log/slog"
	goruntime "runtime"
	"sync"

	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
	"gradle2nix.dev/gradle2nix/bindings/go/descriptor"
	"gradle2nix.dev/gradle2nix/bindings/go/repository"
)

const Realm = "resolution"

// ConfigurationResolver resolves configurations of one scope against a
// fixed list of repositories.
//
// Nothing a repository answers is fatal: artifacts that cannot be found are
// reported in the result and accumulated in Unresolved.
type ConfigurationResolver struct {
	scope       Scope
	resolvers   []repository.Resolver
	walker      *Walker
	hasher      *fileHasher
	concurrency int

	mu         sync.Mutex
	unresolved map[artifact.Identifier]struct{}
}

type Options struct {
	// Concurrency limits the work items resolved in parallel.
	// Defaults to the number of CPUs.
	Concurrency int
	// Locator provides descriptor content for the ancestry walk. Defaults
	// to the repositories that can fetch content.
	Locator descriptor.Locator
}

type Option func(*Options)

// WithConcurrency limits the work items resolved in parallel.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		o.Concurrency = n
	}
}

// WithLocator sets the source of descriptor content.
func WithLocator(locator descriptor.Locator) Option {
	return func(o *Options) {
		o.Locator = locator
	}
}

// NewConfigurationResolver creates a resolver for scope using resolvers in
// the given order.
func NewConfigurationResolver(scope Scope, resolvers []repository.Resolver, opts ...Option) *ConfigurationResolver {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Concurrency <= 0 {
		options.Concurrency = goruntime.NumCPU()
	}
	if options.Locator == nil {
		options.Locator = descriptor.NewFetcherLocator(resolvers)
	}

	return &ConfigurationResolver{
		scope:       scope,
		resolvers:   resolvers,
		walker:      NewWalker(options.Locator, resolvers),
		hasher:      newFileHasher(),
		concurrency: options.Concurrency,
		unresolved:  make(map[artifact.Identifier]struct{}),
	}
}

// Scope returns the scope the resolver was created for.
func (r *ConfigurationResolver) Scope() Scope {
	return r.scope
}

// Unresolved returns every identifier that could not be resolved by any
// call to Resolve so far, sorted.
func (r *ConfigurationResolver) Unresolved() []artifact.Identifier {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]artifact.Identifier, 0, len(r.unresolved))
	for id := range r.unresolved {
		ids = append(ids, id)
	}
	return artifact.SortedUnique(ids)
}

// Resolve computes every artifact of cfg:
//
//   - the descriptor chains of all first level modules,
//   - the module metadata, POM and jar of each request the host could not
//     resolve, including the POM's descriptor chain,
//   - every file the host located for an external module, hashed locally
//     unless it is a descriptor, plus the descriptor chain of its module.
//
// Work items run concurrently. The result does not depend on the order in
// which they complete. An error is only returned if ctx is done.
func (r *ConfigurationResolver) Resolve(ctx context.Context, cfg *Configuration) (*Result, error) {
	logger := slogcontext.FromCtx(ctx).With(
		slog.String("realm", Realm),
		slog.String("scope", r.scope.String()),
		slog.String("configuration", cfg.Name),
	)
	ctx = slogcontext.NewCtx(ctx, logger)

	run := &run{ConfigurationResolver: r, metadata: make(map[artifact.Coordinate]*metadataEntry)}

	var items []func(context.Context) *Result
	for _, coord := range cfg.FirstLevel {
		items = append(items, func(ctx context.Context) *Result {
			return run.resolveMetadata(ctx, coord)
		})
	}
	for _, sel := range cfg.Unresolved {
		items = append(items, func(ctx context.Context) *Result {
			return run.recoverRequest(ctx, sel)
		})
	}
	for _, a := range cfg.Artifacts {
		if !a.IsModule() {
			logger.Log(ctx, slog.LevelDebug, "skipping artifact of local component",
				slog.String("project", a.Project), slog.String("name", a.Name))
			continue
		}
		items = append(items, func(ctx context.Context) *Result {
			return run.resolveArtifact(ctx, a)
		})
	}

	results := make([]*Result, len(items))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.concurrency)
	for i, item := range items {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			results[i] = item(egctx)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("resolving configuration %s failed: %w", cfg.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolving configuration %s failed: %w", cfg.Name, err)
	}

	result := Collect(ctx, results...)
	r.record(result.Unresolved)
	logger.Log(ctx, slog.LevelDebug, "resolved configuration",
		slog.Int("artifacts", len(result.Artifacts)),
		slog.Int("unresolved", len(result.Unresolved)),
	)
	return result, nil
}

func (r *ConfigurationResolver) record(ids []artifact.Identifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.unresolved[id] = struct{}{}
	}
}

// run holds the state of a single Resolve call.
type run struct {
	*ConfigurationResolver

	metadataMu sync.Mutex
	metadata   map[artifact.Coordinate]*metadataEntry
}

type metadataEntry struct {
	once   sync.Once
	result *Result
}

// resolveMetadata resolves the POM chain, the ivy chain and the Gradle
// module metadata of coord. Results are shared between work items.
// Most maven modules publish no Gradle module metadata, so a missing
// .module file is not reported.
func (r *run) resolveMetadata(ctx context.Context, coord artifact.Coordinate) *Result {
	r.metadataMu.Lock()
	entry, ok := r.metadata[coord]
	if !ok {
		entry = &metadataEntry{}
		r.metadata[coord] = entry
	}
	r.metadataMu.Unlock()

	entry.once.Do(func() {
		var result Result
		result.append(r.walker.Resolve(ctx, coord, descriptor.KindPOM))
		result.append(r.walker.Resolve(ctx, coord, descriptor.KindIvy))
		result.add(repository.ResolveAll(ctx, r.resolvers, coord.Identifier(artifact.TypeModule)))
		entry.result = &result
	})
	return entry.result
}

// recoverRequest looks up a request the host could not resolve: its Gradle module
// metadata, its POM with the POM's descriptor chain, and its jar.
func (r *run) recoverRequest(ctx context.Context, sel Selector) *Result {
	coord := sel.Coordinate()
	var result Result
	for _, typ := range []string{artifact.TypeModule, artifact.TypePom, artifact.TypeJar} {
		id := coord.Identifier(typ)
		if typ == artifact.TypePom {
			result.append(r.resolveMetadata(ctx, coord))
		}
		found := repository.ResolveAll(ctx, r.resolvers, id)
		if found == nil {
			result.miss(id)
		}
		result.add(found)
	}
	return &result
}

// resolveArtifact resolves a file the host located, passing the hash of the
// host's copy to the repositories, plus the metadata of its module.
func (r *run) resolveArtifact(ctx context.Context, a ResolvedArtifact) *Result {
	id := a.Identifier()

	var opts []repository.ResolveOption
	hash, err := r.hasher.localHash(a)
	if err != nil {
		slogcontext.FromCtx(ctx).Log(ctx, slog.LevelWarn, "cannot hash local artifact",
			slog.String("artifact", id.String()), slog.String("error", err.Error()))
	}
	if hash != "" {
		opts = append(opts, repository.WithKnownSHA256(hash))
	}

	var result Result
	found := repository.ResolveAll(ctx, r.resolvers, id, opts...)
	if found == nil {
		result.miss(id)
	}
	result.add(found)
	result.append(r.resolveMetadata(ctx, a.Coordinate()))
	return &result
}
