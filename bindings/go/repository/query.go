package repository

import (
	"context"
	"errors"
	"log/slog"
	goruntime "runtime"
	"sync"

	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
)

// ResolveAll queries every resolver for id and merges the answers into a
// single artifact carrying the union of all URLs.
//
// Resolvers are not tried in order until one succeeds: mirrors serve the same
// artifact under different URLs and all of them are wanted. Every resolver
// error counts as "absent". If no resolver produced a URL, nil is returned.
// The returned artifact does not depend on the order in which resolvers answer.
func ResolveAll(ctx context.Context, resolvers []Resolver, id artifact.Identifier, opts ...ResolveOption) *artifact.Artifact {
	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", Realm))

	var mu sync.Mutex
	found := make([]artifact.Artifact, 0, len(resolvers))

	eg := errgroup.Group{}
	eg.SetLimit(goruntime.NumCPU())
	for _, r := range resolvers {
		eg.Go(func() error {
			a, err := r.Resolve(ctx, id, opts...)
			switch {
			case errors.Is(err, ErrNotFound):
				logger.Log(ctx, slog.LevelDebug, "artifact not found in repository",
					slog.String("artifact", id.String()), slog.Any("repository", r))
				return nil
			case err != nil:
				logger.Log(ctx, slog.LevelDebug, "resolving artifact failed",
					slog.String("artifact", id.String()), slog.Any("repository", r), slog.String("error", err.Error()))
				return nil
			case a == nil || !a.HasURLs():
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			found = append(found, a.Clone())
			return nil
		})
	}
	// the resolver goroutines never return an error
	_ = eg.Wait()

	merged, conflicts := artifact.MergeWithConflicts(found)
	for _, c := range conflicts {
		logger.Log(ctx, slog.LevelWarn, "repositories disagree on artifact hash",
			slog.String("artifact", c.Identifier.String()), slog.Any("sha256", c.Hashes))
	}
	for _, a := range merged {
		if a.Identifier == id {
			return &a
		}
	}
	return nil
}
