package resolution

import (
	"context"
	"errors"
	"log/slog"

	slogcontext "github.com/veqryn/slog-context"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
	"gradle2nix.dev/gradle2nix/bindings/go/descriptor"
	"gradle2nix.dev/gradle2nix/bindings/go/repository"
)

// Walker discovers the descriptors a module inherits from and resolves
// them against repositories.
type Walker struct {
	locator   descriptor.Locator
	resolvers []repository.Resolver
}

// NewWalker creates a walker reading descriptors through locator and
// resolving them against resolvers.
func NewWalker(locator descriptor.Locator, resolvers []repository.Resolver) *Walker {
	return &Walker{locator: locator, resolvers: resolvers}
}

// Discover returns coord followed by every descriptor it transitively
// inherits from, breadth first and without duplicates. POM files have a
// single parent, ivy files may extend several descriptors, both are walked
// the same way.
//
// The origin is only part of the result if its descriptor can be located.
// A located descriptor that cannot be parsed ends its branch of the walk.
// A cancelled walk returns the chain discovered so far.
func (w *Walker) Discover(ctx context.Context, coord artifact.Coordinate, kind descriptor.Kind) []artifact.Coordinate {
	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", Realm))

	var chain []artifact.Coordinate
	seen := map[artifact.Coordinate]struct{}{coord: {}}
	queue := []artifact.Coordinate{coord}

	for len(queue) > 0 && ctx.Err() == nil {
		current := queue[0]
		queue = queue[1:]

		d, err := descriptor.Load(ctx, w.locator, current, kind)
		switch {
		case ctx.Err() != nil:
			return chain
		case errors.Is(err, descriptor.ErrNotFound):
			logger.Log(ctx, slog.LevelDebug, "descriptor not found",
				slog.String("kind", string(kind)), slog.String("module", current.String()))
			continue
		case err != nil:
			logger.Log(ctx, slog.LevelWarn, "ignoring ancestors of unreadable descriptor",
				slog.String("kind", string(kind)), slog.String("module", current.String()), slog.String("error", err.Error()))
			chain = append(chain, current)
			continue
		}
		chain = append(chain, current)

		for _, parent := range d.Ancestors() {
			if _, ok := seen[parent]; ok {
				continue
			}
			seen[parent] = struct{}{}
			queue = append(queue, parent)
		}
	}
	return chain
}

// Resolve discovers the descriptor chain of coord and resolves every
// descriptor against all repositories. For POM chains the jar of each
// module is looked up as well, and a module is only reported unresolved if
// neither its POM nor its jar was found.
func (w *Walker) Resolve(ctx context.Context, coord artifact.Coordinate, kind descriptor.Kind) *Result {
	var result Result
	for _, c := range w.Discover(ctx, coord, kind) {
		id := kind.Identifier(c)
		found := repository.ResolveAll(ctx, w.resolvers, id)
		result.add(found)

		if kind == descriptor.KindPOM {
			jar := repository.ResolveAll(ctx, w.resolvers, c.Identifier(artifact.TypeJar))
			result.add(jar)
			found = firstNonNil(found, jar)
		}
		if found == nil {
			result.miss(id)
		}
	}
	return &result
}

func firstNonNil(a, b *artifact.Artifact) *artifact.Artifact {
	if a != nil {
		return a
	}
	return b
}
