package resolution

import (
	"context"
	"log/slog"
	"slices"

	slogcontext "github.com/veqryn/slog-context"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
)

// Result is the outcome of a resolution: every artifact with at least one
// URL, merged and sorted, and every identifier no repository could serve.
type Result struct {
	Artifacts  []artifact.Artifact   `json:"artifacts"`
	Unresolved []artifact.Identifier `json:"unresolved,omitempty"`
}

func (r *Result) add(a *artifact.Artifact) {
	if a != nil {
		r.Artifacts = append(r.Artifacts, *a)
	}
}

func (r *Result) miss(id artifact.Identifier) {
	r.Unresolved = append(r.Unresolved, id)
}

func (r *Result) append(other *Result) {
	if other == nil {
		return
	}
	r.Artifacts = append(r.Artifacts, other.Artifacts...)
	r.Unresolved = append(r.Unresolved, other.Unresolved...)
}

// Collect folds results into one: artifacts without URLs are dropped, the
// rest is merged and sorted. Identifiers that were resolved by any of the
// results are not reported as unresolved.
func Collect(ctx context.Context, results ...*Result) *Result {
	var all Result
	for _, r := range results {
		all.append(r)
	}

	merged, conflicts := artifact.MergeWithConflicts(artifact.WithURLs(all.Artifacts))
	if len(conflicts) > 0 {
		logger := slogcontext.FromCtx(ctx).With(slog.String("realm", Realm))
		for _, c := range conflicts {
			logger.Log(ctx, slog.LevelWarn, "repositories disagree on artifact hash",
				slog.String("artifact", c.Identifier.String()), slog.Any("sha256", c.Hashes))
		}
	}

	unresolved := artifact.SortedUnique(all.Unresolved)
	unresolved = slices.DeleteFunc(unresolved, func(id artifact.Identifier) bool {
		_, found := slices.BinarySearchFunc(merged, id, func(a artifact.Artifact, id artifact.Identifier) int {
			return a.Identifier.Compare(id)
		})
		return found
	})

	return &Result{Artifacts: merged, Unresolved: unresolved}
}
