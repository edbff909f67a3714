// Package filter restricts a repository to the groups it is declared for.
package filter

import (
	"context"
	"fmt"
	"io"

	"github.com/gobwas/glob"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
	"gradle2nix.dev/gradle2nix/bindings/go/repository"
)

// Rules are group patterns. Patterns use '.' as separator, so "com.example.*"
// matches direct subgroups of com.example and "com.example.**" any subgroup.
type Rules struct {
	IncludeGroups []string
	ExcludeGroups []string
}

// Resolver only forwards identifiers whose group passes the rules.
// Filtered identifiers are answered with repository.ErrNotFound without
// contacting the repository.
type Resolver struct {
	delegate repository.Resolver
	include  []glob.Glob
	exclude  []glob.Glob
}

var (
	_ repository.Resolver = (*Resolver)(nil)
	_ repository.Fetcher  = (*Resolver)(nil)
)

// New wraps delegate with rules.
func New(delegate repository.Resolver, rules Rules) (*Resolver, error) {
	include, err := compile(rules.IncludeGroups)
	if err != nil {
		return nil, err
	}
	exclude, err := compile(rules.ExcludeGroups)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		delegate: delegate,
		include:  include,
		exclude:  exclude,
	}, nil
}

func compile(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for index, pattern := range patterns {
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("failed to compile glob pattern %q at index %d: %w", pattern, index, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Allows reports whether group passes the rules. Exclusions take precedence.
func (r *Resolver) Allows(group string) bool {
	for _, g := range r.exclude {
		if g.Match(group) {
			return false
		}
	}
	if len(r.include) == 0 {
		return true
	}
	for _, g := range r.include {
		if g.Match(group) {
			return true
		}
	}
	return false
}

func (r *Resolver) Resolve(ctx context.Context, id artifact.Identifier, opts ...repository.ResolveOption) (*artifact.Artifact, error) {
	if !r.Allows(id.Group) {
		return nil, fmt.Errorf("group %s is filtered for %s: %w", id.Group, r.delegate, repository.ErrNotFound)
	}
	return r.delegate.Resolve(ctx, id, opts...)
}

// Fetch forwards to the wrapped resolver if it can fetch content.
func (r *Resolver) Fetch(ctx context.Context, id artifact.Identifier) (io.ReadCloser, error) {
	fetcher, ok := r.delegate.(repository.Fetcher)
	if !ok || !r.Allows(id.Group) {
		return nil, fmt.Errorf("fetching %s from %s: %w", id, r.delegate, repository.ErrNotFound)
	}
	return fetcher.Fetch(ctx, id)
}

func (r *Resolver) String() string {
	return fmt.Sprint(r.delegate)
}
