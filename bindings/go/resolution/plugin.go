package resolution

import (
	"context"
	"fmt"
	"log/slog"

	slogcontext "github.com/veqryn/slog-context"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
)

// PluginMarkerSuffix is appended to a plugin id to form the name of its
// marker module: <id>:<id>.gradle.plugin:<version>.
const PluginMarkerSuffix = ".gradle.plugin"

// PluginRequest is a plugin applied by the build. Module is set if the
// request was resolved to an implementation module, otherwise the plugin is
// looked up through its marker.
type PluginRequest struct {
	ID      string               `json:"id"`
	Version string               `json:"version,omitempty"`
	Module  *artifact.Coordinate `json:"module,omitempty"`
}

// Coordinate returns the module to resolve for the request.
func (p PluginRequest) Coordinate() artifact.Coordinate {
	if p.Module != nil {
		return *p.Module
	}
	return artifact.Coordinate{Group: p.ID, Name: p.ID + PluginMarkerSuffix, Version: p.Version}
}

// DetachedResolver is the host's ability to resolve a set of dependencies
// as one configuration that is not attached to any project.
type DetachedResolver interface {
	Detached(ctx context.Context, dependencies []artifact.Coordinate) (*Configuration, error)
}

// DetachedFunc adapts a function to a DetachedResolver.
type DetachedFunc func(ctx context.Context, dependencies []artifact.Coordinate) (*Configuration, error)

func (f DetachedFunc) Detached(ctx context.Context, dependencies []artifact.Coordinate) (*Configuration, error) {
	return f(ctx, dependencies)
}

// Unresolvable is a DetachedResolver for hosts that cannot resolve anything.
// Every dependency is reported unresolved, so the engine recovers it from
// its own repositories.
var Unresolvable DetachedResolver = DetachedFunc(func(_ context.Context, dependencies []artifact.Coordinate) (*Configuration, error) {
	cfg := &Configuration{Name: "detachedConfiguration"}
	for _, dep := range dependencies {
		cfg.Unresolved = append(cfg.Unresolved, Selector{Group: dep.Group, Name: dep.Name, Version: dep.Version})
	}
	return cfg, nil
})

// Recorded returns a DetachedResolver answering with a configuration the
// host resolved in advance. A nil configuration falls back to Unresolvable.
func Recorded(cfg *Configuration) DetachedResolver {
	if cfg == nil {
		return Unresolvable
	}
	return DetachedFunc(func(context.Context, []artifact.Coordinate) (*Configuration, error) {
		return cfg, nil
	})
}

// PluginResolver resolves the plugins requested by a build.
type PluginResolver struct {
	resolver *ConfigurationResolver
	host     DetachedResolver
}

// NewPluginResolver creates a plugin resolver. resolver should be created
// for ScopePlugin with the plugin repositories of the build.
func NewPluginResolver(resolver *ConfigurationResolver, host DetachedResolver) *PluginResolver {
	if host == nil {
		host = Unresolvable
	}
	return &PluginResolver{resolver: resolver, host: host}
}

// Resolve turns every request into a dependency on its module or marker and
// resolves all of them as one detached configuration.
func (p *PluginResolver) Resolve(ctx context.Context, requests []PluginRequest) (*Result, error) {
	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", Realm))

	dependencies := make([]artifact.Coordinate, 0, len(requests))
	for _, req := range requests {
		coord := req.Coordinate()
		logger.Log(ctx, slog.LevelDebug, "adding plugin dependency",
			slog.String("plugin", req.ID), slog.String("dependency", coord.String()))
		dependencies = append(dependencies, coord)
	}

	cfg, err := p.host.Detached(ctx, dependencies)
	if err != nil {
		return nil, fmt.Errorf("creating detached plugin configuration failed: %w", err)
	}
	return p.resolver.Resolve(ctx, cfg)
}

// Unresolved returns every identifier the plugin resolution could not serve.
func (p *PluginResolver) Unresolved() []artifact.Identifier {
	return p.resolver.Unresolved()
}
