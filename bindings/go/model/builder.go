// Package model builds the dependency manifest of a Gradle build from a
// snapshot the host build recorded.
package model

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"path/filepath"
	"slices"

	slogcontext "github.com/veqryn/slog-context"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
	"gradle2nix.dev/gradle2nix/bindings/go/dag"
	"gradle2nix.dev/gradle2nix/bindings/go/descriptor"
	"gradle2nix.dev/gradle2nix/bindings/go/descriptor/gradlecache"
	"gradle2nix.dev/gradle2nix/bindings/go/repository"
	"gradle2nix.dev/gradle2nix/bindings/go/repository/cache"
	"gradle2nix.dev/gradle2nix/bindings/go/repository/factory"
	"gradle2nix.dev/gradle2nix/bindings/go/resolution"
)

const Realm = "model"

// Build is the dependency manifest of a build.
type Build struct {
	Gradle               *Gradle             `json:"gradle"`
	SettingsDependencies []artifact.Artifact `json:"settingsDependencies"`
	PluginDependencies   []artifact.Artifact `json:"pluginDependencies"`
	RootProject          *Project            `json:"rootProject"`
	IncludedBuilds       []IncludedBuild     `json:"includedBuilds"`

	// Diagnostics lists what could not be resolved. It is not part of the
	// manifest.
	Diagnostics []Diagnostic `json:"-"`
}

// Project is the manifest entry of one project.
type Project struct {
	Name                    string              `json:"name"`
	Version                 string              `json:"version"`
	Path                    string              `json:"path"`
	ProjectDir              string              `json:"projectDir"`
	BuildscriptDependencies []artifact.Artifact `json:"buildscriptDependencies"`
	ProjectDependencies     []artifact.Artifact `json:"projectDependencies"`
	Children                []*Project          `json:"children"`
}

// Diagnostic reports the identifiers one scope of one project could not
// resolve. Project is empty for the settings and plugin scopes.
type Diagnostic struct {
	Scope      resolution.Scope
	Project    string
	Unresolved []artifact.Identifier
}

// Properties select what is part of the manifest.
type Properties struct {
	// Subprojects are the paths of the subprojects to include, together with
	// the projects they depend on. Empty means all subprojects.
	Subprojects []string
	// Configurations are the names of the configurations to resolve. Empty
	// means every resolvable configuration.
	Configurations []string
}

type BuilderOptions struct {
	// Client is used for every remote request.
	Client *http.Client
	// Store caches repository answers across scopes and projects.
	Store *cache.Store
	// Concurrency limits parallel resolution work per configuration.
	Concurrency int
}

type BuilderOption func(*BuilderOptions)

func WithHTTPClient(client *http.Client) BuilderOption {
	return func(o *BuilderOptions) {
		o.Client = client
	}
}

func WithStore(store *cache.Store) BuilderOption {
	return func(o *BuilderOptions) {
		o.Store = store
	}
}

func WithConcurrency(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.Concurrency = n
	}
}

// Builder builds manifests. A Builder can be reused, every call to Build
// creates its own resolvers.
type Builder struct {
	opts BuilderOptions
}

func NewBuilder(opts ...BuilderOption) *Builder {
	options := BuilderOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Client == nil {
		options.Client = http.DefaultClient
	}
	return &Builder{opts: options}
}

// build holds the state of one call to Build.
type build struct {
	*Builder
	snapshot *Snapshot
	props    Properties
	// cacheLocator reads descriptors from the Gradle user home, if known.
	cacheLocator descriptor.Locator
	diagnostics  []Diagnostic
}

// Build computes the manifest of snapshot. Only an invalid distribution,
// invalid repository declarations, cyclic project dependencies or a done
// context fail the build. Everything that cannot be resolved is logged and
// reported in Build.Diagnostics.
func (b *Builder) Build(ctx context.Context, snapshot *Snapshot, props Properties) (*Build, error) {
	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", Realm))
	ctx = slogcontext.NewCtx(ctx, logger)

	run := &build{Builder: b, snapshot: snapshot, props: props}
	if snapshot.GradleUserHome != "" {
		run.cacheLocator = gradlecache.New(snapshot.GradleUserHome)
	}

	gradle, err := ResolveDistribution(ctx, b.opts.Client, snapshot.Gradle)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve gradle distribution: %w", err)
	}

	logger.Log(ctx, slog.LevelInfo, "resolving settings script dependencies")
	settings, err := run.settingsDependencies(ctx)
	if err != nil {
		return nil, err
	}

	logger.Log(ctx, slog.LevelInfo, "resolving plugin dependencies")
	plugins, err := run.pluginDependencies(ctx)
	if err != nil {
		return nil, err
	}

	subprojects, err := run.subprojects(ctx)
	if err != nil {
		return nil, err
	}
	root, err := run.project(ctx, &snapshot.RootProject, subprojects, plugins)
	if err != nil {
		return nil, err
	}

	includedBuilds := make([]IncludedBuild, 0, len(snapshot.IncludedBuilds))
	for _, included := range snapshot.IncludedBuilds {
		includedBuilds = append(includedBuilds, IncludedBuild{
			Name:       included.Name,
			ProjectDir: relativeDir(snapshot.RootProject.ProjectDir, included.ProjectDir),
		})
	}

	return &Build{
		Gradle:               gradle,
		SettingsDependencies: settings,
		PluginDependencies:   plugins,
		RootProject:          root,
		IncludedBuilds:       includedBuilds,
		Diagnostics:          run.diagnostics,
	}, nil
}

// resolver creates the configuration resolver of one scope. Descriptors are
// looked up in the Gradle cache first and in the scope's repositories second.
func (r *build) resolver(ctx context.Context, scope resolution.Scope, declarations []repository.Declaration) (*resolution.ConfigurationResolver, error) {
	resolvers, err := factory.New(ctx, declarations, factory.Options{
		Client: r.opts.Client,
		Store:  r.opts.Store,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s repositories: %w", scope, err)
	}
	locator := descriptor.Chain{r.cacheLocator, descriptor.NewFetcherLocator(resolvers)}
	return resolution.NewConfigurationResolver(scope, resolvers,
		resolution.WithConcurrency(r.opts.Concurrency),
		resolution.WithLocator(locator),
	), nil
}

// resolve resolves every configuration and folds the results.
func resolve(ctx context.Context, resolver *resolution.ConfigurationResolver, configurations []*resolution.Configuration) (*resolution.Result, error) {
	results := make([]*resolution.Result, 0, len(configurations))
	for _, cfg := range configurations {
		result, err := resolver.Resolve(ctx, cfg)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return resolution.Collect(ctx, results...), nil
}

// report logs and records what a scope could not resolve.
func (r *build) report(ctx context.Context, scope resolution.Scope, project string, unresolved []artifact.Identifier) {
	if len(unresolved) == 0 {
		return
	}
	logger := slogcontext.FromCtx(ctx)
	attrs := []any{slog.Int("count", len(unresolved))}
	if project != "" {
		attrs = append(attrs, slog.String("project", project))
	}
	logger.Log(ctx, slog.LevelWarn, fmt.Sprintf("failed to resolve %s dependencies", scope), attrs...)
	for _, id := range unresolved {
		logger.Log(ctx, slog.LevelWarn, "unresolved dependency", slog.String("artifact", id.String()))
	}
	r.diagnostics = append(r.diagnostics, Diagnostic{Scope: scope, Project: project, Unresolved: unresolved})
}

func (r *build) settingsDependencies(ctx context.Context) ([]artifact.Artifact, error) {
	resolver, err := r.resolver(ctx, resolution.ScopeSettings, r.snapshot.Settings.Repositories)
	if err != nil {
		return nil, err
	}
	result, err := resolve(ctx, resolver, r.snapshot.Settings.Configurations)
	if err != nil {
		return nil, err
	}
	r.report(ctx, resolution.ScopeSettings, "", result.Unresolved)
	return nonNil(result.Artifacts), nil
}

func (r *build) pluginDependencies(ctx context.Context) ([]artifact.Artifact, error) {
	plugins := r.snapshot.Plugins
	if len(plugins.Requests) == 0 {
		return []artifact.Artifact{}, nil
	}
	declarations := plugins.Repositories
	if len(declarations) == 0 {
		declarations = []repository.Declaration{factory.PluginPortal()}
	}
	resolver, err := r.resolver(ctx, resolution.ScopePlugin, declarations)
	if err != nil {
		return nil, err
	}
	result, err := resolution.NewPluginResolver(resolver, resolution.Recorded(plugins.Configuration)).
		Resolve(ctx, plugins.Requests)
	if err != nil {
		return nil, err
	}
	r.report(ctx, resolution.ScopePlugin, "", result.Unresolved)
	return nonNil(result.Artifacts), nil
}

func (r *build) project(ctx context.Context, p *ProjectSnapshot, children []*ProjectSnapshot, plugins []artifact.Artifact) (*Project, error) {
	logger := slogcontext.FromCtx(ctx)
	logger.Log(ctx, slog.LevelInfo, "resolving project", slog.String("project", p.Path))

	buildscript, err := r.resolver(ctx, resolution.ScopeBuildscript, p.Buildscript.Repositories)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", p.Path, err)
	}
	buildscriptResult, err := resolve(ctx, buildscript, p.Buildscript.Configurations)
	if err != nil {
		return nil, err
	}
	r.report(ctx, resolution.ScopeBuildscript, p.Path, buildscriptResult.Unresolved)

	dependencies, err := r.resolver(ctx, resolution.ScopeProject, p.Repositories)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", p.Path, err)
	}
	projectResult, err := resolve(ctx, dependencies, r.configurations(p))
	if err != nil {
		return nil, err
	}
	r.report(ctx, resolution.ScopeProject, p.Path, projectResult.Unresolved)

	project := &Project{
		Name:                    p.Name,
		Version:                 p.Version,
		Path:                    p.Path,
		ProjectDir:              relativeDir(r.snapshot.RootProject.ProjectDir, p.ProjectDir),
		BuildscriptDependencies: nonNil(artifact.Without(buildscriptResult.Artifacts, artifact.Identifiers(plugins))),
		ProjectDependencies:     nonNil(projectResult.Artifacts),
		Children:                make([]*Project, 0, len(children)),
	}
	for _, child := range children {
		c, err := r.project(ctx, child, nil, plugins)
		if err != nil {
			return nil, err
		}
		project.Children = append(project.Children, c)
	}
	return project, nil
}

// configurations returns the configurations of p selected by the properties.
func (r *build) configurations(p *ProjectSnapshot) []*resolution.Configuration {
	selected := make([]*resolution.Configuration, 0, len(p.Configurations))
	for _, cfg := range p.Configurations {
		if len(r.props.Configurations) == 0 {
			if cfg.Resolvable() {
				selected = append(selected, cfg)
			}
		} else if slices.Contains(r.props.Configurations, cfg.Name) {
			selected = append(selected, cfg)
		}
	}
	return selected
}

// subprojects returns the subprojects that are part of the manifest, sorted
// by path. Explicitly selected subprojects pull in every project they
// transitively depend on through the selected configurations.
func (r *build) subprojects(ctx context.Context) ([]*ProjectSnapshot, error) {
	root := &r.snapshot.RootProject
	byPath := make(map[string]*ProjectSnapshot)
	for _, p := range root.Projects() {
		byPath[p.Path] = p
	}
	delete(byPath, root.Path)

	if len(r.props.Subprojects) == 0 {
		return sortedProjects(byPath, slices.Collect(maps.Keys(byPath))), nil
	}

	logger := slogcontext.FromCtx(ctx)
	roots := make([]*dag.Vertex[string], 0, len(r.props.Subprojects))
	for _, path := range r.props.Subprojects {
		if _, ok := byPath[path]; !ok {
			logger.Log(ctx, slog.LevelWarn, "ignoring unknown subproject", slog.String("project", path))
			continue
		}
		roots = append(roots, dag.NewVertex(path))
	}

	graph := dag.NewDirectedAcyclicGraph[string]()
	err := graph.Traverse(ctx, func(_ context.Context, v *dag.Vertex[string]) ([]*dag.Vertex[string], error) {
		var neighbors []*dag.Vertex[string]
		for _, dep := range r.projectDependencies(byPath[v.ID]) {
			if _, ok := byPath[dep]; ok {
				neighbors = append(neighbors, dag.NewVertex(dep))
			}
		}
		return neighbors, nil
	}, roots, dag.WithGoRoutineLimit(r.opts.Concurrency))
	if err != nil {
		return nil, fmt.Errorf("failed to collect dependent subprojects: %w", err)
	}
	return sortedProjects(byPath, graph.GetVertices()), nil
}

// projectDependencies returns the paths of the projects p depends on, either
// declared or resolved as project components of a selected configuration.
func (r *build) projectDependencies(p *ProjectSnapshot) []string {
	deps := slices.Clone(p.ProjectDependencies)
	for _, cfg := range r.configurations(p) {
		for _, a := range cfg.Artifacts {
			if a.Component == resolution.ComponentProject && a.Project != "" {
				deps = append(deps, a.Project)
			}
		}
	}
	slices.Sort(deps)
	return slices.DeleteFunc(slices.Compact(deps), func(dep string) bool {
		return dep == p.Path
	})
}

// sortedProjects returns the projects with the given paths sorted by path.
func sortedProjects(byPath map[string]*ProjectSnapshot, paths []string) []*ProjectSnapshot {
	slices.Sort(paths)
	projects := make([]*ProjectSnapshot, 0, len(paths))
	for _, path := range paths {
		if p, ok := byPath[path]; ok {
			projects = append(projects, p)
		}
	}
	return projects
}

// relativeDir returns dir relative to the root project directory. Relative
// directories are returned cleaned. The root directory itself is "".
func relativeDir(rootDir, dir string) string {
	if dir == "" {
		return ""
	}
	rel := filepath.Clean(dir)
	if filepath.IsAbs(dir) && filepath.IsAbs(rootDir) {
		if r, err := filepath.Rel(rootDir, dir); err == nil {
			rel = r
		}
	}
	if rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

func nonNil(artifacts []artifact.Artifact) []artifact.Artifact {
	if artifacts == nil {
		return []artifact.Artifact{}
	}
	return artifacts
}
