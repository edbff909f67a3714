package resolution_test

import (
	"context"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
	"gradle2nix.dev/gradle2nix/bindings/go/repository"
	"gradle2nix.dev/gradle2nix/bindings/go/resolution"
)

func resolversOf(repos ...*memoryRepository) []repository.Resolver {
	resolvers := make([]repository.Resolver, 0, len(repos))
	for _, r := range repos {
		resolvers = append(resolvers, r)
	}
	return resolvers
}

func TestConfigurationResolver_DirectDependency(t *testing.T) {
	lib := coord(t, "com.example:lib:1.0.0")
	jarContent := "jar bytes"
	pomContent := pomXML(lib, nil)

	repo := newMemoryRepository("https://repo.example").
		with(lib.Identifier(artifact.TypeJar), jarContent).
		with(lib.Identifier(artifact.TypePom), pomContent)

	cfg := &resolution.Configuration{
		Name:       "runtimeClasspath",
		FirstLevel: []artifact.Coordinate{lib},
		Artifacts: []resolution.ResolvedArtifact{{
			Group: lib.Group, Name: lib.Name, Version: lib.Version,
			Type: "jar", Extension: "jar",
			File: writeFile(t, "lib-1.0.0.jar", jarContent),
		}},
	}

	r := resolution.NewConfigurationResolver(resolution.ScopeProject, resolversOf(repo))
	result, err := r.Resolve(t.Context(), cfg)
	require.NoError(t, err)

	assert.Equal(t, []artifact.Artifact{
		artifact.NewArtifact(lib.Identifier(artifact.TypeJar), sha256Of(jarContent), "https://repo.example/com.example/lib-1.0.0.jar"),
		artifact.NewArtifact(lib.Identifier(artifact.TypePom), sha256Of(pomContent), "https://repo.example/com.example/lib-1.0.0.pom"),
	}, result.Artifacts)
	assert.Empty(t, result.Unresolved, "missing gradle module metadata is not reported")
	assert.Empty(t, r.Unresolved())
}

func TestConfigurationResolver_MultiMirror(t *testing.T) {
	lib := coord(t, "com.example:lib:1.0.0")
	jar := lib.Identifier(artifact.TypeJar)

	a := newMemoryRepository("https://mirror-a.example").with(jar, "jar")
	b := newMemoryRepository("https://mirror-b.example").with(jar, "jar")

	cfg := &resolution.Configuration{
		Name:      "runtimeClasspath",
		Artifacts: []resolution.ResolvedArtifact{{Group: lib.Group, Name: lib.Name, Version: lib.Version, Type: "jar"}},
	}
	result, err := resolution.NewConfigurationResolver(resolution.ScopeProject, resolversOf(a, b)).Resolve(t.Context(), cfg)
	require.NoError(t, err)

	require.Len(t, result.Artifacts, 1)
	assert.Equal(t, []string{
		"https://mirror-a.example/com.example/lib-1.0.0.jar",
		"https://mirror-b.example/com.example/lib-1.0.0.jar",
	}, result.Artifacts[0].URLs)
}

func TestConfigurationResolver_HashPolicy(t *testing.T) {
	lib := coord(t, "com.example:lib:1.0.0")
	served := "<project>\r\n<artifactId>lib</artifactId>\r\n</project>\r\n"
	local := "<project>\n<artifactId>lib</artifactId>\n</project>\n"

	repo := newMemoryRepository("https://repo.example").
		with(lib.Identifier(artifact.TypePom), served).
		with(lib.Identifier(artifact.TypeJar), "jar").
		with(lib.Identifier(artifact.TypeJar).WithClassifier("sources"), "remote sources")

	cfg := &resolution.Configuration{
		Name: "runtimeClasspath",
		Artifacts: []resolution.ResolvedArtifact{
			{Group: lib.Group, Name: lib.Name, Version: lib.Version, Type: "pom", File: writeFile(t, "lib.pom", local)},
			{Group: lib.Group, Name: lib.Name, Version: lib.Version, Type: "jar", Classifier: "sources", File: writeFile(t, "lib-sources.jar", "local sources")},
		},
	}
	result, err := resolution.NewConfigurationResolver(resolution.ScopeProject, resolversOf(repo)).Resolve(t.Context(), cfg)
	require.NoError(t, err)

	hashes := map[artifact.Identifier]string{}
	for _, a := range result.Artifacts {
		hashes[a.Identifier] = a.SHA256
	}
	assert.Equal(t, sha256Of(served), hashes[lib.Identifier(artifact.TypePom)], "descriptors are hashed by the repository")
	assert.Equal(t, sha256Of("local sources"), hashes[lib.Identifier(artifact.TypeJar).WithClassifier("sources")], "binaries are hashed locally")
}

func TestConfigurationResolver_RecoversUnresolvedRequests(t *testing.T) {
	lib := coord(t, "com.example:lib:1.0.0")
	parent := coord(t, "com.example:parent:1")
	repo := newMemoryRepository("https://repo.example").
		with(lib.Identifier(artifact.TypePom), pomXML(lib, &parent)).
		with(lib.Identifier(artifact.TypeJar), "jar").
		with(parent.Identifier(artifact.TypePom), pomXML(parent, nil))

	cfg := &resolution.Configuration{
		Name:       "compileClasspath",
		Unresolved: []resolution.Selector{{Group: lib.Group, Name: lib.Name, Version: lib.Version}},
	}
	r := resolution.NewConfigurationResolver(resolution.ScopeBuildscript, resolversOf(repo))
	result, err := r.Resolve(t.Context(), cfg)
	require.NoError(t, err)

	assert.Equal(t, []artifact.Identifier{
		lib.Identifier(artifact.TypeJar),
		lib.Identifier(artifact.TypePom),
		parent.Identifier(artifact.TypePom),
	}, artifact.Identifiers(result.Artifacts))
	assert.Equal(t, []artifact.Identifier{lib.Identifier(artifact.TypeModule)}, result.Unresolved)
	assert.Equal(t, result.Unresolved, r.Unresolved())
}

func TestConfigurationResolver_SkipsProjectComponents(t *testing.T) {
	repo := newMemoryRepository("https://repo.example")
	cfg := &resolution.Configuration{
		Name: "runtimeClasspath",
		Artifacts: []resolution.ResolvedArtifact{
			{Component: resolution.ComponentProject, Project: ":lib", Name: "lib", Type: "jar", File: "/build/lib/build/libs/lib.jar"},
			{Name: "unversioned", Type: "jar"},
		},
	}
	r := resolution.NewConfigurationResolver(resolution.ScopeProject, resolversOf(repo))
	result, err := r.Resolve(t.Context(), cfg)
	require.NoError(t, err)

	assert.Empty(t, result.Artifacts)
	assert.Empty(t, result.Unresolved)
	assert.Zero(t, repo.calls.Load())
}

func TestConfigurationResolver_AccumulatesUnresolved(t *testing.T) {
	r := resolution.NewConfigurationResolver(resolution.ScopeProject, nil)

	for _, name := range []string{"b", "a", "b"} {
		_, err := r.Resolve(t.Context(), &resolution.Configuration{
			Name:      name,
			Artifacts: []resolution.ResolvedArtifact{{Group: "com.example", Name: name, Version: "1", Type: "jar"}},
		})
		require.NoError(t, err)
	}

	assert.Equal(t, []artifact.Identifier{
		artifact.New("com.example", "a", "1", artifact.TypeJar),
		artifact.New("com.example", "b", "1", artifact.TypeJar),
	}, r.Unresolved())
}

func TestConfigurationResolver_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := resolution.NewConfigurationResolver(resolution.ScopeProject, nil).Resolve(ctx, &resolution.Configuration{
		Name:       "runtimeClasspath",
		FirstLevel: []artifact.Coordinate{coord(t, "com.example:lib:1")},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

// largeBuild returns repositories and a configuration exercising every
// path of the resolver: shared parents, mirrors, ivy modules, missing
// artifacts and recovered requests.
func largeBuild(t *testing.T) ([]repository.Resolver, *resolution.Configuration) {
	central := newMemoryRepository("https://central.example")
	mirror := newMemoryRepository("https://mirror.example")
	ivyRepo := newMemoryRepository("https://ivy.example")

	bom := coord(t, "org.example:bom:1")
	cfg := &resolution.Configuration{Name: "runtimeClasspath"}
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		c := coord(t, "org.example:"+name+":1")
		central.with(c.Identifier(artifact.TypePom), pomXML(c, &bom)).with(c.Identifier(artifact.TypeJar), name)
		if name < "d" {
			mirror.with(c.Identifier(artifact.TypeJar), name)
		}
		cfg.FirstLevel = append(cfg.FirstLevel, c)
		cfg.Artifacts = append(cfg.Artifacts, resolution.ResolvedArtifact{
			Group: c.Group, Name: c.Name, Version: c.Version, Type: "jar",
			File: writeFile(t, name+".jar", name),
		})
	}
	central.with(bom.Identifier(artifact.TypePom), pomXML(bom, nil))

	legacy := coord(t, "org.legacy:core:2")
	base := coord(t, "org.legacy:base:2")
	ivyRepo.with(legacy.Identifier(artifact.TypeIvy), ivyXML(legacy, base)).
		with(base.Identifier(artifact.TypeIvy), ivyXML(base, legacy)).
		with(legacy.Identifier(artifact.TypeJar), "core")
	cfg.Artifacts = append(cfg.Artifacts,
		resolution.ResolvedArtifact{Group: legacy.Group, Name: legacy.Name, Version: legacy.Version, Type: "jar"},
		resolution.ResolvedArtifact{Group: "org.gone", Name: "gone", Version: "1", Type: "jar"},
		resolution.ResolvedArtifact{Component: resolution.ComponentProject, Project: ":app", Name: "app", Type: "jar"},
	)
	cfg.Unresolved = []resolution.Selector{
		{Group: "org.example", Name: "a", Version: "1"},
		{Group: "org.missing", Name: "missing"},
	}
	return resolversOf(central, mirror, ivyRepo), cfg
}

func TestConfigurationResolver_NoDuplicatesNoEmptyURLs(t *testing.T) {
	resolvers, cfg := largeBuild(t)
	result, err := resolution.NewConfigurationResolver(resolution.ScopeProject, resolvers).Resolve(t.Context(), cfg)
	require.NoError(t, err)

	ids := artifact.Identifiers(result.Artifacts)
	assert.Equal(t, artifact.SortedUnique(ids), ids, "artifacts are sorted and unique")
	for _, a := range result.Artifacts {
		assert.True(t, a.HasURLs(), "%s has no url", a.Identifier)
	}

	assert.Contains(t, ids, artifact.New("org.example", "bom", "1", artifact.TypePom))
	assert.Contains(t, ids, artifact.New("org.legacy", "base", "2", artifact.TypeIvy))
	assert.Contains(t, result.Unresolved, artifact.New("org.gone", "gone", "1", artifact.TypeJar))
	assert.Contains(t, result.Unresolved, artifact.New("org.missing", "missing", "", artifact.TypePom))
	assert.NotContains(t, result.Unresolved, artifact.New("org.example", "a", "1", artifact.TypeJar))
}

func TestConfigurationResolver_OrderIndependent(t *testing.T) {
	resolvers, cfg := largeBuild(t)
	expected, err := resolution.NewConfigurationResolver(resolution.ScopeProject, resolvers, resolution.WithConcurrency(1)).Resolve(t.Context(), cfg)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	for i := range 10 {
		shuffled := *cfg
		shuffled.FirstLevel = slices.Clone(cfg.FirstLevel)
		shuffled.Artifacts = slices.Clone(cfg.Artifacts)
		rng.Shuffle(len(shuffled.FirstLevel), func(i, j int) {
			shuffled.FirstLevel[i], shuffled.FirstLevel[j] = shuffled.FirstLevel[j], shuffled.FirstLevel[i]
		})
		rng.Shuffle(len(shuffled.Artifacts), func(i, j int) {
			shuffled.Artifacts[i], shuffled.Artifacts[j] = shuffled.Artifacts[j], shuffled.Artifacts[i]
		})

		got, err := resolution.NewConfigurationResolver(resolution.ScopeProject, resolvers, resolution.WithConcurrency(i+2)).Resolve(t.Context(), &shuffled)
		require.NoError(t, err)
		if diff := cmp.Diff(expected, got); diff != "" {
			t.Fatalf("result depends on order (-want +got):\n%s", diff)
		}
	}
}
