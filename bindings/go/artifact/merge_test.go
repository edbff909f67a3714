package artifact_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
)

var (
	libJar = artifact.New("com.example", "lib", "1.0.0", artifact.TypeJar)
	libPom = artifact.New("com.example", "lib", "1.0.0", artifact.TypePom)
	depJar = artifact.New("org.dep", "dep", "2.0", artifact.TypeJar)
)

func permutations(in []artifact.Artifact) [][]artifact.Artifact {
	if len(in) <= 1 {
		return [][]artifact.Artifact{append([]artifact.Artifact(nil), in...)}
	}
	var out [][]artifact.Artifact
	for i := range in {
		rest := make([]artifact.Artifact, 0, len(in)-1)
		rest = append(rest, in[:i]...)
		rest = append(rest, in[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]artifact.Artifact{in[i]}, p...))
		}
	}
	return out
}

func TestMerge_OrderIndependent(t *testing.T) {
	input := []artifact.Artifact{
		artifact.NewArtifact(libJar, "abc", "https://mirror-b.example/lib-1.0.0.jar"),
		artifact.NewArtifact(depJar, "", "https://repo.example/dep-2.0.jar"),
		artifact.NewArtifact(libJar, "abc", "https://mirror-a.example/lib-1.0.0.jar"),
		artifact.NewArtifact(libPom, "", "https://mirror-a.example/lib-1.0.0.pom"),
		artifact.NewArtifact(libJar, "", "https://mirror-a.example/lib-1.0.0.jar"),
	}

	expected := artifact.Merge(input)
	require.Len(t, expected, 3)

	for _, perm := range permutations(input) {
		if diff := cmp.Diff(expected, artifact.Merge(perm)); diff != "" {
			t.Fatalf("merge depends on input order (-want +got):\n%s", diff)
		}
	}
}

func TestMerge_UnionsURLs(t *testing.T) {
	merged := artifact.Merge([]artifact.Artifact{
		artifact.NewArtifact(libJar, "abc", "https://b.example/lib.jar"),
		artifact.NewArtifact(libJar, "", "https://a.example/lib.jar", "https://b.example/lib.jar"),
	})
	require.Len(t, merged, 1)
	assert.Equal(t, libJar, merged[0].Identifier)
	assert.Equal(t, []string{"https://a.example/lib.jar", "https://b.example/lib.jar"}, merged[0].URLs)
	assert.Equal(t, "abc", merged[0].SHA256)
}

func TestMerge_NoDuplicateIdentifiers(t *testing.T) {
	var input []artifact.Artifact
	for range 5 {
		input = append(input,
			artifact.NewArtifact(libJar, "", "https://a.example/lib.jar"),
			artifact.NewArtifact(libPom, "", "https://a.example/lib.pom"),
		)
	}
	merged := artifact.Merge(input)
	assert.Equal(t, []artifact.Identifier{libJar, libPom}, artifact.Identifiers(merged))
}

func TestMergeWithConflicts(t *testing.T) {
	merged, conflicts := artifact.MergeWithConflicts([]artifact.Artifact{
		artifact.NewArtifact(libPom, "ffff", "https://a.example/lib.pom"),
		artifact.NewArtifact(libPom, "0000", "https://b.example/lib.pom"),
		artifact.NewArtifact(libJar, "abc", "https://a.example/lib.jar"),
	})
	require.Len(t, merged, 2)
	assert.Equal(t, "0000", merged[1].SHA256)
	require.Len(t, conflicts, 1)
	assert.Equal(t, libPom, conflicts[0].Identifier)
	assert.Equal(t, []string{"0000", "ffff"}, conflicts[0].Hashes)
}

func TestWithURLs(t *testing.T) {
	filtered := artifact.WithURLs([]artifact.Artifact{
		artifact.NewArtifact(libJar, "abc"),
		artifact.NewArtifact(libPom, "", "https://a.example/lib.pom"),
	})
	assert.Equal(t, []artifact.Identifier{libPom}, artifact.Identifiers(filtered))
}

func TestWithout(t *testing.T) {
	in := []artifact.Artifact{
		artifact.NewArtifact(libJar, "", "https://a.example/lib.jar"),
		artifact.NewArtifact(depJar, "", "https://a.example/dep.jar"),
	}
	assert.Equal(t, []artifact.Identifier{depJar}, artifact.Identifiers(artifact.Without(in, []artifact.Identifier{libJar})))
	assert.Len(t, in, 2, "input must not be modified")
}

func TestSortedUnique(t *testing.T) {
	assert.Equal(t,
		[]artifact.Identifier{libJar, libPom, depJar},
		artifact.SortedUnique([]artifact.Identifier{depJar, libPom, libJar, depJar, libPom}),
	)
}
