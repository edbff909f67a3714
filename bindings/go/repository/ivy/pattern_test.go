package ivy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradle2nix.dev/gradle2nix/bindings/go/artifact"
	"gradle2nix.dev/gradle2nix/bindings/go/repository/ivy"
)

func TestSubstitute(t *testing.T) {
	tokens := map[string]string{
		"organisation": "com.example",
		"module":       "lib",
		"revision":     "1.0",
		"artifact":     "lib",
		"ext":          "jar",
		"classifier":   "",
	}

	tests := []struct {
		name    string
		pattern string
		want    string
		wantErr bool
	}{
		{name: "plain", pattern: "[organisation]/[module]/[revision]/[artifact].[ext]", want: "com.example/lib/1.0/lib.jar"},
		{name: "empty optional part is dropped", pattern: "[artifact]-[revision](-[classifier])(.[ext])", want: "lib-1.0.jar"},
		{name: "literal optional part is kept", pattern: "[artifact](-sources)", want: "lib-sources"},
		{name: "unknown token", pattern: "[branch]/[artifact]", wantErr: true},
		{name: "unterminated token", pattern: "[artifact", wantErr: true},
		{name: "unbalanced group", pattern: "[artifact])", wantErr: true},
		{name: "nested group", pattern: "((-[classifier]))", wantErr: true},
		{name: "unterminated group", pattern: "(-[classifier]", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ivy.Substitute(tc.pattern, tokens)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLayouts(t *testing.T) {
	jar := artifact.New("com.example.tools", "lib", "1.0", artifact.TypeJar).WithClassifier("sources")
	descriptor := artifact.New("com.example.tools", "lib", "1.0", artifact.TypeIvy)

	tests := []struct {
		layout     string
		jar        string
		descriptor string
	}{
		{
			layout:     ivy.LayoutGradle,
			jar:        "https://repo.example/com.example.tools/lib/1.0/lib-1.0-sources.jar",
			descriptor: "https://repo.example/com.example.tools/lib/1.0/ivy-1.0.xml",
		},
		{
			layout:     ivy.LayoutMaven,
			jar:        "https://repo.example/com/example/tools/lib/1.0/lib-1.0-sources.jar",
			descriptor: "https://repo.example/com/example/tools/lib/1.0/ivy-1.0.xml",
		},
		{
			layout:     ivy.LayoutIvy,
			jar:        "https://repo.example/com.example.tools/lib/1.0/jars/lib-sources.jar",
			descriptor: "https://repo.example/com.example.tools/lib/1.0/ivys/ivy.xml",
		},
	}
	for _, tc := range tests {
		t.Run(tc.layout, func(t *testing.T) {
			layout, err := ivy.LayoutByName(tc.layout)
			require.NoError(t, err)
			r := ivy.New("https://repo.example/", layout)

			urls, err := r.URLs(jar)
			require.NoError(t, err)
			assert.Equal(t, []string{tc.jar}, urls)

			urls, err = r.URLs(descriptor)
			require.NoError(t, err)
			assert.Equal(t, []string{tc.descriptor}, urls)
		})
	}

	_, err := ivy.LayoutByName("flat")
	assert.Error(t, err)
}

func TestAbsolutePatterns(t *testing.T) {
	r := ivy.New("https://repo.example", ivy.Layout{
		ArtifactPatterns: []string{
			"https://mirror.example/[organisation]/[artifact]-[revision].[ext]",
			"[module]/[revision]/[artifact].[ext]",
		},
	})
	urls, err := r.URLs(artifact.New("com.example", "lib", "1.0", artifact.TypeJar))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://mirror.example/com.example/lib-1.0.jar",
		"https://repo.example/lib/1.0/lib.jar",
	}, urls)
}
