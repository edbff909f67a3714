package model_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradle2nix.dev/gradle2nix/bindings/go/model"
)

const (
	distributionURL = "https://services.gradle.org/distributions/gradle-8.5-bin.zip"
	nativeJar       = "native-platform-0.22-milestone-25.jar"
)

var distributionSHA256 = digest.SHA256.FromString("gradle-8.5-bin.zip").Encoded()

// gradleHome creates a Gradle installation containing the given libraries.
func gradleHome(t *testing.T, libs ...string) string {
	t.Helper()
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "lib"), 0o755))
	for _, lib := range libs {
		require.NoError(t, os.WriteFile(filepath.Join(home, "lib", lib), []byte(lib), 0o644))
	}
	return home
}

func TestResolveDistribution(t *testing.T) {
	gradle, err := model.ResolveDistribution(t.Context(), nil, &model.GradleSpec{
		DistributionURL:    distributionURL,
		DistributionSHA256: distributionSHA256,
		GradleHome:         gradleHome(t, "gradle-core-8.5.jar", nativeJar),
	})
	require.NoError(t, err)
	assert.Equal(t, &model.Gradle{
		Version:       "8.5",
		Type:          "bin",
		URL:           distributionURL,
		SHA256:        distributionSHA256,
		NativeVersion: "0.22-milestone-25",
	}, gradle)
}

func TestResolveDistributionWrapperProperties(t *testing.T) {
	dir := t.TempDir()
	wrapper := filepath.Join(dir, "gradle-wrapper.properties")
	require.NoError(t, os.WriteFile(wrapper, []byte(`distributionBase=GRADLE_USER_HOME
distributionPath=wrapper/dists
distributionUrl=https\://services.gradle.org/distributions/gradle-8.10.2-all.zip
distributionSha256Sum=`+distributionSHA256+`
zipStoreBase=GRADLE_USER_HOME
`), 0o644))

	gradle, err := model.ResolveDistribution(t.Context(), nil, &model.GradleSpec{
		WrapperProperties: wrapper,
		GradleHome:        gradleHome(t, "native-platform-0.22.jar"),
	})
	require.NoError(t, err)
	assert.Equal(t, "8.10.2", gradle.Version)
	assert.Equal(t, "all", gradle.Type)
	assert.Equal(t, "https://services.gradle.org/distributions/gradle-8.10.2-all.zip", gradle.URL)
	assert.Equal(t, distributionSHA256, gradle.SHA256)
	assert.Equal(t, "0.22", gradle.NativeVersion)
}

func TestResolveDistributionDownload(t *testing.T) {
	content := []byte("a gradle distribution")
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/distributions/gradle-7.6.4-bin.zip" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(content)
	}))
	t.Cleanup(server.Close)

	gradle, err := model.ResolveDistribution(t.Context(), server.Client(), &model.GradleSpec{
		DistributionURL: server.URL + "/distributions/gradle-7.6.4-bin.zip",
		GradleHome:      gradleHome(t, nativeJar),
	})
	require.NoError(t, err)
	assert.Equal(t, digest.SHA256.FromBytes(content).Encoded(), gradle.SHA256)
	assert.Equal(t, "7.6.4", gradle.Version)
	assert.EqualValues(t, 1, requests.Load())

	_, err = model.ResolveDistribution(t.Context(), server.Client(), &model.GradleSpec{
		DistributionURL: server.URL + "/distributions/gradle-7.6.5-bin.zip",
		GradleHome:      gradleHome(t, nativeJar),
	})
	require.ErrorContains(t, err, "404")
}

func TestResolveDistributionErrors(t *testing.T) {
	tests := []struct {
		name   string
		spec   *model.GradleSpec
		native bool
		msg    string
	}{
		{
			name: "no spec",
			msg:  "no gradle distribution specified",
		},
		{
			name: "no url",
			spec: &model.GradleSpec{Version: "8.5", GradleHome: "/opt/gradle"},
			msg:  "no gradle distribution url specified",
		},
		{
			name: "invalid version",
			spec: &model.GradleSpec{DistributionURL: "https://example.com/dist.zip", Version: "eight", DistributionSHA256: distributionSHA256},
			msg:  `invalid gradle version "eight"`,
		},
		{
			name: "unsupported type",
			spec: &model.GradleSpec{DistributionURL: distributionURL, DistributionType: "src", DistributionSHA256: distributionSHA256},
			msg:  `unsupported gradle distribution type "src"`,
		},
		{
			name:   "no gradle home",
			spec:   &model.GradleSpec{DistributionURL: distributionURL, DistributionSHA256: distributionSHA256},
			native: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := model.ResolveDistribution(t.Context(), nil, tc.spec)
			require.Error(t, err)
			if tc.native {
				require.ErrorIs(t, err, model.ErrNativePlatformNotFound)
				return
			}
			assert.ErrorContains(t, err, tc.msg)
		})
	}
}

func TestResolveDistributionInvalidHash(t *testing.T) {
	_, err := model.ResolveDistribution(t.Context(), nil, &model.GradleSpec{
		DistributionURL:    distributionURL,
		DistributionSHA256: "not-a-hash",
		GradleHome:         gradleHome(t, nativeJar),
	})
	require.ErrorContains(t, err, "invalid gradle distribution hash")
}

func TestNativeVersion(t *testing.T) {
	tests := []struct {
		name    string
		fsys    fstest.MapFS
		want    string
		missing bool
	}{
		{
			name: "release",
			fsys: fstest.MapFS{"lib/native-platform-0.21.jar": {}},
			want: "0.21",
		},
		{
			name: "milestone",
			fsys: fstest.MapFS{
				"lib/gradle-core-8.5.jar":                               {},
				"lib/native-platform-0.22-milestone-25.jar":             {},
				"lib/native-platform-linux-amd64-0.22-milestone-25.jar": {},
			},
			want: "0.22-milestone-25",
		},
		{
			name: "alpha",
			fsys: fstest.MapFS{"lib/native-platform-0.14-alpha-2.jar": {}},
			want: "0.14-alpha-2",
		},
		{
			name:    "platform jars only",
			fsys:    fstest.MapFS{"lib/native-platform-linux-amd64-0.22.jar": {}},
			missing: true,
		},
		{
			name:    "no lib directory",
			fsys:    fstest.MapFS{"bin/gradle": {}},
			missing: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := model.NativeVersion(tc.fsys)
			if tc.missing {
				require.ErrorIs(t, err, model.ErrNativePlatformNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
