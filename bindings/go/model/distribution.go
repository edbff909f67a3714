package model

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/magiconair/properties"
	"github.com/opencontainers/go-digest"
	slogcontext "github.com/veqryn/slog-context"
)

// ErrNativePlatformNotFound is returned when the Gradle installation does not
// ship a native-platform jar. The native version cannot be guessed, so the
// whole model build fails.
var ErrNativePlatformNotFound = errors.New("native-platform jar not found")

const (
	// DistributionTypeBin is the default distribution type.
	DistributionTypeBin = "bin"
	DistributionTypeAll = "all"

	wrapperDistributionURL    = "distributionUrl"
	wrapperDistributionSHA256 = "distributionSha256Sum"
)

var (
	nativePlatformJar = regexp.MustCompile(`^native-platform-([\d.]+(-(alpha|beta|milestone)-\d+)?)\.jar$`)
	distributionName  = regexp.MustCompile(`gradle-([^/]+)-(bin|all)\.zip$`)
)

// Gradle is the distribution entry of the model.
type Gradle struct {
	Version       string `json:"version"`
	Type          string `json:"type"`
	URL           string `json:"url"`
	SHA256        string `json:"sha256"`
	NativeVersion string `json:"nativeVersion"`
}

// ResolveDistribution completes spec into the distribution entry of the
// model. Missing values are read from the wrapper properties, the hash is
// computed by downloading the distribution unless given, and the native
// platform version is read from the jar in <gradleHome>/lib.
func ResolveDistribution(ctx context.Context, client *http.Client, spec *GradleSpec) (*Gradle, error) {
	if spec == nil {
		return nil, errors.New("no gradle distribution specified")
	}
	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", Realm))

	gradle := &Gradle{
		Version: spec.Version,
		Type:    strings.ToLower(spec.DistributionType),
		URL:     spec.DistributionURL,
		SHA256:  spec.DistributionSHA256,
	}

	if spec.WrapperProperties != "" {
		props, err := properties.LoadFile(spec.WrapperProperties, properties.UTF8)
		if err != nil {
			return nil, fmt.Errorf("failed to load wrapper properties: %w", err)
		}
		if gradle.URL == "" {
			gradle.URL = props.GetString(wrapperDistributionURL, "")
		}
		if gradle.SHA256 == "" {
			gradle.SHA256 = props.GetString(wrapperDistributionSHA256, "")
		}
	}
	if gradle.URL == "" {
		return nil, errors.New("no gradle distribution url specified")
	}

	if m := distributionName.FindStringSubmatch(gradle.URL); m != nil {
		if gradle.Version == "" {
			gradle.Version = m[1]
		}
		if gradle.Type == "" {
			gradle.Type = m[2]
		}
	}
	if gradle.Type == "" {
		gradle.Type = DistributionTypeBin
	}
	if gradle.Type != DistributionTypeBin && gradle.Type != DistributionTypeAll {
		return nil, fmt.Errorf("unsupported gradle distribution type %q", gradle.Type)
	}
	if _, err := semver.NewVersion(gradle.Version); err != nil {
		return nil, fmt.Errorf("invalid gradle version %q: %w", gradle.Version, err)
	}

	if spec.GradleHome == "" {
		return nil, fmt.Errorf("no gradle home specified: %w", ErrNativePlatformNotFound)
	}
	native, err := NativeVersion(os.DirFS(spec.GradleHome))
	if err != nil {
		return nil, fmt.Errorf("gradle home %s: %w", spec.GradleHome, err)
	}
	gradle.NativeVersion = native

	if gradle.SHA256 == "" {
		logger.Log(ctx, slog.LevelInfo, "downloading gradle distribution", slog.String("url", gradle.URL))
		sum, err := downloadSHA256(ctx, client, gradle.URL)
		if err != nil {
			return nil, err
		}
		gradle.SHA256 = sum
	} else if err := digest.NewDigestFromEncoded(digest.SHA256, gradle.SHA256).Validate(); err != nil {
		return nil, fmt.Errorf("invalid gradle distribution hash: %w", err)
	}

	logger.Log(ctx, slog.LevelDebug, "resolved gradle distribution",
		slog.String("version", gradle.Version),
		slog.String("type", gradle.Type),
		slog.String("nativeVersion", gradle.NativeVersion))
	return gradle, nil
}

// NativeVersion returns the version of the first native-platform jar in the
// lib directory of a Gradle installation.
func NativeVersion(gradleHome fs.FS) (string, error) {
	entries, err := fs.ReadDir(gradleHome, "lib")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to list gradle libraries: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if m := nativePlatformJar.FindStringSubmatch(entry.Name()); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("lib/native-platform-*.jar: %w", ErrNativePlatformNotFound)
}

func downloadSHA256(ctx context.Context, client *http.Client, url string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: unexpected status %s", url, resp.Status)
	}
	dig, err := digest.SHA256.FromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", url, err)
	}
	return dig.Encoded(), nil
}
