package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Set with -ldflags "-X gradle2nix.dev/gradle2nix/cli/internal/version.gitVersion=...".
var (
	gitVersion = "0.0.0-dev"
	gitCommit  string
	buildDate  string
)

type Info struct {
	Major      string `json:"major"`
	Minor      string `json:"minor"`
	Patch      string `json:"patch"`
	PreRelease string `json:"prerelease"`
	Meta       string `json:"meta"`
	GitVersion string `json:"gitVersion"`
	GitCommit  string `json:"gitCommit"`
	BuildDate  string `json:"buildDate"`
	GoVersion  string `json:"goVersion"`
	Compiler   string `json:"compiler"`
	Platform   string `json:"platform"`
}

// Get returns the version the binary was built from. A module version
// from the build info wins over the linked defaults; development builds
// fall back to them.
func Get() (Info, error) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return Info{}, fmt.Errorf("could not read build info")
	}
	raw := gitVersion
	if mv := bi.Main.Version; mv != "" && mv != "(devel)" {
		raw = mv
	}
	return parse(raw, bi)
}

func parse(raw string, bi *debug.BuildInfo) (Info, error) {
	v, err := semver.NewVersion(raw)
	if err != nil {
		return Info{}, fmt.Errorf("could not parse version %q: %w", raw, err)
	}

	commit, date := gitCommit, buildDate
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			if commit == "" {
				commit = setting.Value
			}
		case "vcs.time":
			if date == "" {
				date = setting.Value
			}
		}
	}
	// Pseudo versions carry the commit time and hash, e.g.
	// v0.0.0-20240101120000-abcdef123456.
	if commit == "" {
		if _, hash, ok := strings.Cut(v.Prerelease(), "-"); ok {
			commit = hash
		}
	}

	return Info{
		Major:      strconv.FormatUint(v.Major(), 10),
		Minor:      strconv.FormatUint(v.Minor(), 10),
		Patch:      strconv.FormatUint(v.Patch(), 10),
		PreRelease: v.Prerelease(),
		Meta:       v.Metadata(),
		GitVersion: v.String(),
		GitCommit:  commit,
		BuildDate:  date,
		GoVersion:  bi.GoVersion,
		Compiler:   runtime.Compiler,
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}, nil
}
