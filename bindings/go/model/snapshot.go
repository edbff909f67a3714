package model

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"sigs.k8s.io/yaml"

	"gradle2nix.dev/gradle2nix/bindings/go/repository"
	"gradle2nix.dev/gradle2nix/bindings/go/resolution"
)

//go:embed snapshot.schema.json
var snapshotSchema []byte

const snapshotSchemaResource = "snapshot.schema.json"

// Snapshot is everything the host build reported about itself: the Gradle
// distribution, declared repositories and resolved configurations per
// scope, and the project tree.
type Snapshot struct {
	Gradle         *GradleSpec     `json:"gradle"`
	GradleUserHome string          `json:"gradleUserHome,omitempty"`
	Settings       Script          `json:"settings,omitempty"`
	Plugins        Plugins         `json:"plugins,omitempty"`
	RootProject    ProjectSnapshot `json:"rootProject"`
	IncludedBuilds []IncludedBuild `json:"includedBuilds,omitempty"`
}

// GradleSpec describes the Gradle distribution used by the build. Values
// not given explicitly are read from the wrapper properties file.
type GradleSpec struct {
	Version            string `json:"version,omitempty"`
	DistributionType   string `json:"distributionType,omitempty"`
	DistributionURL    string `json:"distributionUrl,omitempty"`
	DistributionSHA256 string `json:"distributionSha256,omitempty"`
	GradleHome         string `json:"gradleHome,omitempty"`
	WrapperProperties  string `json:"wrapperProperties,omitempty"`
}

// Script is a settings or build script classpath.
type Script struct {
	Repositories   []repository.Declaration    `json:"repositories,omitempty"`
	Configurations []*resolution.Configuration `json:"configurations,omitempty"`
}

// Plugins are the plugin requests of the build. Configuration is the host's
// resolution of the requests, if it could resolve them.
type Plugins struct {
	Repositories  []repository.Declaration   `json:"repositories,omitempty"`
	Requests      []resolution.PluginRequest `json:"requests,omitempty"`
	Configuration *resolution.Configuration  `json:"configuration,omitempty"`
}

// ProjectSnapshot is one project of the build.
type ProjectSnapshot struct {
	Name           string                      `json:"name"`
	Version        string                      `json:"version,omitempty"`
	Path           string                      `json:"path"`
	ProjectDir     string                      `json:"projectDir,omitempty"`
	Buildscript    Script                      `json:"buildscript,omitempty"`
	Repositories   []repository.Declaration    `json:"repositories,omitempty"`
	Configurations []*resolution.Configuration `json:"configurations,omitempty"`
	// ProjectDependencies are the paths of projects this project depends on.
	ProjectDependencies []string           `json:"projectDependencies,omitempty"`
	Children            []*ProjectSnapshot `json:"children,omitempty"`
}

// IncludedBuild is a composite build member. It is passed through as is.
type IncludedBuild struct {
	Name       string `json:"name"`
	ProjectDir string `json:"projectDir"`
}

var compileSnapshotSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(snapshotSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(snapshotSchemaResource, doc); err != nil {
		return nil, fmt.Errorf("failed to add snapshot schema: %w", err)
	}
	schema, err := compiler.Compile(snapshotSchemaResource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile snapshot schema: %w", err)
	}
	return schema, nil
})

// DecodeSnapshot reads a JSON or YAML snapshot and validates it against the
// snapshot schema before decoding it.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if err := ValidateSnapshot(data); err != nil {
		return nil, err
	}
	var snapshot Snapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// ValidateSnapshot validates a JSON or YAML snapshot document.
func ValidateSnapshot(data []byte) error {
	schema, err := compileSnapshotSchema()
	if err != nil {
		return err
	}
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("failed to convert snapshot to json: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	return nil
}

// Projects returns the project and all its descendants, depth first.
func (p *ProjectSnapshot) Projects() []*ProjectSnapshot {
	projects := []*ProjectSnapshot{p}
	for _, child := range p.Children {
		projects = append(projects, child.Projects()...)
	}
	return projects
}
