package model

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"
)

// Format is an output format of the manifest.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists the supported output formats.
func Formats() []Format {
	return []Format{FormatJSON, FormatYAML}
}

// ParseFormat parses an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", s)
	}
}

// Encode writes the manifest to w. JSON is indented by two spaces. YAML
// keeps the field order of JSON.
func Encode(w io.Writer, build *Build, format Format) error {
	data, err := json.MarshalIndent(build, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	switch format {
	case FormatJSON, "":
		data = append(data, '\n')
		_, err = w.Write(data)
		return err
	case FormatYAML:
		return encodeYAML(w, data)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// encodeYAML converts JSON to YAML through a node tree, which preserves
// the key order.
func encodeYAML(w io.Writer, data []byte) error {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("failed to convert manifest to yaml: %w", err)
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("failed to encode manifest as yaml: %w", err)
	}
	return enc.Close()
}

// blockStyle resets the flow and quoting styles JSON input parses with. The
// encoder still quotes strings that would read back as another type.
func blockStyle(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		blockStyle(child)
	}
}

// Fingerprint returns the SHA-256 digest of the canonical JSON encoding of
// the manifest. Equal manifests have equal fingerprints regardless of
// formatting.
func Fingerprint(build *Build) (digest.Digest, error) {
	data, err := json.Marshal(build)
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}
	canonical, err := jsoncanonicalizer.Transform(data)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize manifest: %w", err)
	}
	return digest.SHA256.FromBytes(canonical), nil
}
