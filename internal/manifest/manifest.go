// Package manifest loads declarative fixture requests from YAML or CUE files.
//
// A manifest names the fixtures a test unit needs and how long they live:
//
//	name: checkout
//	scope: suite
//	inject: true
//	fixtures:
//	  - template: user
//	    count: 3
//	  - template: order
//	    count: 2
//
// The same document can be written in CUE with a .cue extension. Both forms
// reject unknown fields.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/datapreparer/internal/fixture"
)

// Scope is the lifetime of the fixtures a manifest requests.
type Scope string

const (
	// ScopeTest provisions per test and releases when the test ends.
	ScopeTest Scope = "test"

	// ScopeSuite provisions once for a top-level test and its subtests.
	ScopeSuite Scope = "suite"
)

// Manifest is a declarative fixture request.
type Manifest struct {
	// Name identifies the manifest in output and golden files.
	Name string `yaml:"name" json:"name"`

	// Description is free text.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Scope defaults to ScopeTest.
	Scope Scope `yaml:"scope,omitempty" json:"scope,omitempty"`

	// Inject asks adapters to hand the collection to the test target.
	Inject bool `yaml:"inject,omitempty" json:"inject,omitempty"`

	// Fixtures is the request, in provisioning order.
	Fixtures []fixture.Item `yaml:"fixtures" json:"fixtures"`
}

// Extensions lists the file extensions Load understands.
var Extensions = []string{".yaml", ".yml", ".cue"}

// Load reads a manifest file, choosing the format from its extension.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".cue":
		return ParseCUE(data, filepath.Base(path))
	default:
		return nil, fmt.Errorf("unsupported manifest extension %q (want one of %s)",
			filepath.Ext(path), strings.Join(Extensions, ", "))
	}
}

// ParseYAML decodes and validates a YAML manifest.
func ParseYAML(data []byte) (*Manifest, error) {
	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Validate checks the manifest fields and its fixture request.
// A missing scope is set to ScopeTest.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("name is required")
	}
	switch m.Scope {
	case "":
		m.Scope = ScopeTest
	case ScopeTest, ScopeSuite:
	default:
		return fmt.Errorf("scope must be %q or %q, got %q", ScopeTest, ScopeSuite, m.Scope)
	}
	if m.Fixtures == nil {
		return fmt.Errorf("fixtures list is required: %w", fixture.Validate(nil))
	}
	return fixture.Validate(m.Fixtures)
}

// Find returns the manifest files directly inside dir, sorted by name.
func Find(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range Extensions {
			if ext == want {
				paths = append(paths, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}
