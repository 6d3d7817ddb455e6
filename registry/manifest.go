package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest describes one plugin as declared by a *.plugin.yaml file in
// a search path.
type Manifest struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description,omitempty"`

	source string // file the manifest was read from, for error messages
}

// Source returns the file path this manifest was discovered in.
func (m Manifest) Source() string {
	return m.source
}

const manifestSuffix = ".plugin.yaml"

// Discover walks the given search paths and parses every plugin
// manifest found. Search paths that do not exist are skipped, so a
// fixed set of configured directories can be passed without probing
// first. Manifests are returned sorted by id; duplicate ids across
// paths are an error.
func Discover(paths ...string) ([]Manifest, error) {
	var manifests []Manifest
	seen := make(map[string]string) // id -> source file

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat search path %s: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("search path %s is not a directory", root)
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isManifestFile(d.Name()) {
				return nil
			}

			m, err := readManifest(path)
			if err != nil {
				return err
			}

			if prev, dup := seen[m.ID]; dup {
				return fmt.Errorf("%w: %q in %s and %s", ErrDuplicateID, m.ID, prev, path)
			}
			seen[m.ID] = path
			manifests = append(manifests, m)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("discover plugins under %s: %w", root, err)
		}
	}

	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].ID < manifests[j].ID
	})
	return manifests, nil
}

func isManifestFile(name string) bool {
	return strings.HasSuffix(name, manifestSuffix) ||
		strings.HasSuffix(name, ".plugin.yml")
}

func readManifest(path string) (Manifest, error) {
	var m Manifest

	// #nosec G304 -- path comes from walking caller-configured search paths.
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("read manifest %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.ID == "" {
		return m, fmt.Errorf("%w: manifest %s", ErrEmptyID, path)
	}

	m.source = path
	return m, nil
}
