package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// FileSource reads batches from YAML files.
type FileSource struct {
	name  string
	paths []string
	dir   string
}

// NewFileSource imports the given files in order.
func NewFileSource(name string, paths ...string) *FileSource {
	return &FileSource{name: name, paths: paths}
}

// NewDirSource imports every *.yaml and *.yml file of dir, sorted by name,
// each time it is fetched.
func NewDirSource(name, dir string) *FileSource {
	return &FileSource{name: name, dir: dir}
}

// Name identifies the source in the registry.
func (s *FileSource) Name() string {
	return s.name
}

// Fetch parses every file into a batch.
func (s *FileSource) Fetch(ctx context.Context) ([]Batch, error) {
	paths := s.paths
	if s.dir != "" {
		var err error
		if paths, err = yamlFiles(s.dir); err != nil {
			return nil, err
		}
	}

	batches := make([]Batch, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

func yamlFiles(dir string) ([]string, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("importer: list %s: %w", dir, err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadFile parses one YAML batch file. Unknown keys are rejected.
func LoadFile(path string) (Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Batch{}, fmt.Errorf("importer: read %s: %w", path, err)
	}
	batch, err := ParseBatch(data)
	if err != nil {
		return Batch{}, fmt.Errorf("importer: parse %s: %w", path, err)
	}
	return batch, nil
}

// ParseBatch decodes a YAML batch document.
func ParseBatch(data []byte) (Batch, error) {
	var batch Batch
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&batch); err != nil {
		if errors.Is(err, io.EOF) {
			return Batch{}, errors.New("empty document")
		}
		return Batch{}, err
	}
	return batch, nil
}
