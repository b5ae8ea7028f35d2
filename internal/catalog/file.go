// Package catalog provides read-only species attribute sources.
package catalog

import (
	"aquasync/pkg/domain"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Compile-time contract assertion ensuring FileSource adheres to the catalog interface.
var _ domain.CatalogSource = (*FileSource)(nil)

// document accepts either a bare list of records or a {species: [...]} wrapper.
type document struct {
	Species []domain.SpeciesRecord `json:"species" yaml:"species"`
}

// FileSource reads a JSON or YAML catalog file. The file is re-read on every
// ListSpecies call so edits are picked up without a restart.
type FileSource struct {
	path string
}

// NewFileSource returns a source for the catalog at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the catalog file path.
func (f *FileSource) Path() string { return f.path }

// ListSpecies implements domain.CatalogSource.
func (f *FileSource) ListSpecies(ctx context.Context) ([]domain.SpeciesRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Decode(data, filepath.Ext(f.path))
}

// GetSpecies implements domain.CatalogSource.
func (f *FileSource) GetSpecies(ctx context.Context, name string) (domain.SpeciesRecord, bool, error) {
	records, err := f.ListSpecies(ctx)
	if err != nil {
		return domain.SpeciesRecord{}, false, err
	}
	rec, ok := Find(records, name)
	return rec, ok, nil
}

// Decode parses catalog bytes. ext selects the format (".json", ".yaml",
// ".yml"); anything else is sniffed from the content.
func Decode(data []byte, ext string) ([]domain.SpeciesRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	asJSON := strings.EqualFold(ext, ".json")
	if ext == "" || (!asJSON && !strings.EqualFold(ext, ".yaml") && !strings.EqualFold(ext, ".yml")) {
		asJSON = trimmed[0] == '[' || trimmed[0] == '{'
	}
	if asJSON {
		if trimmed[0] == '[' {
			var list []domain.SpeciesRecord
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return nil, fmt.Errorf("decode json catalog: %w", err)
			}
			return list, nil
		}
		var doc document
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("decode json catalog: %w", err)
		}
		return doc.Species, nil
	}
	var list []domain.SpeciesRecord
	if err := yaml.Unmarshal(trimmed, &list); err == nil {
		return list, nil
	}
	var doc document
	if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml catalog: %w", err)
	}
	return doc.Species, nil
}

// Find returns the first record whose name matches name case-insensitively,
// the same record the normalizer keeps when a catalog spells a species twice.
func Find(records []domain.SpeciesRecord, name string) (domain.SpeciesRecord, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.SpeciesRecord{}, false
	}
	for _, rec := range records {
		if strings.EqualFold(strings.TrimSpace(rec.Name), name) {
			return rec, true
		}
	}
	return domain.SpeciesRecord{}, false
}
