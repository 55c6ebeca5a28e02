// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ideas

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/article-engine/internal/extract"
	"github.com/pdiddy/article-engine/pkg/types"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the static configuration behind topic sourcing.
type Catalog struct {
	Categories []string                `yaml:"categories"`
	Directions []string                `yaml:"directions"`
	Pool       []types.TopicDescriptor `yaml:"pool"`
}

// DefaultCatalog returns the embedded catalogue.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalogue file, or the embedded one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalogue. Pool content types are
// normalized; a pool entry without a title is an error.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(c.Pool) == 0 {
		return nil, fmt.Errorf("catalog has an empty topic pool")
	}
	for i := range c.Pool {
		p := &c.Pool[i]
		p.Title = strings.TrimSpace(p.Title)
		if p.Title == "" {
			return nil, fmt.Errorf("catalog pool entry %d has no title", i)
		}
		p.ContentType = extract.NormalizeContentType(string(p.ContentType))
	}
	return &c, nil
}
