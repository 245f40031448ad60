package config

import (
	"fmt"
	"os"

	pkgconfig "github.com/mocher01/agixt-configs-sub000/pkg/config"
	"github.com/mocher01/agixt-configs-sub000/pkg/envfile"
)

// LoadResult carries a parsed base configuration and any parse warnings.
type LoadResult struct {
	Base     pkgconfig.Set
	Path     string
	Warnings []string
}

// LoadFile parses the KEY=VALUE file at path into a base configuration set.
func LoadFile(path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	doc, err := envfile.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	return &LoadResult{
		Base:     pkgconfig.FromStrings(doc.Values),
		Path:     path,
		Warnings: doc.Warnings,
	}, nil
}

// Load discovers and parses a local configuration, combining the locator's
// precedence chain with the env file codec.
func Load(explicitPath string) (*LoadResult, error) {
	location, err := LocateConfig(explicitPath)
	if err != nil {
		return nil, err
	}
	return LoadFile(location.Path)
}
