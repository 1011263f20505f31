package cmd

import (
	"fmt"

	"github.com/bianoble/kunai/internal/artifact"
	"github.com/bianoble/kunai/internal/engine"
	"github.com/bianoble/kunai/internal/lock"
	"github.com/bianoble/kunai/internal/scheme"
)

// loadSources reads and validates the source file.
func loadSources() (lock.SourceMap, error) {
	sources, err := lock.Load(sourceFile)
	if err != nil {
		return nil, err
	}
	return sources, nil
}

// saveSources writes the source file atomically.
func saveSources(sources lock.SourceMap) error {
	if err := lock.Save(sourceFile, sources); err != nil {
		return fmt.Errorf("saving %s: %w", sourceFile, err)
	}
	return nil
}

// newUpdateEngine wires an update engine against real git and nix.
func newUpdateEngine() *engine.UpdateEngine {
	return &engine.UpdateEngine{
		Lister: &scheme.GitRefLister{},
		Hasher: &artifact.NixHasher{},
	}
}

// newAddEngine wires an add engine against real git and nix.
func newAddEngine() *engine.AddEngine {
	return &engine.AddEngine{
		Lister: &scheme.GitRefLister{},
		Hasher: &artifact.NixHasher{},
	}
}
