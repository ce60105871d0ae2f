// Package repository loads a directory of DSL source files into a compiled
// ir.ProgramSet: it discovers entry documents, resolves their `include:`
// directives via dsl.ImportResolver, builds the cross-document
// semantic.Universe, and compiles it. This is the "parse -> compile" half
// of spec §4.8's reload pipeline, kept separate from internal/engine so the
// engine package stays agnostic of where a program-set comes from.
package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/riskline/decisionengine/internal/dsl"
	"github.com/riskline/decisionengine/internal/ir"
	"github.com/riskline/decisionengine/internal/semantic"
)

// Load walks root for *.yaml/*.yml files, treating every one as a
// potential entry point (ImportResolver deduplicates anything reached via
// `include:` from another file), then compiles the resulting universe.
func Load(root string) (*ir.ProgramSet, []*semantic.CompileError) {
	entries, err := discoverEntries(root)
	if err != nil {
		return nil, []*semantic.CompileError{{Message: fmt.Sprintf("repository: %v", err)}}
	}

	resolver := dsl.NewImportResolver(root)
	docs, err := resolver.LoadAll(entries)
	if err != nil {
		return nil, []*semantic.CompileError{{Message: fmt.Sprintf("repository: %v", err)}}
	}

	universe, errs := semantic.BuildUniverse(docs)
	if len(errs) > 0 {
		return nil, errs
	}

	return ir.Compile(universe)
}

// discoverEntries finds every YAML file under root, relative to root, in
// deterministic order so repeated loads of the same tree are stable.
func discoverEntries(root string) ([]string, error) {
	var rel []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		r, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = append(rel, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %q: %w", root, err)
	}
	sort.Strings(rel)
	return rel, nil
}
