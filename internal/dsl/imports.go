package dsl

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/riskline/decisionengine/internal/ast"
	"gopkg.in/yaml.v3"
)

type color int

const (
	white color = iota // unvisited
	gray               // in progress (on the current DFS path)
	black              // fully resolved
)

// ImportResolver resolves `include:` directives relative to a virtual root
// directory, lazily, detecting cycles via DFS coloring (spec §4.1, §9).
type ImportResolver struct {
	root  string
	color map[string]color
	stack []string
	docs  map[string]*ast.Document
}

// NewImportResolver creates a resolver rooted at root. Relative include
// paths are joined to root; absolute paths are used as given, and `..`
// segments are not rejected, so an include can name a file outside root.
func NewImportResolver(root string) *ImportResolver {
	return &ImportResolver{
		root:  root,
		color: make(map[string]color),
		docs:  make(map[string]*ast.Document),
	}
}

// LoadAll walks from each entryPath, resolving `include:` directives
// transitively, and returns every document reached (entry points plus
// everything they include, each document once even when its file is
// reached from several places; every document of a multi-document file is
// kept).
func (r *ImportResolver) LoadAll(entryPaths []string) ([]*ast.Document, error) {
	var out []*ast.Document
	seen := make(map[*ast.Document]bool)
	for _, p := range entryPaths {
		docs, err := r.load(p)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (r *ImportResolver) load(relPath string) ([]*ast.Document, error) {
	abs, err := r.resolve(relPath)
	if err != nil {
		return nil, err
	}

	switch r.color[abs] {
	case gray:
		cycle := append(append([]string{}, r.stack...), abs)
		return nil, &CyclicImportError{Cycle: cycle}
	case black:
		if doc, ok := r.docs[abs]; ok {
			return []*ast.Document{doc}, nil
		}
		return nil, nil
	}

	r.color[abs] = gray
	r.stack = append(r.stack, abs)
	defer func() {
		r.stack = r.stack[:len(r.stack)-1]
		r.color[abs] = black
	}()

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("dsl: reading %s: %w", abs, err)
	}

	var out []*ast.Document
	for _, raw := range splitDocuments(data) {
		doc, err := ParseDocument(abs, raw)
		if err != nil {
			return nil, err
		}
		doc.SourcePath = abs
		r.docs[abs] = doc
		out = append(out, doc)

		for _, imp := range doc.Imports {
			included, err := r.load(imp.Include)
			if err != nil {
				return nil, err
			}
			out = append(out, included...)
		}
	}

	return out, nil
}

func (r *ImportResolver) resolve(relPath string) (string, error) {
	if filepath.IsAbs(relPath) {
		return relPath, nil
	}
	joined := filepath.Join(r.root, relPath)
	return joined, nil
}

// splitDocuments splits a multi-document YAML stream ("---"-separated) into
// individual byte slices, skipping empty documents.
func splitDocuments(data []byte) [][]byte {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out [][]byte
	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			break
		}
		encoded, err := yaml.Marshal(&node)
		if err != nil || len(bytes.TrimSpace(encoded)) == 0 {
			continue
		}
		out = append(out, encoded)
	}
	if len(out) == 0 {
		return [][]byte{data}
	}
	return out
}
