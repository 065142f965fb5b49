// Package curated loads hand-maintained source documents: tradition texts
// kept as plain files (txt, md, pdf) and the correspondence workbook that
// overrides scanned card attributes.
package curated

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader turns one document format into plain text.
type Loader interface {
	SupportedFormats() []string
	Load(ctx context.Context, path string) (string, error)
}

// Registry maps file extensions to loaders.
type Registry struct {
	loaders map[string]Loader
}

func NewRegistry() *Registry {
	r := &Registry{loaders: make(map[string]Loader)}
	for _, l := range []Loader{&TextLoader{}, &PDFLoader{}} {
		for _, f := range l.SupportedFormats() {
			r.loaders[f] = l
		}
	}
	return r
}

func (r *Registry) Get(format string) (Loader, error) {
	l, ok := r.loaders[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("no loader for format: %s", format)
	}
	return l, nil
}

func (r *Registry) Register(format string, l Loader) {
	r.loaders[format] = l
}

// Load reads path with the loader registered for its extension.
func (r *Registry) Load(ctx context.Context, path string) (string, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	l, err := r.Get(ext)
	if err != nil {
		return "", err
	}
	return l.Load(ctx, path)
}

// ListDocuments walks dir and returns the loadable files in sorted order.
// A missing directory is not an error; curated sources are optional.
func (r *Registry) ListDocuments(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var docs []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		if _, ok := r.loaders[ext]; ok {
			docs = append(docs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking curated dir: %w", err)
	}
	sort.Strings(docs)
	return docs, nil
}
