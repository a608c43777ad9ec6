package visualize

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"tmpl-backend/internal/core"
	"tmpl-backend/internal/core/types"
)

const (
	EntryFile = "index.html"
	URLPrefix = "/visuals"
)

// Resolver maps validated (variant, topic count) pairs onto the precomputed
// bundles under the results root, laid out as <root>/<variant>/<k>/index.html.
type Resolver struct {
	root    string
	catalog *core.Catalog
}

func NewResolver(resultsDir string, catalog *core.Catalog) (*Resolver, error) {
	root, err := filepath.Abs(resultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", resultsDir, err)
	}
	return &Resolver{root: root, catalog: catalog}, nil
}

func (r *Resolver) Root() string {
	return r.root
}

func (r *Resolver) bundleDir(variant types.ModelVariant, k int) (string, error) {
	dir := filepath.Join(r.root, string(variant), strconv.Itoa(k))

	rel, err := filepath.Rel(r.root, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("bundle path for %s/%d escapes the results root", variant, k)
	}
	return dir, nil
}

func (r *Resolver) Resolve(variant types.ModelVariant, k int) (types.VisualizationBundle, error) {
	if !r.catalog.HasTopicCount(string(variant), k) {
		return types.VisualizationBundle{}, &core.NotFoundError{ModelVariant: string(variant), TopicCount: k}
	}

	dir, err := r.bundleDir(variant, k)
	if err != nil {
		return types.VisualizationBundle{}, err
	}

	entry := filepath.Join(dir, EntryFile)
	info, err := os.Stat(entry)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.VisualizationBundle{}, &core.NotFoundError{ModelVariant: string(variant), TopicCount: k}
		}
		return types.VisualizationBundle{}, fmt.Errorf("error checking bundle %s/%d: %w", variant, k, err)
	}
	if !info.Mode().IsRegular() {
		return types.VisualizationBundle{}, &core.NotFoundError{ModelVariant: string(variant), TopicCount: k}
	}

	return types.VisualizationBundle{
		ModelVariant: variant,
		TopicCount:   k,
		BundlePath:   dir,
		EntryPath:    entry,
		URL:          path.Join(URLPrefix, string(variant), strconv.Itoa(k)) + "/",
	}, nil
}

// List returns every catalog entry that has a bundle on disk.
func (r *Resolver) List() []types.VisualizationBundle {
	var bundles []types.VisualizationBundle
	for _, variant := range r.catalog.VariantNames() {
		for _, k := range r.catalog.Variants[variant] {
			bundle, err := r.Resolve(types.ModelVariant(variant), k)
			if err == nil {
				bundles = append(bundles, bundle)
			}
		}
	}
	return bundles
}

// FileServer serves bundle files. Directories are only served through their
// index.html; there are no listings.
func (r *Resolver) FileServer() http.Handler {
	return http.StripPrefix(URLPrefix, http.FileServer(noListingFS{http.Dir(r.root)}))
}

type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	if info.IsDir() {
		index, err := n.fs.Open(path.Join(name, EntryFile))
		if err != nil {
			f.Close()
			return nil, fs.ErrNotExist
		}
		index.Close()
	}

	return f, nil
}
