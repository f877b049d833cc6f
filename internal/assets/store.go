package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"sort"
)

const (
	BundleApp    = "app"
	BundleChains = "chains"

	// IndexPath is the main document of the application bundle.
	IndexPath = "index.html"
)

// ErrEmptyBundle is returned when a bundle contains no files.
var ErrEmptyBundle = errors.New("bundle is empty")

// Entry is a single file of a bundle. Body is shared between readers and must
// not be modified.
type Entry struct {
	Path        string
	Body        []byte
	ContentType string
	ETag        string
}

// Store is an immutable snapshot of a bundle keyed by slash separated path
// without a leading slash.
type Store struct {
	name    string
	entries map[string]Entry
}

// Load reads every regular file of fsys into a new Store.
func Load(name string, fsys fs.FS) (*Store, error) {
	entries := make(map[string]Entry)
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		body, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		entries[path] = Entry{
			Path:        path,
			Body:        body,
			ContentType: ContentType(path),
			ETag:        etag(body),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s bundle: %w", name, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("load %s bundle: %w", name, ErrEmptyBundle)
	}

	return &Store{name: name, entries: entries}, nil
}

// LoadApp loads the application bundle and checks that it carries the main
// document.
func LoadApp(fsys fs.FS) (*Store, error) {
	store, err := Load(BundleApp, fsys)
	if err != nil {
		return nil, err
	}
	if _, ok := store.Get(IndexPath); !ok {
		return nil, fmt.Errorf("load %s bundle: missing %s", BundleApp, IndexPath)
	}
	return store, nil
}

func (s *Store) Name() string {
	return s.name
}

func (s *Store) Get(path string) (Entry, bool) {
	entry, ok := s.entries[path]
	return entry, ok
}

func (s *Store) Len() int {
	return len(s.entries)
}

// Paths returns every key in lexical order.
func (s *Store) Paths() []string {
	paths := make([]string, 0, len(s.entries))
	for path := range s.entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func etag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
