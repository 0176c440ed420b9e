// Package testdata resolves paths into a local test-data tree and lazily
// fetches external fixtures from remote locations on first use. External
// fixtures are registered by key, each with a source URL and an optional
// download strategy: object storage with per-entry options, a signed-URL
// provider, or a plain URL fetch.
package testdata

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hairyhenderson/go-fsimpl"
	"golang.org/x/sync/errgroup"

	"github.com/mapforge/stacmeta/internal/signing"
	"github.com/mapforge/stacmeta/pkg/logger"
	"github.com/mapforge/stacmeta/pkg/remotefs"
	"github.com/mapforge/stacmeta/pkg/safeio"
)

// ExternalSubdir is where fetched fixtures land, relative to the root.
const ExternalSubdir = "data-files/external"

const prefetchConcurrency = 4

// ExternalEntry describes one remotely hosted fixture.
type ExternalEntry struct {
	// URL is the source location. s3:// and gs:// URLs go through the blob
	// filesystem, everything else through the plain URL mux.
	URL string `yaml:"url" json:"url"`
	// Compress marks the payload as an archive; "zip" extracts the first
	// archive entry as the fixture file.
	Compress string `yaml:"compress,omitempty" json:"compress,omitempty"`
	// S3 holds object-storage options (region, endpoint, profile, ...)
	// applied to the URL when opening the blob filesystem.
	S3 map[string]string `yaml:"s3,omitempty" json:"s3,omitempty"`
	// PlanetaryComputer routes the fetch through the SAS signing service
	// before downloading.
	PlanetaryComputer bool `yaml:"planetary_computer,omitempty" json:"planetary_computer,omitempty"`
}

// Signer exchanges an href for a URL with temporary read access.
type Signer interface {
	Sign(ctx context.Context, href string) (string, error)
}

// Manager resolves local test-data paths and fetches external fixtures.
type Manager struct {
	root     string
	external map[string]ExternalEntry
	mux      fsimpl.FSMux
	signer   Signer
}

// Option configures a Manager.
type Option func(*Manager)

// WithSigner replaces the default signing client.
func WithSigner(s Signer) Option {
	return func(m *Manager) { m.signer = s }
}

// WithMux replaces the default URL filesystem mux.
func WithMux(mux fsimpl.FSMux) Option {
	return func(m *Manager) { m.mux = mux }
}

// New creates a Manager rooted at the test-data directory root. external maps
// fixture keys to their remote sources; a nil map is valid for trees with no
// external fixtures.
func New(root string, external map[string]ExternalEntry, opts ...Option) *Manager {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	m := &Manager{
		root:     root,
		external: external,
		mux:      remotefs.NewMux(),
		signer:   signing.New(""),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the absolute path of a file in the test-data tree.
func (m *Manager) Path(rel string) string {
	return filepath.Join(m.root, rel)
}

// Keys returns the registered external fixture keys, sorted.
func (m *Manager) Keys() []string {
	keys := make([]string, 0, len(m.external))
	for k := range m.external {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ExternalPath returns the local path of an external fixture, downloading it
// first when it is not already present under data-files/external.
func (m *Manager) ExternalPath(ctx context.Context, key string) (string, error) {
	path, err := safeio.ContainedPath(m.Path(ExternalSubdir), key)
	if err != nil {
		return "", fmt.Errorf("invalid external data key %q: %w", key, err)
	}

	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	entry, ok := m.external[key]
	if !ok {
		return "", fmt.Errorf("path %s does not exist and there is no entry for external test data %s", path, key)
	}

	logger.Info("downloading external test data", logger.String("key", key))

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("failed to create fixture directory: %w", err)
	}

	data, err := m.fetch(ctx, entry)
	if err != nil {
		return "", fmt.Errorf("failed to fetch external test data %s: %w", key, err)
	}

	if entry.Compress == "zip" {
		if err := extractFirstZipEntry(data, path); err != nil {
			return "", fmt.Errorf("failed to extract external test data %s: %w", key, err)
		}
	} else {
		if err := safeio.WriteFileAtomic(path, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write external test data %s: %w", key, err)
		}
	}

	logger.Debug("external test data ready", logger.String("path", path))
	return path, nil
}

// Prefetch downloads every registered external fixture that is not already
// present locally.
func (m *Manager) Prefetch(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchConcurrency)

	for _, key := range m.Keys() {
		g.Go(func() error {
			_, err := m.ExternalPath(ctx, key)
			return err
		})
	}
	return g.Wait()
}

// List returns test-data paths matching a doublestar pattern, relative to the
// root and sorted.
func (m *Manager) List(pattern string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(m.root), pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

func (m *Manager) fetch(ctx context.Context, entry ExternalEntry) ([]byte, error) {
	switch {
	case len(entry.S3) > 0:
		href, err := hrefWithOptions(entry.URL, entry.S3)
		if err != nil {
			return nil, err
		}
		return remotefs.ReadAllFS(ctx, m.mux, href)
	case entry.PlanetaryComputer:
		signed, err := m.signer.Sign(ctx, entry.URL)
		if err != nil {
			return nil, err
		}
		return remotefs.ReadAllFS(ctx, m.mux, signed)
	default:
		return remotefs.ReadAllFS(ctx, m.mux, entry.URL)
	}
}

// hrefWithOptions appends storage options to the URL as query parameters, the
// form the blob filesystem expects them in.
func hrefWithOptions(raw string, options map[string]string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	q := u.Query()
	for k, v := range options {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// extractFirstZipEntry writes the first file in the archive to dest.
func extractFirstZipEntry(data []byte, dest string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
		}
		payload, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return fmt.Errorf("failed to read archive entry %s: %w", f.Name, err)
		}
		return safeio.WriteFileAtomic(dest, payload, 0o644)
	}
	return fmt.Errorf("archive contains no files")
}
