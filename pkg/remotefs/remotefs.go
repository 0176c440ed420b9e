// Package remotefs resolves hrefs to URL-addressed filesystems and exposes
// the small set of read operations the rest of the tool needs. Local paths,
// file://, http(s):// and blob URLs (s3://, gs://) are all handled through a
// single mux so callers never branch on scheme.
package remotefs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/hairyhenderson/go-fsimpl"
	"github.com/hairyhenderson/go-fsimpl/blobfs"
	"github.com/hairyhenderson/go-fsimpl/filefs"
	"github.com/hairyhenderson/go-fsimpl/httpfs"
)

// NewMux returns a filesystem mux covering the schemes this tool reads from.
func NewMux() fsimpl.FSMux {
	mux := fsimpl.NewMux()
	mux.Add(filefs.FS)
	mux.Add(httpfs.FS)
	mux.Add(blobfs.FS)
	return mux
}

var defaultMux = NewMux()

// SplitHref splits an href into a base URL naming the containing directory
// (trailing slash, query preserved) and the final path element. Hrefs without
// a scheme are treated as local paths and converted to file:// URLs.
func SplitHref(href string) (base, name string, err error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", "", fmt.Errorf("invalid href %q: %w", href, err)
	}

	if u.Scheme == "" {
		abs, err := filepath.Abs(href)
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve %q: %w", href, err)
		}
		dir, file := filepath.Split(abs)
		return "file://" + filepath.ToSlash(dir), file, nil
	}

	name = path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", "", fmt.Errorf("href %q does not name a file", href)
	}

	u.Path = strings.TrimSuffix(u.Path, name)
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String(), name, nil
}

// Exists reports whether href resolves to an existing file. A stat that fails
// with fs.ErrNotExist reports false with no error; other failures (bad
// scheme, unreachable endpoint) are returned to the caller.
func Exists(ctx context.Context, href string) (bool, error) {
	return ExistsFS(ctx, defaultMux, href)
}

// ExistsFS is Exists against a caller-supplied mux.
func ExistsFS(ctx context.Context, mux fsimpl.FSMux, href string) (bool, error) {
	base, name, err := SplitHref(href)
	if err != nil {
		return false, err
	}

	fsys, err := mux.Lookup(base)
	if err != nil {
		return false, fmt.Errorf("no filesystem for %q: %w", href, err)
	}
	fsys = fsimpl.WithContextFS(ctx, fsys)

	if _, err := fs.Stat(fsys, name); err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %q: %w", href, err)
	}
	return true, nil
}

// isNotExist reports whether a stat failure means plain absence. The http
// filesystem carries the response status in its stat error instead of
// wrapping fs.ErrNotExist, so a 404 has to be recognized from the status.
func isNotExist(err error) bool {
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "status 404") || strings.Contains(msg, "not found")
}

// ReadAll fetches the full contents of href.
func ReadAll(ctx context.Context, href string) ([]byte, error) {
	return ReadAllFS(ctx, defaultMux, href)
}

// ReadAllFS is ReadAll against a caller-supplied mux.
func ReadAllFS(ctx context.Context, mux fsimpl.FSMux, href string) ([]byte, error) {
	base, name, err := SplitHref(href)
	if err != nil {
		return nil, err
	}

	fsys, err := mux.Lookup(base)
	if err != nil {
		return nil, fmt.Errorf("no filesystem for %q: %w", href, err)
	}
	fsys = fsimpl.WithContextFS(ctx, fsys)

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", href, err)
	}
	return data, nil
}
