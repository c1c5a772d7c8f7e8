// Package fileserver implements the sandboxed, cache-backed static file
// handler described in spec.md §4.7.
package fileserver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Az107/HTeaPot/internal/mime"
	"github.com/Az107/HTeaPot/pkg/cache"
	herr "github.com/Az107/HTeaPot/pkg/errors"
	"github.com/Az107/HTeaPot/pkg/wire"
)

// DefaultIndex is the file name appended when a request path resolves to a
// directory.
const DefaultIndex = "index.html"

// FileServer maps request paths to files under Root, serving cached wire
// bytes when Cache is enabled.
type FileServer struct {
	Root  string
	Index string
	Cache *cache.Cache
}

// New returns a FileServer rooted at root. index defaults to
// DefaultIndex when empty. c may be nil, in which case caching is
// skipped entirely.
func New(root, index string, c *cache.Cache) *FileServer {
	if index == "" {
		index = DefaultIndex
	}
	return &FileServer{Root: root, Index: index, Cache: c}
}

// Serve resolves reqPath under the server's root and returns fully framed
// response bytes ready to write to a connection (keepAlive selects the
// Connection header value baked into that framing when the file is read;
// a cache hit returns the cached bytes unchanged, with the Connection
// value of the request that filled the cache). A resolution failure
// is returned as a *errors.Error whose Status() names the response code
// to synthesize instead (403/404) — the caller still owns writing that
// response, since this package has no connection to write to.
func (fs *FileServer) Serve(reqPath string, keepAlive bool) ([]byte, error) {
	cleanPath := cleanRequestPath(reqPath)

	if fs.Cache != nil && fs.Cache.Enabled() {
		if data, ok := fs.Cache.Get(cleanPath); ok {
			return data, nil
		}
	}

	resolved, err := fs.resolve(cleanPath)
	if err != nil {
		return nil, err
	}

	body, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, herr.NewNotFoundError(cleanPath)
		}
		return nil, herr.NewIOError("read_file", err)
	}

	header := wire.NewHeader()
	header.Set("Content-Type", mime.TypeByExtension(resolved))
	resp := wire.NewResponse(wire.StatusOK, body, header)

	framed, err := wire.Frame(resp, keepAlive)
	if err != nil {
		return nil, herr.NewIOError("frame_response", err)
	}

	if fs.Cache != nil && fs.Cache.Enabled() {
		fs.Cache.Put(cleanPath, framed)
	}
	return framed, nil
}

// resolve maps cleanPath to an absolute file under fs.Root, rejecting any
// resolution that escapes the root (via "..", a symlink, or otherwise),
// per spec.md §4.7's sandboxing requirement, and appending fs.Index when
// the target is a directory.
func (fs *FileServer) resolve(cleanPath string) (string, error) {
	root, err := filepath.Abs(fs.Root)
	if err != nil {
		return "", herr.NewIOError("resolve_root", err)
	}
	root, err = filepath.EvalSymlinks(root)
	if err != nil {
		return "", herr.NewIOError("resolve_root", err)
	}

	candidate := filepath.Join(root, cleanPath)
	if !isDescendant(root, candidate) {
		return "", herr.NewForbiddenError(cleanPath)
	}

	resolved := candidate
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		resolved = filepath.Join(candidate, fs.Index)
	}

	// Resolve symlinks on the final candidate too, then re-check
	// containment — a symlink inside the root can still point outside it.
	if real, err := filepath.EvalSymlinks(resolved); err == nil {
		if !isDescendant(root, real) {
			return "", herr.NewForbiddenError(cleanPath)
		}
		resolved = real
	} else if os.IsNotExist(err) {
		return "", herr.NewNotFoundError(cleanPath)
	}

	return resolved, nil
}

// cleanRequestPath strips a leading "/" (filepath.Join doesn't need it)
// and runs filepath.Clean, which collapses ".." segments inside the path
// but keeps a leading ".." that climbs above the root, so the descendant
// check in resolve rejects such a path as Forbidden.
func cleanRequestPath(reqPath string) string {
	trimmed := strings.TrimPrefix(reqPath, "/")
	return filepath.Clean(trimmed)
}

// isDescendant reports whether candidate is root or a path under root.
func isDescendant(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && rel != "..")
}
