package fileserver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Az107/HTeaPot/pkg/cache"
	herr "github.com/Az107/HTeaPot/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestServeIndexFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.html"), "hello")

	fs := New(root, "", nil)
	framed, err := fs.Serve("/", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := string(framed)
	if !strings.Contains(out, "200 OK") {
		t.Fatalf("expected 200 OK, got %q", out)
	}
	if !strings.Contains(out, "Content-Type: text/html; charset=utf-8") {
		t.Fatalf("expected html content type, got %q", out)
	}
	if !strings.Contains(out, "Content-Length: 5") {
		t.Fatalf("expected content-length 5, got %q", out)
	}
	if !strings.HasSuffix(out, "hello") {
		t.Fatalf("expected body hello, got %q", out)
	}
}

func TestServeEscapeIsForbidden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.html"), "hello")

	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "passwd"), "secret")

	fs := New(root, "", nil)
	_, err := fs.Serve("/../"+filepath.Base(outside)+"/passwd", true)
	if herr.GetErrorType(err) != herr.ErrorTypeForbidden {
		t.Fatalf("expected Forbidden for path escaping root, got %v", err)
	}
}

func TestServeMissingFileIsNotFound(t *testing.T) {
	root := t.TempDir()
	fs := New(root, "", nil)

	_, err := fs.Serve("/nope.html", true)
	if herr.GetErrorType(err) != herr.ErrorTypeNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestServeSymlinkEscapeIsForbidden(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.txt"), "top secret")

	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlink not supported in this environment: %v", err)
	}

	fs := New(root, "", nil)
	_, err := fs.Serve("/link.txt", true)
	if herr.GetErrorType(err) != herr.ErrorTypeForbidden {
		t.Fatalf("expected Forbidden for symlink escaping root, got %v", err)
	}
}

func TestServeUsesCacheOnSecondRequest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "v1")

	c := cache.New(0, true)
	fs := New(root, "", c)

	if _, err := fs.Serve("/a.txt", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected one cache entry after first serve, got %d", c.Len())
	}

	// Mutate the file on disk; a cache hit must still return the old bytes.
	writeFile(t, filepath.Join(root, "a.txt"), "v2-should-not-be-seen")

	framed, err := fs.Serve("/a.txt", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(string(framed), "v1") {
		t.Fatalf("expected cached bytes v1, got %q", framed)
	}
}

func TestServeTwoDistinctPipelinedPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.html"), "A")
	writeFile(t, filepath.Join(root, "b.html"), "B")

	fs := New(root, "", cache.New(0, true))

	fa, err := fs.Serve("/a.html", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fb, err := fs.Serve("/b.html", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(string(fa), "A") || !strings.HasSuffix(string(fb), "B") {
		t.Fatalf("expected distinct cached files, got %q and %q", fa, fb)
	}
}
