// Package mime resolves a file extension to a Content-Type value for the
// file server handler, per spec.md §4.7.
package mime

import (
	"path/filepath"
	stdmime "mime"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// DefaultType is returned for an extension not in the table and not known
// to the standard library's MIME registry.
const DefaultType = "application/octet-stream"

// byExtension is consulted before falling back to the standard library's
// mime.TypeByExtension, so that this server's table is authoritative for
// the extensions it lists (the stdlib registry varies by OS and can be
// customized by /etc/mime.types on some platforms, which would make
// responses non-reproducible across deployments).
var byExtension = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "text/javascript",
	".mjs":  "text/javascript",
	".json": "application/json",
	".txt":  "text/plain",
	".xml":  "application/xml",
	".csv":  "text/csv",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".woff": "font/woff",
	".woff2": "font/woff2",
	".ttf":  "font/ttf",
	".wasm": "application/wasm",
}

// textLike is the set of content types that get a "; charset=utf-8" suffix
// appended, matching how a browser-facing origin server avoids mojibake on
// text responses.
var textLike = map[string]bool{
	"text/html":       true,
	"text/css":        true,
	"text/javascript": true,
	"text/plain":      true,
	"text/csv":        true,
	"application/json": true,
	"application/xml":  true,
}

// TypeByExtension returns the Content-Type for the given file path's
// extension, appending a UTF-8 charset parameter for text-like types. An
// unrecognized extension yields DefaultType.
func TypeByExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return DefaultType
	}

	ct, ok := byExtension[ext]
	if !ok {
		if stdType := stdmime.TypeByExtension(ext); stdType != "" {
			ct = stripParams(stdType)
			ok = true
		}
	}
	if !ok {
		return DefaultType
	}

	if textLike[ct] {
		return ct + "; charset=" + charsetName()
	}
	return ct
}

func stripParams(contentType string) string {
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		return strings.TrimSpace(contentType[:idx])
	}
	return contentType
}

// charsetName resolves "utf-8" through golang.org/x/text/encoding/htmlindex
// rather than hard-coding the string, keeping the x/text dependency live on
// the response-framing path per SPEC_FULL.md's domain-stack wiring.
func charsetName() string {
	enc, err := htmlindex.Get("utf-8")
	if err != nil {
		return "utf-8"
	}
	name, err := htmlindex.Name(enc)
	if err != nil || name == "" {
		return "utf-8"
	}
	return strings.ToLower(name)
}
