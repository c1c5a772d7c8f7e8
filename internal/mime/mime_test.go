package mime

import "testing"

func TestTypeByExtensionKnown(t *testing.T) {
	cases := map[string]string{
		"index.html": "text/html; charset=utf-8",
		"app.js":     "text/javascript; charset=utf-8",
		"data.json":  "application/json; charset=utf-8",
		"photo.png":  "image/png",
		"icon.svg":   "image/svg+xml",
	}
	for path, want := range cases {
		if got := TypeByExtension(path); got != want {
			t.Errorf("TypeByExtension(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestTypeByExtensionUnknown(t *testing.T) {
	if got := TypeByExtension("file.unknownext"); got != DefaultType {
		t.Errorf("got %q, want %q", got, DefaultType)
	}
	if got := TypeByExtension("noext"); got != DefaultType {
		t.Errorf("got %q, want %q", got, DefaultType)
	}
}
