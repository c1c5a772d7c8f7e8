package dispatch

import (
	"os"
	"path/filepath"
	"testing"

	herr "github.com/Az107/HTeaPot/pkg/errors"
	"github.com/Az107/HTeaPot/pkg/fileserver"
	"github.com/Az107/HTeaPot/pkg/wire"
)

func TestDispatchCallbackStaticResponse(t *testing.T) {
	called := false
	d := New(nil, nil, func(req *wire.Request) (*wire.Response, *StreamedResponse, error) {
		called = true
		resp := wire.NewResponse(wire.StatusTeapot, []byte("short and stout"), wire.NewHeader())
		return &resp, nil, nil
	})

	out, err := d.Dispatch(&wire.Request{Path: "/brew"}, true)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !called {
		t.Fatal("expected callback to be invoked")
	}
	if out.Static == nil || out.Static.Status != wire.StatusTeapot {
		t.Errorf("Static = %+v, want 418", out.Static)
	}
}

func TestDispatchCallbackStreamed(t *testing.T) {
	d := New(nil, nil, func(req *wire.Request) (*wire.Response, *StreamedResponse, error) {
		return nil, &StreamedResponse{Status: wire.StatusOK}, nil
	})
	out, err := d.Dispatch(&wire.Request{Path: "/x"}, true)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if out.Streamed == nil {
		t.Fatal("expected a streamed outcome")
	}
}

func TestDispatchNoRouteIsNotFound(t *testing.T) {
	d := New(nil, nil, nil)
	_, err := d.Dispatch(&wire.Request{Path: "/x"}, true)
	if herr.GetErrorType(err) != herr.ErrorTypeNotFound {
		t.Errorf("error type = %v, want not_found", herr.GetErrorType(err))
	}
}

func TestDispatchFileRouteReturnsFramedBytes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	fs := fileserver.New(dir, "", nil)
	d := New(nil, fs, nil)

	out, err := d.Dispatch(&wire.Request{Path: "/index.html"}, true)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(out.Framed) == 0 {
		t.Fatal("expected framed bytes from the file route")
	}
}

func TestDispatchFileRouteMissReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	fs := fileserver.New(dir, "", nil)
	d := New(nil, fs, nil)

	_, err := d.Dispatch(&wire.Request{Path: "/nope.html"}, true)
	if herr.GetErrorType(err) != herr.ErrorTypeNotFound {
		t.Errorf("error type = %v, want not_found", herr.GetErrorType(err))
	}
}
