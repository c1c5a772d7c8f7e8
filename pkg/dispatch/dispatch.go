// Package dispatch resolves a parsed request to exactly one of a proxy
// hit, a file-server hit, or a user callback, and normalizes whichever
// one fires into the wire codec's write contract, per spec.md §4.5.
package dispatch

import (
	"fmt"

	herr "github.com/Az107/HTeaPot/pkg/errors"
	"github.com/Az107/HTeaPot/pkg/fileserver"
	"github.com/Az107/HTeaPot/pkg/proxy"
	"github.com/Az107/HTeaPot/pkg/stream"
	"github.com/Az107/HTeaPot/pkg/wire"
)

// StreamFunc is invoked with a Sender on its own goroutine while the
// engine writes the streamed response's head; it produces chunks until it
// returns, at which point the engine closes the producer end of the stream.
type StreamFunc func(sender stream.Sender)

// StreamedResponse is the open-ended shape a Handler may return instead
// of a static wire.Response, per spec.md §3/§4.3.
type StreamedResponse struct {
	Status wire.StatusCode
	Header wire.Header
	Stream StreamFunc
}

// Handler is the user callback a library caller supplies to Listen. It
// returns exactly one of a static *wire.Response or a *StreamedResponse.
type Handler func(req *wire.Request) (static *wire.Response, streamed *StreamedResponse, err error)

// Outcome is what Dispatch produces: exactly one of Static, Streamed, or
// Framed is set, unless err is non-nil. Framed carries response bytes
// already serialized by the caller (the file server frames and caches its
// own output) and must be written to the connection as-is.
type Outcome struct {
	Static   *wire.Response
	Streamed *StreamedResponse
	Framed   []byte
}

// Dispatcher holds the immutable, shared-read-only routing configuration
// assembled at startup: the proxy rule table, the file server, and the
// user callback. Any of the three may be nil, disabling that path.
type Dispatcher struct {
	Forwarder *proxy.Forwarder
	Files     *fileserver.FileServer
	Callback  Handler
}

// New builds a Dispatcher. Each of forwarder/files/callback may be nil.
func New(forwarder *proxy.Forwarder, files *fileserver.FileServer, callback Handler) *Dispatcher {
	return &Dispatcher{Forwarder: forwarder, Files: files, Callback: callback}
}

// Dispatch resolves req to exactly one outcome, per spec.md §4.5's
// ordered evaluation: proxy match, then file route, then user callback.
// A panic raised while resolving req is recovered and returned as a
// HandlerPanic error.
func (d *Dispatcher) Dispatch(req *wire.Request, keepAlive bool) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = Outcome{}, herr.NewHandlerPanicError(fmt.Errorf("panic: %v", r))
		}
	}()

	if d.Forwarder != nil {
		if rule, remainder, ok := d.Forwarder.Match(req.Path); ok {
			resp, err := d.Forwarder.Forward(req, rule, remainder)
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{Static: resp}, nil
		}
	}

	if d.Files != nil {
		framed, err := d.Files.Serve(req.Path, keepAlive)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Framed: framed}, nil
	}

	if d.Callback != nil {
		static, streamed, err := d.Callback(req)
		if err != nil {
			return Outcome{}, herr.NewHandlerPanicError(err)
		}
		switch {
		case static != nil:
			return Outcome{Static: static}, nil
		case streamed != nil:
			return Outcome{Streamed: streamed}, nil
		default:
			return Outcome{}, herr.NewHandlerPanicError(nil)
		}
	}

	return Outcome{}, herr.NewNotFoundError(req.Path)
}
