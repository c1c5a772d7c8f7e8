// Package engine implements the fixed-size worker pool described in
// spec.md §4.4: one accept loop on a net.Listener hands each connection
// to its own goroutine, at most Workers at a time, and that goroutine runs
// the connection to completion — read request, dispatch, write response,
// repeat while keep-alive holds.
//
// Go's scheduler multiplexes goroutines onto OS threads the same way the
// teacher's connection pool multiplexes requests onto a fixed worker
// count, so a goroutine-per-accept loop bounded by a semaphore is the
// idiomatic equivalent of spec.md's OS-thread pool.
package engine

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Az107/HTeaPot/pkg/constants"
	"github.com/Az107/HTeaPot/pkg/dispatch"
	herr "github.com/Az107/HTeaPot/pkg/errors"
	"github.com/Az107/HTeaPot/pkg/stream"
	"github.com/Az107/HTeaPot/pkg/wire"
)

// AccessLogger receives one call per completed request-response cycle.
// duration is the time spent parsing, dispatching, and writing. An engine
// without a logger configured simply does not log.
type AccessLogger func(remoteAddr, method, path string, status int, duration time.Duration)

// ErrorLogger receives one call per connection-ending failure (anything
// that isn't a clean EOF/keep-alive-false close).
type ErrorLogger func(remoteAddr string, err error)

// Pool is a fixed-size worker pool bound to a single listener.
type Pool struct {
	Workers    int
	MaxHead    int
	MaxBody    int64
	IdleTimeout time.Duration

	Dispatcher *dispatch.Dispatcher

	OnAccess AccessLogger
	OnError  ErrorLogger

	activeConns int64 // atomic, exported via ActiveConnections for diagnostics/tests
}

// New returns a Pool with workers (falling back to
// constants.DefaultWorkerCount when <= 0) ready to Run against a
// listener.
func New(workers int, d *dispatch.Dispatcher) *Pool {
	if workers <= 0 {
		workers = constants.DefaultWorkerCount
	}
	return &Pool{
		Workers:     workers,
		MaxHead:     wire.DefaultMaxHeadBytes,
		MaxBody:     constants.DefaultMaxBodyBytes,
		IdleTimeout: constants.DefaultIdleTimeout,
		Dispatcher:  d,
	}
}

// Run accepts connections on ln until ctx is cancelled or Accept fails
// permanently. Up to p.Workers connections are served concurrently; an
// accepted connection beyond that count queues on the semaphore exactly
// as an idle worker would queue on accept in the teacher's thread-pool
// model. Run blocks until every in-flight connection has finished.
func (p *Pool) Run(ctx context.Context, ln net.Listener) error {
	sem := make(chan struct{}, p.Workers)
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		sem <- struct{}{}
		wg.Add(1)
		atomic.AddInt64(&p.activeConns, 1)
		go func() {
			defer func() {
				<-sem
				wg.Done()
				atomic.AddInt64(&p.activeConns, -1)
			}()
			p.serveConn(conn)
		}()
	}
}

// ActiveConnections reports the number of connections currently being
// served, for diagnostics and tests.
func (p *Pool) ActiveConnections() int64 {
	return atomic.LoadInt64(&p.activeConns)
}

// serveConn runs the per-connection read/dispatch/write loop of spec.md
// §4.4 to completion, honoring keep-alive and the idle timeout.
func (p *Pool) serveConn(conn net.Conn) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	keepAlive := true

	for keepAlive {
		if p.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(p.IdleTimeout))
		}

		start := time.Now()
		req, err := wire.ParseRequest(r, p.MaxHead, p.MaxBody)
		if err != nil {
			if isCleanClose(err) {
				return
			}
			p.writeError(w, err, false)
			p.logError(remote, err)
			return
		}
		req.RemoteAddr = remote

		conn.SetReadDeadline(time.Time{})

		keepAlive = requestWantsKeepAlive(req)
		status, writeErr := p.handle(w, req, keepAlive)
		if writeErr != nil {
			p.logError(remote, writeErr)
			return
		}
		if p.OnAccess != nil {
			p.OnAccess(remote, req.RawMethod, req.Path, status, time.Since(start))
		}
		if !keepAlive {
			return
		}
	}
}

// handle dispatches req and writes exactly one framed response (static,
// streamed, or error) to w, returning the status code written and any
// connection-ending write error.
func (p *Pool) handle(w *bufio.Writer, req *wire.Request, keepAlive bool) (int, error) {
	outcome, err := p.Dispatcher.Dispatch(req, keepAlive)
	if err != nil {
		return p.writeError(w, err, keepAlive)
	}

	switch {
	case outcome.Framed != nil:
		if _, err := w.Write(outcome.Framed); err != nil {
			return 0, herr.NewIOError("write_framed", err)
		}
		return int(wire.StatusOK), w.Flush()

	case outcome.Static != nil:
		if err := wire.WriteStatic(w, *outcome.Static, keepAlive); err != nil {
			return 0, herr.NewIOError("write_static", err)
		}
		return int(outcome.Static.Status), nil

	case outcome.Streamed != nil:
		return p.writeStreamed(w, outcome.Streamed, keepAlive)

	default:
		return p.writeError(w, herr.NewHandlerPanicError(nil), keepAlive)
	}
}

// writeStreamed runs the handler's producer on its own goroutine while
// the worker drains the channel and writes chunks, per spec.md §4.3/§4.4.
// A client write failure closes the consumer side, which the producer
// observes as stream.ErrClosed on its next Send and must treat as
// cancellation.
func (p *Pool) writeStreamed(w *bufio.Writer, sr *dispatch.StreamedResponse, keepAlive bool) (int, error) {
	ch := stream.NewChannel(stream.DefaultCapacity)

	go func() {
		defer ch.CloseProducer()
		if sr.Stream != nil {
			sr.Stream(stream.NewSender(ch))
		}
	}()

	header := sr.Header
	if header == nil {
		header = wire.NewHeader()
	}
	cw, err := wire.NewChunkWriter(w, sr.Status, header, keepAlive)
	if err != nil {
		ch.CloseConsumer()
		return 0, herr.NewIOError("write_stream_head", err)
	}

	for {
		chunk, ok, done := ch.RecvWithTimeout(p.IdleTimeout)
		if ok {
			if err := cw.WriteChunk(chunk); err != nil {
				ch.CloseConsumer()
				return 0, herr.NewIOError("write_stream_chunk", err)
			}
			continue
		}
		if done {
			break
		}
	}

	if err := cw.Close(); err != nil {
		return 0, herr.NewIOError("close_stream", err)
	}
	return int(sr.Status), nil
}

// writeError synthesizes and writes a response for a dispatch/parse
// failure. A zero Status() (ErrorTypeIO) means no response can be
// written at all — the connection is simply dropped.
func (p *Pool) writeError(w *bufio.Writer, err error, keepAlive bool) (int, error) {
	status := herr.StatusFor(err)
	if herr.GetErrorType(err) == herr.ErrorTypeIO {
		return 0, err
	}
	resp := wire.NewResponse(wire.StatusCode(status), []byte(err.Error()), wire.NewHeader())
	if writeErr := wire.WriteStatic(w, resp, keepAlive); writeErr != nil {
		return 0, herr.NewIOError("write_error_response", writeErr)
	}
	return status, nil
}

func (p *Pool) logError(remote string, err error) {
	if p.OnError != nil {
		p.OnError(remote, err)
	}
}

// requestWantsKeepAlive applies HTTP/1.1's default-open keep-alive rule,
// downgraded by an explicit Connection: close header.
func requestWantsKeepAlive(req *wire.Request) bool {
	return !strings.EqualFold(req.Header.Get("Connection"), "close")
}

// isCleanClose reports whether err represents the client simply closing
// or timing out an idle connection between requests, as opposed to a
// genuinely malformed request head worth a 400 response.
func isCleanClose(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return true
	}
	var herrErr *herr.Error
	if errors.As(err, &herrErr) {
		return errors.Is(herrErr.Unwrap(), io.EOF)
	}
	return false
}
