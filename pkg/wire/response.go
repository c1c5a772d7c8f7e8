package wire

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// ServerIdent is the fixed value the codec stamps into every response's
// Server header, per spec.md §4.5.
const ServerIdent = "HTeaPot"

// Response is a fully buffered response: status, headers, and a body
// already resident in memory. It is the "static" response shape of
// spec.md §3 — use stream.Channel-backed streaming for open-ended bodies.
type Response struct {
	Status StatusCode
	Header Header
	Body   []byte
}

// NewResponse builds a static Response, initializing Header from the
// supplied map (nil is treated as empty).
func NewResponse(status StatusCode, body []byte, header Header) Response {
	if header == nil {
		header = NewHeader()
	}
	return Response{Status: status, Header: header, Body: body}
}

// WriteHead serializes the status line and headers (but not the body) to
// w, applying the injected headers spec.md §3 describes: Content-Length
// (for static responses), Content-Type (if absent and body non-empty),
// Connection, and Server. Handler-supplied values always win. chunked
// selects chunked framing (Transfer-Encoding: chunked, no Content-Length)
// for streamed responses.
func WriteHead(w *bufio.Writer, status StatusCode, header Header, bodyLen int, chunked bool, keepAlive bool) error {
	if _, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", status, status.Reason()); err != nil {
		return err
	}

	out := header.Clone()
	if chunked {
		out.Del("Content-Length")
		out.Set("Transfer-Encoding", "chunked")
	} else if !out.Has("Content-Length") {
		out.Set("Content-Length", strconv.Itoa(bodyLen))
	}
	if bodyLen > 0 && !out.Has("Content-Type") {
		out.Set("Content-Type", "application/octet-stream")
	}
	if !out.Has("Connection") {
		if keepAlive {
			out.Set("Connection", "keep-alive")
		} else {
			out.Set("Connection", "close")
		}
	}
	if !out.Has("Server") {
		out.Set("Server", ServerIdent)
	}

	for key, value := range out {
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", canonicalDisplay(key), value); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// WriteStatic writes a complete framed static response: head, then body in
// one shot.
func WriteStatic(w *bufio.Writer, resp Response, keepAlive bool) error {
	if err := WriteHead(w, resp.Status, resp.Header, len(resp.Body), false, keepAlive); err != nil {
		return err
	}
	if len(resp.Body) > 0 {
		if _, err := w.Write(resp.Body); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Frame returns resp serialized exactly as it would be written to the
// wire. This is what pkg/cache stores, so that a cache hit can be written
// to a connection without going back through the codec.
func Frame(resp Response, keepAlive bool) ([]byte, error) {
	var buf writeBuffer
	bw := bufio.NewWriter(&buf)
	if err := WriteStatic(bw, resp, keepAlive); err != nil {
		return nil, err
	}
	return buf.b, nil
}

// writeBuffer is a minimal io.Writer sink, avoiding a bytes.Buffer import
// purely for Frame's one-shot use.
type writeBuffer struct{ b []byte }

func (w *writeBuffer) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

// ChunkWriter frames a streamed response body as chunked transfer
// encoding, one wire chunk per WriteChunk call, per spec.md §4.1/§4.3's
// chunk-boundary-preservation guarantee.
type ChunkWriter struct {
	w *bufio.Writer
}

// NewChunkWriter writes the response head (chunked framing) and returns a
// ChunkWriter ready to stream chunks.
func NewChunkWriter(w *bufio.Writer, status StatusCode, header Header, keepAlive bool) (*ChunkWriter, error) {
	if err := WriteHead(w, status, header, 0, true, keepAlive); err != nil {
		return nil, err
	}
	return &ChunkWriter{w: w}, nil
}

// WriteChunk writes one chunk. An empty slice writes nothing, since a
// zero-length chunk would end the body on the wire — call Close for that.
func (c *ChunkWriter) WriteChunk(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := writeChunk(c.w, data); err != nil {
		return err
	}
	return c.w.Flush()
}

// Close writes the terminating zero-length chunk and flushes.
func (c *ChunkWriter) Close() error {
	if err := writeChunkTerminator(c.w); err != nil {
		return err
	}
	return c.w.Flush()
}
