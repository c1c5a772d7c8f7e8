// Package wire implements the HTTP/1.1 request parser, response
// serializer, and chunked-encoding codec described in spec.md §4.1.
package wire

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	herr "github.com/Az107/HTeaPot/pkg/errors"
)

// DefaultMaxHeadBytes is the default cap on a request head (request line +
// headers) before the codec gives up with a 400, per spec.md §4.1.
const DefaultMaxHeadBytes = 8 * 1024

// Request is a fully parsed HTTP/1.1 request.
type Request struct {
	Method     Method
	RawMethod  string // the literal token, preserved even for MethodUnknown
	Path       string // target path exactly as received (not percent-decoded), without the query
	Query      Query
	Version    string
	Header     Header
	Body       []byte
	RemoteAddr string
}

// ParseRequest reads one request head (and, if present, its body) from r.
// maxHead bounds the request line + headers; maxBody bounds a framed or
// chunked body. Both limits surface as *errors.Error so callers can map
// them straight to a status code.
func ParseRequest(r *bufio.Reader, maxHead int, maxBody int64) (*Request, error) {
	if maxHead <= 0 {
		maxHead = DefaultMaxHeadBytes
	}

	headLen := 0
	countingRead := func() (string, error) {
		line, err := r.ReadString('\n')
		headLen += len(line)
		if headLen > maxHead {
			return "", herr.NewMalformedRequestError("read_head", io.ErrShortBuffer)
		}
		if err != nil {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	requestLine, err := countingRead()
	if err != nil {
		return nil, herr.NewMalformedRequestError("read_request_line", err)
	}

	method, rawMethod, target, version, err := parseRequestLine(requestLine)
	if err != nil {
		return nil, err
	}

	header, err := parseHeaders(countingRead)
	if err != nil {
		return nil, err
	}

	path, rawQuery := splitTarget(target)

	req := &Request{
		Method:    method,
		RawMethod: rawMethod,
		Path:      path,
		Query:     parseQuery(rawQuery),
		Version:   version,
		Header:    header,
	}

	body, err := readRequestBody(r, req, maxBody)
	if err != nil {
		return nil, err
	}
	req.Body = body

	return req, nil
}

// parseRequestLine splits "METHOD target HTTP/1.1" on single spaces.
// Malformed lines yield a MalformedRequest error, per spec.md §4.1.
func parseRequestLine(line string) (method Method, rawMethod, target, version string, err error) {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return 0, "", "", "", herr.NewMalformedRequestError("parse_request_line", nil)
	}
	rawMethod = parts[0]
	if rawMethod == "" || parts[1] == "" || parts[2] == "" {
		return 0, "", "", "", herr.NewMalformedRequestError("parse_request_line", nil)
	}
	return ParseMethod(rawMethod), rawMethod, parts[1], parts[2], nil
}

// parseHeaders folds header lines case-insensitively on the name, trimming
// whitespace around the colon and at line end. Obsolete line folding
// (leading-whitespace continuation) is not supported, per spec.md §4.1 —
// a continuation line is parsed like any other header line, so one without
// a colon fails the whole request as malformed, matching a minimal origin
// server rather than a full RFC 7230 client.
func parseHeaders(readLine func() (string, error)) (Header, error) {
	header := NewHeader()
	for {
		line, err := readLine()
		if err != nil {
			return nil, herr.NewMalformedRequestError("read_headers", err)
		}
		if line == "" {
			break
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			return nil, herr.NewMalformedRequestError("parse_header_line", nil)
		}
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if name == "" {
			return nil, herr.NewMalformedRequestError("parse_header_line", nil)
		}
		header.Set(name, value)
	}
	return header, nil
}

// readRequestBody determines body framing from Content-Length or
// Transfer-Encoding: chunked. Absent either, the body is empty regardless
// of method, per spec.md §4.1.
func readRequestBody(r *bufio.Reader, req *Request, maxBody int64) ([]byte, error) {
	if strings.EqualFold(req.Header.Get("Transfer-Encoding"), "chunked") {
		return readChunkedBody(r, maxBody)
	}

	cl := req.Header.Get("Content-Length")
	if cl == "" {
		return nil, nil
	}

	length, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
	if err != nil || length < 0 {
		return nil, herr.NewMalformedRequestError("parse_content_length", err)
	}
	if length == 0 {
		return nil, nil
	}
	if maxBody > 0 && length > maxBody {
		return nil, herr.NewPayloadTooLargeError("read_body", maxBody)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, herr.NewIOError("read_body", err)
	}
	return body, nil
}
