package wire

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	herr "github.com/Az107/HTeaPot/pkg/errors"
)

// UpstreamResponse is a fully buffered response read back from a proxied
// upstream, ready for header filtering and re-framing to the client.
type UpstreamResponse struct {
	Version string
	Status  StatusCode
	Reason  string
	Header  Header
	Body    []byte
}

// ParseUpstreamResponse reads a status line, headers, and body from r, the
// way the proxy forwarder reads an upstream's reply (spec.md §4.6). This is
// the mirror image of ParseRequest: the codec's job on the outbound leg of
// a proxied request.
func ParseUpstreamResponse(r *bufio.Reader, maxBody int64) (*UpstreamResponse, error) {
	statusLine, err := readCRLFLine(r)
	if err != nil {
		return nil, herr.NewUpstreamUnavailableError("", err)
	}

	parts := strings.SplitN(statusLine, " ", 3)
	if len(parts) < 2 {
		return nil, herr.NewUpstreamUnavailableError("", nil)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, herr.NewUpstreamUnavailableError("", err)
	}
	reason := ""
	if len(parts) == 3 {
		reason = parts[2]
	}

	header, err := parseHeaders(func() (string, error) { return readCRLFLine(r) })
	if err != nil {
		return nil, herr.NewUpstreamUnavailableError("", err)
	}

	resp := &UpstreamResponse{
		Version: parts[0],
		Status:  StatusCode(code),
		Reason:  reason,
		Header:  header,
	}

	body, err := readUpstreamBody(r, header, maxBody)
	if err != nil {
		return nil, err
	}
	resp.Body = body
	return resp, nil
}

// readUpstreamBody frames the upstream response body from
// Transfer-Encoding/Content-Length the same way a request body is framed;
// a response with neither header and no explicit length reads until EOF
// (connection-close framing), which is only safe because the forwarder
// always opens a fresh, unpooled connection per proxied request.
func readUpstreamBody(r *bufio.Reader, header Header, maxBody int64) ([]byte, error) {
	if strings.EqualFold(header.Get("Transfer-Encoding"), "chunked") {
		body, err := readChunkedBody(r, maxBody)
		if err != nil {
			return nil, herr.NewUpstreamUnavailableError("", err)
		}
		return body, nil
	}

	if cl := header.Get("Content-Length"); cl != "" {
		length, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err != nil || length < 0 {
			return nil, herr.NewUpstreamUnavailableError("", err)
		}
		if length == 0 {
			return nil, nil
		}
		if maxBody > 0 && length > maxBody {
			return nil, herr.NewPayloadTooLargeError("read_upstream_body", maxBody)
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, herr.NewUpstreamUnavailableError("", err)
		}
		return body, nil
	}

	body, err := io.ReadAll(r)
	if err != nil && err != io.EOF {
		return nil, herr.NewUpstreamUnavailableError("", err)
	}
	return body, nil
}
