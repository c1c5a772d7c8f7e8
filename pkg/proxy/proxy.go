// Package proxy implements the reverse-proxy forwarder described in
// spec.md §4.6: ordered path-prefix matching against a rule table, a
// per-request dial to the matched upstream, and header rewriting in both
// directions.
package proxy

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/Az107/HTeaPot/pkg/constants"
	herr "github.com/Az107/HTeaPot/pkg/errors"
	"github.com/Az107/HTeaPot/pkg/wire"
	netproxy "golang.org/x/net/proxy"
)

// Forwarder holds the ordered rule table a Server was configured with and
// forwards matching requests to their upstream.
type Forwarder struct {
	Rules       []Rule
	ConnTimeout time.Duration
	MaxBody     int64

	// SocksProxy, if set, is the address of a SOCKS5 proxy every upstream
	// dial is routed through — grounded on the teacher's
	// connectViaSOCKS5Proxy, which reaches for golang.org/x/net/proxy
	// rather than hand-rolling the handshake.
	SocksProxy string
}

// New returns a Forwarder over rules with ConnTimeout and MaxBody set to
// constants.DefaultConnTimeout and DefaultMaxBodyBytes. Setting either
// field to zero afterwards disables the upstream deadline or the body limit.
func New(rules []Rule) *Forwarder {
	return &Forwarder{
		Rules:       rules,
		ConnTimeout: constants.DefaultConnTimeout,
		MaxBody:     constants.DefaultMaxBodyBytes,
	}
}

// Match reports whether path falls under one of f's rules, returning the
// remainder of path after the matched prefix is stripped.
func (f *Forwarder) Match(path string) (rule Rule, remainder string, ok bool) {
	return Match(f.Rules, path)
}

// Forward dials rule.Upstream, relays req to it (rewriting the request
// line and Host header, stripping hop-by-hop headers), and returns the
// upstream's reply re-framed as a static wire.Response. remainder is the
// portion of req.Path left after rule.Prefix was stripped (as returned by
// Match), and becomes the path forwarded to the upstream, joined onto
// rule.Upstream.Path. Any dial or upstream-protocol failure is surfaced
// as an UpstreamUnavailable error, which the dispatcher maps to 502, per
// spec.md §4.6.
func (f *Forwarder) Forward(req *wire.Request, rule Rule, remainder string) (*wire.Response, error) {
	conn, err := f.dial(rule.Upstream.Host)
	if err != nil {
		return nil, herr.NewUpstreamUnavailableError(rule.Upstream.Host, err)
	}
	defer conn.Close()

	if f.ConnTimeout > 0 {
		conn.SetDeadline(time.Now().Add(f.ConnTimeout))
	}

	if err := f.writeUpstreamRequest(conn, req, rule, remainder); err != nil {
		return nil, herr.NewUpstreamUnavailableError(rule.Upstream.Host, err)
	}

	upstreamResp, err := wire.ParseUpstreamResponse(bufio.NewReader(conn), f.MaxBody)
	if err != nil {
		return nil, err
	}

	header := wire.StripHopByHop(upstreamResp.Header)
	resp := wire.NewResponse(upstreamResp.Status, upstreamResp.Body, header)
	return &resp, nil
}

// dial opens a TCP connection to addr, routing through f.SocksProxy when
// configured.
func (f *Forwarder) dial(addr string) (net.Conn, error) {
	if f.SocksProxy != "" {
		dialer, err := netproxy.SOCKS5("tcp", f.SocksProxy, nil, &net.Dialer{Timeout: f.ConnTimeout})
		if err != nil {
			return nil, fmt.Errorf("creating SOCKS5 dialer: %w", err)
		}
		return dialer.Dial("tcp", addr)
	}
	d := &net.Dialer{Timeout: f.ConnTimeout}
	return d.Dial("tcp", addr)
}

// writeUpstreamRequest serializes req onto conn with the request line and
// Host rewritten to target rule.Upstream, hop-by-hop headers stripped, and
// the body re-framed as a fixed Content-Length — spec.md §4.6 requires the
// body be forwarded unchanged but does not require preserving the
// client's original framing (chunked or not).
func (f *Forwarder) writeUpstreamRequest(conn net.Conn, req *wire.Request, rule Rule, remainder string) error {
	w := bufio.NewWriter(conn)

	target := joinUpstreamPath(rule.Upstream.Path, remainder)
	if len(req.Query) > 0 {
		target += "?" + encodeQuery(req.Query)
	}

	if _, err := fmt.Fprintf(w, "%s %s HTTP/1.1\r\n", req.RawMethod, target); err != nil {
		return err
	}

	header := wire.StripHopByHop(req.Header)
	header.Set("Host", rule.Upstream.Host)
	header.Set("Connection", "close")
	if len(req.Body) > 0 {
		header.Set("Content-Length", fmt.Sprintf("%d", len(req.Body)))
	} else {
		header.Del("Content-Length")
	}

	for key, value := range header {
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", canonicalHeader(key), value); err != nil {
			return err
		}
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	if len(req.Body) > 0 {
		if _, err := w.Write(req.Body); err != nil {
			return err
		}
	}
	return w.Flush()
}

// joinUpstreamPath joins an upstream base path with the remainder of the
// request path left after the matched rule's prefix was stripped, per
// spec.md §8 boundary scenario 5 (rule "/api" -> "http://up:9000/v1",
// request "/api/users" forwards as "/v1/users", not "/v1/api/users").
func joinUpstreamPath(base, remainder string) string {
	base = strings.TrimSuffix(base, "/")
	if remainder != "" && !strings.HasPrefix(remainder, "/") {
		remainder = "/" + remainder
	}
	target := base + remainder
	if target == "" {
		target = "/"
	}
	return target
}

func canonicalHeader(key string) string {
	parts := strings.Split(key, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "-")
}

func encodeQuery(q wire.Query) string {
	var b strings.Builder
	first := true
	for k, v := range q {
		if !first {
			b.WriteByte('&')
		}
		first = false
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return b.String()
}
