package proxy

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Rule is one (path-prefix, upstream) mapping, matched in declaration
// order — first match wins, per spec.md §3/§9. The special prefix "/"
// matches everything and therefore short-circuits any rule after it.
type Rule struct {
	Prefix   string
	Upstream *url.URL
}

// ParseUpstreamURL parses a rule's upstream-base-URL string, grounded on
// the teacher's client.ParseProxyURL (scheme validation, default ports),
// generalized from "proxy protocol" URLs to plain HTTP upstream origins
// since spec.md §4.6 only ever dials a plain TCP connection to the
// upstream's host:port.
func ParseUpstreamURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("upstream URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}

	switch u.Scheme {
	case "http", "https", "socks5":
		// valid
	case "":
		return nil, fmt.Errorf("upstream URL must include a scheme (http://, https://, or socks5://)")
	default:
		return nil, fmt.Errorf("unsupported upstream scheme: %s", u.Scheme)
	}

	if u.Hostname() == "" {
		return nil, fmt.Errorf("upstream URL must include a host")
	}

	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			u.Host = u.Hostname() + ":443"
		default:
			u.Host = u.Hostname() + ":80"
		}
	} else if port, err := strconv.Atoi(u.Port()); err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid upstream port: %s", u.Port())
	}

	return u, nil
}

// NewRule parses upstream and returns a Rule for prefix.
func NewRule(prefix, upstream string) (Rule, error) {
	u, err := ParseUpstreamURL(upstream)
	if err != nil {
		return Rule{}, fmt.Errorf("proxy rule %q: %w", prefix, err)
	}
	return Rule{Prefix: prefix, Upstream: u}, nil
}

// Match returns the first rule whose prefix matches path, and the
// remainder of path after that prefix, in declaration order. A "/" rule
// matches unconditionally.
func Match(rules []Rule, path string) (rule Rule, remainder string, ok bool) {
	for _, r := range rules {
		if strings.HasPrefix(path, r.Prefix) {
			return r, strings.TrimPrefix(path, r.Prefix), true
		}
	}
	return Rule{}, "", false
}
