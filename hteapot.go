// Package hteapot is a small HTTP/1.1 origin server and library: a
// worker-pool engine, a reverse proxy, a sandboxed static file server,
// and a TTL cache, fronted by a single Listen(handler) entry point for
// embedding into another Go program.
package hteapot

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Az107/HTeaPot/internal/config"
	"github.com/Az107/HTeaPot/pkg/cache"
	"github.com/Az107/HTeaPot/pkg/constants"
	"github.com/Az107/HTeaPot/pkg/dispatch"
	"github.com/Az107/HTeaPot/pkg/engine"
	"github.com/Az107/HTeaPot/pkg/fileserver"
	"github.com/Az107/HTeaPot/pkg/proxy"
	"github.com/Az107/HTeaPot/pkg/stream"
	"github.com/Az107/HTeaPot/pkg/wire"
)

// Version is the current version of the HTeaPot library.
const Version = "1.0.0"

// Re-exported core types, so a caller only ever needs to import this one
// package for the common cases.
type (
	// Request is a fully parsed HTTP/1.1 request handed to a Handler.
	Request = wire.Request

	// Response is a fully buffered static response.
	Response = wire.Response

	// Header is a case-insensitive HTTP header map.
	Header = wire.Header

	// StatusCode is a numeric HTTP status code.
	StatusCode = wire.StatusCode

	// StreamedResponse is the open-ended response shape a Handler may
	// return instead of a static Response.
	StreamedResponse = dispatch.StreamedResponse

	// Sender is the producer-facing handle passed to a StreamFunc.
	Sender = stream.Sender

	// Handler is the user callback supplied to Listen.
	Handler = dispatch.Handler
)

// Status enumerants a library caller commonly needs, including the
// mandatory 418.
const (
	StatusOK                  = wire.StatusOK
	StatusCreated             = wire.StatusCreated
	StatusNoContent           = wire.StatusNoContent
	StatusMovedPermanently    = wire.StatusMovedPermanently
	StatusFound               = wire.StatusFound
	StatusBadRequest          = wire.StatusBadRequest
	StatusForbidden           = wire.StatusForbidden
	StatusNotFound            = wire.StatusNotFound
	StatusTeapot              = wire.StatusTeapot
	StatusInternalServerError = wire.StatusInternalServerError
	StatusBadGateway          = wire.StatusBadGateway
)

// NewResponse builds a static Response. header may be nil.
func NewResponse(status StatusCode, body []byte, header Header) Response {
	return wire.NewResponse(status, body, header)
}

// NewStreamedResponse builds a StreamedResponse whose body is produced by
// fn, which receives a Sender to push chunks through. header may be nil.
func NewStreamedResponse(status StatusCode, header Header, fn func(Sender)) *StreamedResponse {
	return &StreamedResponse{Status: status, Header: header, Stream: fn}
}

// Server is a configured-but-not-yet-listening HTeaPot instance.
type Server struct {
	host string
	port int

	workers     int
	maxBody     int64
	idleTimeout time.Duration

	cache     *cache.Cache
	files     *fileserver.FileServer
	forwarder *proxy.Forwarder

	OnAccess engine.AccessLogger
	OnError  engine.ErrorLogger
}

// New returns a Server bound to host:port with spec.md §4.4's defaults
// (a worker count of constants.DefaultWorkerCount, no cache, no proxy
// rules, no file root).
func New(host string, port int) *Server {
	return &Server{
		host:        host,
		port:        port,
		workers:     constants.DefaultWorkerCount,
		maxBody:     constants.DefaultMaxBodyBytes,
		idleTimeout: constants.DefaultIdleTimeout,
	}
}

// FromConfig builds a Server from a parsed configuration file (§6),
// wiring its cache, file root, and ordered proxy rule table.
func FromConfig(cfg config.Config) (*Server, error) {
	s := New(cfg.Host, int(cfg.Port))
	s.workers = int(cfg.Threads)

	if cfg.Root != "" {
		var c *cache.Cache
		if cfg.Cache {
			ttl := time.Duration(cfg.CacheTTL) * time.Second
			c = cache.New(ttl, true)
		}
		s.files = fileserver.New(cfg.Root, cfg.Index, c)
		s.cache = c
	}

	if len(cfg.Proxy) > 0 {
		rules := make([]proxy.Rule, 0, len(cfg.Proxy))
		for _, pr := range cfg.Proxy {
			rule, err := proxy.NewRule(pr.Prefix, pr.Upstream)
			if err != nil {
				return nil, fmt.Errorf("configuring proxy rules: %w", err)
			}
			rules = append(rules, rule)
		}
		s.forwarder = proxy.New(rules)
	}

	return s, nil
}

// WithWorkers overrides the worker pool size.
func (s *Server) WithWorkers(n int) *Server {
	if n > 0 {
		s.workers = n
	}
	return s
}

// WithFileServer serves static files from root (index defaults to
// fileserver.DefaultIndex), optionally cached with the given TTL. Once a
// file server is installed it answers every request no proxy rule
// matches, including with 404/403, and the user callback is not called.
func (s *Server) WithFileServer(root, index string, cacheTTL time.Duration, cacheEnabled bool) *Server {
	c := cache.New(cacheTTL, cacheEnabled)
	s.cache = c
	s.files = fileserver.New(root, index, c)
	return s
}

// WithProxyRules installs an ordered reverse-proxy rule table ahead of
// the file server and any user callback.
func (s *Server) WithProxyRules(rules []proxy.Rule) *Server {
	s.forwarder = proxy.New(rules)
	return s
}

// Listen binds host:port and serves forever. A request that matches a
// proxy rule is forwarded; otherwise it goes to the file server if one is
// configured, and to handler only when none is. It blocks until ctx is
// cancelled or Accept fails.
func (s *Server) Listen(ctx context.Context, handler Handler) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.host, s.port))
	if err != nil {
		return fmt.Errorf("binding %s:%d: %w", s.host, s.port, err)
	}
	defer ln.Close()

	d := dispatch.New(s.forwarder, s.files, handler)
	pool := engine.New(s.workers, d)
	pool.MaxBody = s.maxBody
	pool.IdleTimeout = s.idleTimeout
	pool.OnAccess = s.OnAccess
	pool.OnError = s.OnError

	return pool.Run(ctx, ln)
}

// QuickServe is the `-s <dir>` convenience path of spec.md §6: serve dir
// as static files on addr with no proxy rules and no cache.
func QuickServe(ctx context.Context, addr string, dir string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return fmt.Errorf("invalid listen port %q: %w", portStr, err)
	}

	s := New(host, port).WithFileServer(dir, fileserver.DefaultIndex, 0, false)
	return s.Listen(ctx, nil)
}
