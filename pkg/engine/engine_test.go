package engine

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/Az107/HTeaPot/pkg/dispatch"
	"github.com/Az107/HTeaPot/pkg/wire"
)

func startPool(t *testing.T, d *dispatch.Dispatcher) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	pool := New(2, d)
	pool.IdleTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx, ln)
		close(done)
	}()

	return ln.Addr().String(), func() {
		cancel()
		<-done
	}
}

func readResponse(t *testing.T, conn net.Conn) (status string, body string) {
	t.Helper()
	r := bufio.NewReader(conn)
	statusLine, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read status line: %v", err)
	}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read header: %v", err)
		}
		if strings.TrimRight(line, "\r\n") == "" {
			break
		}
	}
	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	return strings.TrimSpace(statusLine), string(buf[:n])
}

func TestEngineServesCallbackResponse(t *testing.T) {
	d := dispatch.New(nil, nil, func(req *wire.Request) (*wire.Response, *dispatch.StreamedResponse, error) {
		resp := wire.NewResponse(wire.StatusOK, []byte("hi there"), wire.NewHeader())
		return &resp, nil, nil
	})
	addr, stop := startPool(t, d)
	defer stop()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("GET /hello HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	status, body := readResponse(t, conn)
	if !strings.Contains(status, "200") {
		t.Errorf("status = %q, want 200", status)
	}
	if !strings.Contains(body, "hi there") {
		t.Errorf("body = %q, want it to contain hi there", body)
	}
}

func TestEngineKeepAliveServesTwoRequests(t *testing.T) {
	count := 0
	d := dispatch.New(nil, nil, func(req *wire.Request) (*wire.Response, *dispatch.StreamedResponse, error) {
		count++
		resp := wire.NewResponse(wire.StatusOK, []byte(req.Path), wire.NewHeader())
		return &resp, nil, nil
	})
	addr, stop := startPool(t, d)
	defer stop()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("GET /one HTTP/1.1\r\nHost: x\r\n\r\n"))
	_, body1 := readResponse(t, conn)
	if !strings.Contains(body1, "/one") {
		t.Errorf("body1 = %q, want /one", body1)
	}

	conn.Write([]byte("GET /two HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	_, body2 := readResponse(t, conn)
	if !strings.Contains(body2, "/two") {
		t.Errorf("body2 = %q, want /two", body2)
	}
	if count != 2 {
		t.Errorf("handler invoked %d times, want 2", count)
	}
}

func TestEngineNotFoundRoute(t *testing.T) {
	d := dispatch.New(nil, nil, nil)
	addr, stop := startPool(t, d)
	defer stop()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("GET /missing HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	status, _ := readResponse(t, conn)
	if !strings.Contains(status, "404") {
		t.Errorf("status = %q, want 404", status)
	}
}
