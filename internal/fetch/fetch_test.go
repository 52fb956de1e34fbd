package fetch

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

func TestGet_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("expected a user agent header")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	c := &Client{MaxAttempts: 1, Timeout: 2 * time.Second}
	body, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body) == 0 {
		t.Fatalf("expected body")
	}
}

func TestGet_HTTPStatusIsTerminal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(503)
	}))
	defer srv.Close()

	c := &Client{MaxAttempts: 3, Timeout: 2 * time.Second, BackoffMin: time.Millisecond}
	_, err := c.Get(context.Background(), srv.URL)
	var ferr *Error
	if !errors.As(err, &ferr) || ferr.Kind != KindHTTPStatus || ferr.Status != 503 {
		t.Fatalf("expected terminal status error, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected no retry on HTTP error status, got %d calls", n)
	}
}

func TestGet_RetriesTimeout(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			time.Sleep(300 * time.Millisecond)
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c := &Client{MaxAttempts: 2, Timeout: 100 * time.Millisecond, BackoffMin: time.Millisecond, BackoffMax: 2 * time.Millisecond}
	_, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("expected success after timeout retry, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected 2 attempts, got %d", n)
	}
}

func TestGet_ConnectionErrorTyped(t *testing.T) {
	// A closed listener refuses connections.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := &Client{MaxAttempts: 2, Timeout: time.Second, BackoffMin: time.Millisecond, BackoffMax: 2 * time.Millisecond}
	_, err := c.Get(context.Background(), addr)
	var ferr *Error
	if !errors.As(err, &ferr) {
		t.Fatalf("expected typed error, got %v", err)
	}
	if ferr.Kind != KindConnection && ferr.Kind != KindTimeout {
		t.Fatalf("expected connection/timeout kind, got %v", ferr.Kind)
	}
}

func TestGet_NonHTMLContentTypeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	c := &Client{MaxAttempts: 1, Timeout: 2 * time.Second}
	_, err := c.Get(context.Background(), srv.URL)
	var ferr *Error
	if !errors.As(err, &ferr) || ferr.Kind != KindContentType {
		t.Fatalf("expected content-type error, got %v", err)
	}
}

func TestGet_RejectsNonHTTPScheme(t *testing.T) {
	c := &Client{MaxAttempts: 1, Timeout: time.Second}
	_, err := c.Get(context.Background(), "file:///etc/hosts")
	var ferr *Error
	if !errors.As(err, &ferr) || ferr.Kind != KindInvalidURL {
		t.Fatalf("expected invalid-url error, got %v", err)
	}
}

func TestGet_RedirectHopCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/next", http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := &Client{MaxAttempts: 1, Timeout: 2 * time.Second, RedirectMaxHops: 1}
	if _, err := c.Get(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected redirect limit error")
	}
}

func TestGet_RedirectCapIsTerminal(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Redirect(w, r, "/next", http.StatusFound)
	}))
	defer srv.Close()

	c := &Client{MaxAttempts: 3, Timeout: 2 * time.Second, RedirectMaxHops: 1,
		BackoffMin: time.Millisecond, BackoffMax: 2 * time.Millisecond}
	_, err := c.Get(context.Background(), srv.URL)
	var ferr *Error
	if !errors.As(err, &ferr) || ferr.Kind != KindTransport {
		t.Fatalf("expected terminal transport error, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected no retry past the redirect cap, got %d hits", n)
	}
}

func TestClassifyTransport_Kinds(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{context.DeadlineExceeded, KindTimeout},
		{&net.DNSError{Err: "no such host", Name: "x.invalid", IsTimeout: true}, KindTimeout},
		{syscall.ECONNREFUSED, KindConnection},
		{syscall.ECONNRESET, KindConnection},
		{&net.OpError{Op: "read", Err: syscall.ECONNRESET}, KindConnection},
		{io.ErrUnexpectedEOF, KindConnection},
		{&net.DNSError{Err: "no such host", Name: "x.invalid"}, KindTransport},
		{errors.New("remote error: tls: handshake failure"), KindTransport},
	}
	for _, c := range cases {
		got := classifyTransport("https://x.example/", c.err)
		if got.Kind != c.want {
			t.Fatalf("classifyTransport(%v) = %v, want %v", c.err, got.Kind, c.want)
		}
		if transient(got) != (c.want == KindTimeout || c.want == KindConnection) {
			t.Fatalf("unexpected retryability for %v", c.err)
		}
	}
}

func TestGet_FollowsRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/page", http.StatusMovedPermanently)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>landed</html>"))
	}))
	defer srv.Close()

	c := &Client{MaxAttempts: 1, Timeout: 2 * time.Second}
	body, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "<html>landed</html>" {
		t.Fatalf("unexpected body %q", string(body))
	}
}

func TestGet_MaxConcurrent(t *testing.T) {
	var inFlight, maxObserved int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		curr := atomic.AddInt32(&inFlight, 1)
		for {
			prev := atomic.LoadInt32(&maxObserved)
			if curr <= prev || atomic.CompareAndSwapInt32(&maxObserved, prev, curr) {
				break
			}
		}
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("ok"))
		atomic.AddInt32(&inFlight, -1)
	}))
	defer srv.Close()

	c := &Client{MaxAttempts: 1, Timeout: 2 * time.Second, MaxConcurrent: 2}
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Get(context.Background(), srv.URL)
		}()
	}
	wg.Wait()
	if maxObserved > 2 {
		t.Fatalf("expected max concurrency <= 2, got %d", maxObserved)
	}
}
