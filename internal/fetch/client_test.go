package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noSleep(context.Context, time.Duration) error { return nil }

func testClient(t *testing.T, opts Options) *Client {
	t.Helper()
	if opts.Sleep == nil {
		opts.Sleep = noSleep
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "bite-pipeline-test/1.0"
	}
	return NewClient(opts, zerolog.Nop())
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestGetCachesPerURL(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("report body"))
	}))
	defer server.Close()

	client := testClient(t, Options{})

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = client.Get(context.Background(), server.URL+"/report")
		}(i)
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 network call, got %d", got)
	}
	for i, res := range results {
		if !res.OK || res.Body != "report body" {
			t.Fatalf("result %d: expected shared OK result, got %+v", i, res)
		}
	}
}

func TestGetSerializesPerDomain(t *testing.T) {
	t.Parallel()

	var inFlight atomic.Int64
	var overlapped atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inFlight.Add(1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := testClient(t, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := client.Get(context.Background(), server.URL+"/page/"+strings.Repeat("x", i+1))
			if !res.OK {
				t.Errorf("request %d failed: %+v", i, res)
			}
		}(i)
	}
	wg.Wait()

	if overlapped.Load() {
		t.Fatalf("observed concurrent requests to the same hostname")
	}
}

func TestGetTimeout(t *testing.T) {
	t.Parallel()

	hang := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})

	client := testClient(t, Options{
		Timeout:  50 * time.Millisecond,
		Primary:  &http.Client{Transport: hang},
		Fallback: &http.Client{Transport: hang},
	})

	res := client.Get(context.Background(), "https://slow.example.com/report")
	if res.OK {
		t.Fatalf("expected failure, got %+v", res)
	}
	if !strings.Contains(res.Err, "timed out after 50ms") {
		t.Fatalf("expected timeout error naming the duration, got %q", res.Err)
	}
}

func TestGetNon2xxIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "gone fishing", http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(t, Options{})
	res := client.Get(context.Background(), server.URL+"/missing")

	if res.OK {
		t.Fatalf("expected OK=false for 404, got %+v", res)
	}
	if res.Status != http.StatusNotFound || res.Err != "HTTP 404" {
		t.Fatalf("expected HTTP 404 result, got %+v", res)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected no fallback retry on non-2xx, got %d calls", got)
	}
}

func TestGetFallbackTransport(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("recovered"))
	}))
	defer server.Close()

	broken := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset by primary transport")
	})

	client := testClient(t, Options{
		Primary: &http.Client{Transport: broken},
	})

	res := client.Get(context.Background(), server.URL+"/report")
	if !res.OK || res.Body != "recovered" {
		t.Fatalf("expected fallback transport to succeed, got %+v", res)
	}
}
