package edgar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(baseURL string) *Client {
	return NewClient(ClientOptions{
		BaseURL:           baseURL,
		RequestsPerSecond: 1000,
		Burst:             1000,
		RetryBackoff:      []time.Duration{time.Millisecond, time.Millisecond},
	})
}

func TestGetBufferSuccess(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("index data"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	body, err := c.GetBuffer(context.Background(), "edgar/full-index/2023/QTR1/form.idx")
	if err != nil {
		t.Fatalf("GetBuffer failed: %v", err)
	}
	if string(body) != "index data" {
		t.Errorf("Expected 'index data', got %q", body)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("Expected default User-Agent, got %q", gotUA)
	}
}

func TestGetBufferRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	body, err := c.GetBuffer(context.Background(), "some/path")
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("Expected 'ok', got %q", body)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestGetBufferNotFoundIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.GetBuffer(context.Background(), "missing/path")
	if !IsNotFound(err) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected 1 attempt for 404, got %d", calls)
	}
}

func TestGetBufferSniffsErrorPages(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		notFound bool
	}{
		{"rate threshold", "<html>SEC.gov | Request Rate Threshold Exceeded</html>", false},
		{"404 alert page", "<html>SEC.gov | File Not Found Error Alert (404)</html>", true},
		{"access denied", "<Error><Code>AccessDenied</Code><Message>Access Denied</Message><RequestId>x</RequestId></Error>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := testClient(srv.URL)
			_, err := c.GetBuffer(context.Background(), "some/path")
			if err == nil {
				t.Fatal("Expected error for sniffed error page")
			}
			if IsNotFound(err) != tt.notFound {
				t.Errorf("IsNotFound = %v, want %v (err: %v)", IsNotFound(err), tt.notFound, err)
			}
			if !tt.notFound {
				var netErr *NetworkError
				if !errors.As(err, &netErr) {
					t.Errorf("Expected NetworkError, got %v", err)
				}
			}
		})
	}
}

func TestGetBufferHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := testClient(srv.URL)
	_, err := c.GetBuffer(ctx, "some/path")
	if err == nil {
		t.Fatal("Expected error from cancelled context")
	}
}

func TestCIKPath(t *testing.T) {
	if got := CIKPath(320193); got != "edgar/data/320193/" {
		t.Errorf("CIKPath(320193) = %q", got)
	}
}
