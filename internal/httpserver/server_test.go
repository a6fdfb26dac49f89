package httpserver

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestRunStopsWhenContextCancelled(t *testing.T) {
	srv := New(0, http.NotFoundHandler())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}

func TestRunReturnsListenErrors(t *testing.T) {
	srv := New(-1, http.NotFoundHandler())

	select {
	case err := <-runAsync(srv):
		if err == nil {
			t.Fatal("expected listen error for invalid port")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected Run to fail fast")
	}
}

func TestNewUsesUploadFriendlyTimeouts(t *testing.T) {
	srv := New(8080, http.NotFoundHandler())
	if srv.Addr() != ":8080" {
		t.Fatalf("unexpected addr %q", srv.Addr())
	}
	if srv.inner.WriteTimeout < time.Minute || srv.inner.ReadTimeout < time.Minute {
		t.Fatalf("expected minute-scale timeouts, got read=%v write=%v", srv.inner.ReadTimeout, srv.inner.WriteTimeout)
	}
	if srv.inner.ReadHeaderTimeout == 0 {
		t.Fatal("expected a header timeout")
	}
}

func runAsync(srv *Server) <-chan error {
	done := make(chan error, 1)
	go func() { done <- Run(context.Background(), srv) }()
	return done
}
