package main

import (
	"net"
	"net/http"
	"os"
	osSignal "os/signal"
	"slices"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func fakeSignal(t *testing.T, sig os.Signal) {
	t.Helper()
	t.Cleanup(func() {
		signalNotify = osSignal.Notify
	})

	signalNotify = func(ch chan<- os.Signal, watched ...os.Signal) {
		if !slices.Contains(watched, sig) {
			t.Errorf("signal %v is not watched (watched %v)", sig, watched)
		}
		go func() {
			ch <- sig
		}()
	}
}

func TestShutdownSignals(t *testing.T) {
	for _, sig := range []os.Signal{os.Interrupt, syscall.SIGTERM} {
		t.Run(sig.String(), func(t *testing.T) {
			fakeSignal(t, sig)

			server := &http.Server{}
			called := make(chan struct{}, 1)
			server.RegisterOnShutdown(func() {
				called <- struct{}{}
			})

			shutdown(server, time.Millisecond, zaptest.NewLogger(t))

			select {
			case <-called:
			case <-time.After(time.Second):
				t.Fatalf("expected server shutdown callback to execute")
			}
		})
	}
}

func TestShutdownForcesCloseAfterGracePeriod(t *testing.T) {
	fakeSignal(t, syscall.SIGTERM)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})}
	go func() {
		_ = server.Serve(ln)
	}()
	t.Cleanup(func() { close(release) })

	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/optimize")
		if err == nil {
			_ = resp.Body.Close()
		}
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("request never reached the server")
	}

	done := make(chan struct{})
	go func() {
		shutdown(server, 10*time.Millisecond, zaptest.NewLogger(t))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("shutdown did not return after the grace period")
	}

	if _, err := net.DialTimeout("tcp", ln.Addr().String(), 100*time.Millisecond); err == nil {
		t.Fatalf("expected listener to be closed after shutdown")
	}
}
