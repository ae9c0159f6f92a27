package testutil

import (
	"context"
	"sync"
	"testing"
	"time"
)

// Recorder is a broadcast.Subscriber that keeps every frame it receives.
type Recorder struct {
	mu     sync.Mutex
	frames []string
	closed bool
	notify chan struct{}
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

func (r *Recorder) Send(_ context.Context, data []byte) error {
	r.mu.Lock()
	r.frames = append(r.frames, string(data))
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Frames returns a copy of the received frames in arrival order.
func (r *Recorder) Frames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.frames...)
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// WaitFrames blocks until at least n frames arrived or timeout elapses, and
// returns what was received. It fails the test on timeout.
func (r *Recorder) WaitFrames(t testing.TB, n int, timeout time.Duration) []string {
	t.Helper()
	deadline := time.After(timeout)
	for {
		if frames := r.Frames(); len(frames) >= n {
			return frames
		}
		select {
		case <-r.notify:
		case <-deadline:
			frames := r.Frames()
			t.Fatalf("timed out waiting for %d frames, got %d: %v", n, len(frames), frames)
			return frames
		}
	}
}
