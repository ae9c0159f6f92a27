package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recipedecider/internal/metrics"
)

// recordingSubscriber captures every frame it receives.
type recordingSubscriber struct {
	mu      sync.Mutex
	frames  []string
	fail    error
	closed  int
	blockOn bool
}

func (s *recordingSubscriber) Send(ctx context.Context, data []byte) error {
	if s.blockOn {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.frames = append(s.frames, string(data))
	return nil
}

func (s *recordingSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *recordingSubscriber) Frames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.frames...)
}

func TestNotifyAllReachesEverySubscriber(t *testing.T) {
	h := NewHub()
	a, b := &recordingSubscriber{}, &recordingSubscriber{}
	h.Subscribe(a)
	h.Subscribe(b)
	require.Equal(t, 2, h.Len())

	h.NotifyAll(context.Background(), NewRecipe(soup))

	want := []string{`{"NewRecipe":{"name":"Soup","instructions":"Boil."}}`}
	assert.Equal(t, want, a.Frames())
	assert.Equal(t, want, b.Frames())
}

func TestNotifyAllPreservesEventOrder(t *testing.T) {
	h := NewHub()
	s := &recordingSubscriber{}
	h.Subscribe(s)

	h.NotifyAll(context.Background(), NewRecipe(soup))
	h.NotifyAll(context.Background(), RecipeRolled(nil))

	frames := s.Frames()
	require.Len(t, frames, 2)
	assert.Contains(t, frames[0], TypeNewRecipe)
	assert.Contains(t, frames[1], TypeRecipeRolled)
}

func TestNotifyAllDropsFailingSubscriber(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHub(WithMetrics(metrics.New(reg)))
	good := &recordingSubscriber{}
	bad := &recordingSubscriber{fail: errors.New("connection reset")}
	h.Subscribe(good)
	h.Subscribe(bad)

	h.NotifyAll(context.Background(), NewRecipe(soup))

	assert.Equal(t, 1, h.Len())
	assert.Equal(t, 1, bad.closed)
	assert.Len(t, good.Frames(), 1)

	// The dropped subscriber is not contacted again.
	h.NotifyAll(context.Background(), NewRecipe(salad))
	assert.Equal(t, 1, bad.closed)
	assert.Len(t, good.Frames(), 2)
}

func TestNotifyAllBoundsSlowSubscriber(t *testing.T) {
	h := NewHub(WithWriteTimeout(20 * time.Millisecond))
	slow := &recordingSubscriber{blockOn: true}
	fast := &recordingSubscriber{}
	h.Subscribe(slow)
	h.Subscribe(fast)

	done := make(chan struct{})
	go func() {
		h.NotifyAll(context.Background(), NewRecipe(soup))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("NotifyAll did not return within bound")
	}
	assert.Equal(t, 1, h.Len())
	assert.Len(t, fast.Frames(), 1)
}

func TestNotifyAllWithoutSubscribers(t *testing.T) {
	h := NewHub()
	assert.NotPanics(t, func() {
		h.NotifyAll(context.Background(), RecipesUpdated(nil))
	})
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	h := NewHub()
	s := &recordingSubscriber{}
	unsubscribe := h.Subscribe(s)
	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, 0, s.closed, "unsubscribe must not close the subscriber")

	h.NotifyAll(context.Background(), NewRecipe(soup))
	assert.Empty(t, s.Frames())
}

func TestHubClose(t *testing.T) {
	h := NewHub()
	a, b := &recordingSubscriber{}, &recordingSubscriber{}
	h.Subscribe(a)
	h.Subscribe(b)

	h.Close()
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1, b.closed)
}

func TestConcurrentSubscribe(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsubscribe := h.Subscribe(&recordingSubscriber{})
			h.NotifyAll(context.Background(), RecipeRolled(nil))
			unsubscribe()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, h.Len())
}
