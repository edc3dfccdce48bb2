package pubsub

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBroker_PublishSubscribe(t *testing.T) {
	b := NewBroker[string]()

	var got1, got2 []string
	cancel1 := b.Subscribe(func(s string) { got1 = append(got1, s) })
	cancel2 := b.Subscribe(func(s string) { got2 = append(got2, s) })
	assert.Equal(t, 2, b.SubscribersCount())

	b.Publish("a")
	cancel1()
	b.Publish("b")

	assert.Equal(t, []string{"a"}, got1)
	assert.Equal(t, []string{"a", "b"}, got2)
	assert.Equal(t, 1, b.SubscribersCount())

	// cancel is idempotent
	cancel1()
	cancel1()
	assert.Equal(t, 1, b.SubscribersCount())

	cancel2()
	assert.Equal(t, 0, b.SubscribersCount())
	b.Publish("c")
	assert.Equal(t, []string{"a", "b"}, got2)
}

func TestBroker_SubscriptionOrder(t *testing.T) {
	b := NewBroker[int]()

	var calls []string
	b.Subscribe(func(int) { calls = append(calls, "first") })
	cancel := b.Subscribe(func(int) { calls = append(calls, "second") })
	b.Subscribe(func(int) { calls = append(calls, "third") })
	cancel()

	b.Publish(1)
	assert.Equal(t, []string{"first", "third"}, calls)
}

func TestBroker_CancelFromCallback(t *testing.T) {
	b := NewBroker[int]()

	count := 0
	var cancel func()
	cancel = b.Subscribe(func(int) {
		count++
		cancel()
	})

	b.Publish(1)
	b.Publish(2)
	assert.Equal(t, 1, count)
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker[int]()

	called := false
	cancel := b.Subscribe(func(int) { called = true })
	b.Close()
	b.Publish(1)
	assert.False(t, called)

	cancel()
	cancelAfterClose := b.Subscribe(func(int) { called = true })
	require.NotNil(t, cancelAfterClose)
	cancelAfterClose()
	b.Publish(2)
	assert.False(t, called)
	assert.Equal(t, 0, b.SubscribersCount())
}

func TestBroker_Concurrent(t *testing.T) {
	b := NewBroker[int]()

	var mu sync.Mutex
	total := 0
	cancel := b.Subscribe(func(v int) {
		mu.Lock()
		total += v
		mu.Unlock()
	})
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Publish(1)
			c := b.Subscribe(func(int) {})
			c()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, total)
}
