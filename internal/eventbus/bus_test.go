package eventbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishInOrder(t *testing.T) {
	var b Bus[int]
	var got []string
	b.Subscribe(func(v int) { got = append(got, "a") })
	b.Subscribe(func(v int) { got = append(got, "b") })

	b.Publish(1)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestBus_UnsubscribeIsIndependent(t *testing.T) {
	var b Bus[string]
	var a, c []string
	unA := b.Subscribe(func(s string) { a = append(a, s) })
	b.Subscribe(func(s string) { c = append(c, s) })

	b.Publish("one")
	unA()
	unA() // second call is a no-op
	b.Publish("two")

	assert.Equal(t, []string{"one"}, a)
	assert.Equal(t, []string{"one", "two"}, c)
	assert.Equal(t, 1, b.Len())
}

func TestBus_HandlerMayUnsubscribeDuringPublish(t *testing.T) {
	var b Bus[int]
	var calls int
	var un func()
	un = b.Subscribe(func(int) {
		calls++
		un()
	})
	b.Subscribe(func(int) { calls++ })

	b.Publish(1)
	b.Publish(2)
	assert.Equal(t, 3, calls)
}

func TestBus_Concurrent(t *testing.T) {
	var b Bus[int]
	var mu sync.Mutex
	total := 0
	b.Subscribe(func(v int) {
		mu.Lock()
		total += v
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			un := b.Subscribe(func(int) {})
			b.Publish(1)
			un()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, total)
	assert.Equal(t, 1, b.Len())
}
