package dialog

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueueKeepsChatOrder(t *testing.T) {
	q := NewChatQueue()
	var mu sync.Mutex
	got := []int{}
	for i := 0; i < 100; i++ {
		i := i
		q.Submit(1, func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	q.Close()

	want := make([]int, 100)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
	assert.Equal(t, 0, q.Active())
	assert.False(t, q.Submit(1, func() {}))
}

func TestQueueChatsRunIndependently(t *testing.T) {
	q := NewChatQueue()
	release := make(chan struct{})
	done := make(chan struct{})

	q.Submit(1, func() { <-release })
	q.Submit(2, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("chat 2 was blocked by chat 1")
	}
	close(release)
	q.Close()
}

func TestQueueSurvivesPanics(t *testing.T) {
	q := NewChatQueue()
	ran := false
	q.Submit(3, func() { panic("boom") })
	q.Submit(3, func() { ran = true })
	q.Close()
	assert.True(t, ran)
}
