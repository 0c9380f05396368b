package dialog

import (
	"runtime/debug"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ChatQueue runs jobs of one chat in submission order on a goroutine of
// their own. Different chats run concurrently. A chat's goroutine exits once
// its queue is empty.
type ChatQueue struct {
	mu     sync.Mutex
	queues map[int64]*chatJobs
	wg     sync.WaitGroup
	closed bool
}

type chatJobs struct {
	jobs []func()
}

func NewChatQueue() *ChatQueue {
	return &ChatQueue{queues: map[int64]*chatJobs{}}
}

// Submit queues job for the chat. It returns false after Close.
func (q *ChatQueue) Submit(chatID int64, job func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if cj, ok := q.queues[chatID]; ok {
		cj.jobs = append(cj.jobs, job)
		q.mu.Unlock()
		return true
	}
	cj := &chatJobs{jobs: []func(){job}}
	q.queues[chatID] = cj
	q.wg.Add(1)
	q.mu.Unlock()

	go q.drain(chatID, cj)
	return true
}

func (q *ChatQueue) drain(chatID int64, cj *chatJobs) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if len(cj.jobs) == 0 {
			delete(q.queues, chatID)
			q.mu.Unlock()
			return
		}
		job := cj.jobs[0]
		cj.jobs[0] = nil
		cj.jobs = cj.jobs[1:]
		q.mu.Unlock()

		run(chatID, job)
	}
}

func run(chatID int64, job func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic while handling chat %d: %v\n%s", chatID, r, debug.Stack())
		}
	}()
	job()
}

// Active returns the number of chats with queued or running jobs.
func (q *ChatQueue) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues)
}

// Close stops accepting jobs and waits for the queued ones.
func (q *ChatQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
}
