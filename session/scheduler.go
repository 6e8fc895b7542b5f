package session

import (
	"container/heap"
	"context"
	"sync"
)

// RunFunc drives one thread to completion; the scheduler invokes it on a
// worker goroutine and discards its error.
type RunFunc func(ctx context.Context, threadID string) error

// scheduledThread is one entry in the scheduler's priority queue.
type scheduledThread struct {
	threadID string
	priority int
	seq      int // insertion order, tie-breaker for equal priority
	run      RunFunc
}

// threadHeap orders scheduledThread entries by priority (higher first),
// falling back to insertion order — a container/heap priority queue for
// inter-thread scheduling within a session.
type threadHeap []*scheduledThread

func (h threadHeap) Len() int { return len(h) }
func (h threadHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h threadHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *threadHeap) Push(x any)   { *h = append(*h, x.(*scheduledThread)) }
func (h *threadHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Scheduler runs a session's threads concurrently, bounded by
// maxConcurrent, always preferring the highest-Thread.Priority pending
// thread. Submissions never block: once maxConcurrent threads are
// running, further submissions wait in the queue until a slot frees up.
type Scheduler struct {
	maxConcurrent int

	mu       sync.Mutex
	queue    threadHeap
	seq      int
	inflight int
	notify   chan struct{}

	wg sync.WaitGroup
}

// NewScheduler returns a Scheduler that runs at most maxConcurrent
// threads at a time. maxConcurrent <= 0 means unbounded.
func NewScheduler(maxConcurrent int) *Scheduler {
	s := &Scheduler{maxConcurrent: maxConcurrent, notify: make(chan struct{}, 1)}
	heap.Init(&s.queue)
	return s
}

// Submit enqueues a thread to run. The scheduler drains the queue in
// priority order as capacity frees up; Submit itself never blocks.
func (s *Scheduler) Submit(threadID string, priority int, run RunFunc) {
	s.mu.Lock()
	s.seq++
	heap.Push(&s.queue, &scheduledThread{threadID: threadID, priority: priority, seq: s.seq, run: run})
	s.mu.Unlock()
	s.poke()
}

func (s *Scheduler) poke() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Run dispatches queued threads until ctx is done, up to maxConcurrent at
// a time in priority order. Entries still queued when ctx is done are not
// run.
// Call it from one dedicated goroutine per session.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		s.mu.Lock()
		for s.queue.Len() > 0 && (s.maxConcurrent <= 0 || s.inflight < s.maxConcurrent) {
			next := heap.Pop(&s.queue).(*scheduledThread)
			s.inflight++
			s.wg.Add(1)
			go s.dispatch(ctx, next)
		}
		empty := s.queue.Len() == 0
		s.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if empty {
			select {
			case <-ctx.Done():
				return
			case <-s.notify:
			}
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, item *scheduledThread) {
	defer s.wg.Done()
	_ = item.run(ctx, item.threadID)
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
	s.poke()
}

// Wait blocks until every dispatched thread has returned. Callers
// typically call this after cancelling ctx to drain in-flight work.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
