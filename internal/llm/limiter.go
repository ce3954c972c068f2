package llm

import "context"

// Semaphore is the process-wide LLM concurrency limiter (§5: "a global
// concurrency limiter on outstanding LLM calls, process-wide, default
// 32"), grounded on original_source's module-level
// `asyncio.Semaphore(32)`. Go has no coroutine-global state, so the
// semaphore is an explicit value threaded through client construction
// instead of a package-level singleton, with the same init-and-forget
// lifecycle §9 describes.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore creates a counted semaphore with the given capacity.
// Default capacity is 32 per spec.md §5/§9.
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 32
	}
	return &Semaphore{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free or ctx is cancelled.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (s *Semaphore) Release() {
	<-s.slots
}
