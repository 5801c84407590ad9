package wait

import (
	"sync"
	"time"
)

// Wait wraps sync.WaitGroup with a timeout variant, used to let a
// connection drain in-flight replies before its socket is closed.
type Wait struct {
	wg sync.WaitGroup
}

func (w *Wait) Add(delta int) {
	w.wg.Add(delta)
}

func (w *Wait) Done() {
	w.wg.Done()
}

func (w *Wait) Wait() {
	w.wg.Wait()
}

// WaitWithTimeout blocks until the group is empty or the timeout elapses,
// returning true if it timed out.
func (w *Wait) WaitWithTimeout(timeout time.Duration) bool {
	c := make(chan struct{})
	go func() {
		defer close(c)
		w.wg.Wait()
	}()
	select {
	case <-c:
		return false
	case <-time.After(timeout):
		return true
	}
}
