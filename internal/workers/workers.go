// Package workers tracks background goroutines so that shutdown and tests can wait for them.
package workers

import (
	"log/slog"
	"sync"
)

var Global = NewWorker()

type Worker struct {
	wg sync.WaitGroup
}

func NewWorker() *Worker {
	return &Worker{}
}

// Go runs fn in a new goroutine. A panic in fn is logged and does not crash the process.
func (w *Worker) Go(fn func()) {
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("worker panicked", "panic", r)
			}
		}()

		fn()
	}()
}

// Wait blocks until every goroutine started with Go has returned.
func (w *Worker) Wait() {
	w.wg.Wait()
}
