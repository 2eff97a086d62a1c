package usecase

import (
	"sync"

	"github.com/panjf2000/ants/v2"
)

// fetchResult is the outcome of one remote read.
type fetchResult struct {
	raw []byte
	err error
}

// runPooled runs every task on pool and waits for all of them. Tasks the pool
// rejects (nil, closed or saturated pool) run on their own goroutine instead.
func runPooled(pool *ants.Pool, tasks ...func()) {
	var workers sync.WaitGroup
	for _, task := range tasks {
		workers.Add(1)
		run := func() {
			defer workers.Done()
			task()
		}
		if pool == nil {
			go run()
			continue
		}
		if err := pool.Submit(run); err != nil {
			go run()
		}
	}
	workers.Wait()
}
