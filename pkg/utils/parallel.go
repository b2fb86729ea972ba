package utils

import (
	"runtime"
	"sync"
)

// Splits items across GOMAXPROCS workers and blocks until every item is
// processed. Used between phase barriers, so fn must not create new work.
func ParallelForEach[T any](items []T, fn func(T)) {
	numWorkers := runtime.GOMAXPROCS(0)
	if len(items) < numWorkers {
		numWorkers = len(items)
	}
	if numWorkers <= 1 {
		for _, item := range items {
			fn(item)
		}
		return
	}

	var next int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				mu.Lock()
				if next == len(items) {
					mu.Unlock()
					return
				}
				item := items[next]
				next++
				mu.Unlock()
				fn(item)
			}
		}()
	}
	wg.Wait()
}
