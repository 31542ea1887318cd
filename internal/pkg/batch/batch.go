package batch

import (
	"context"
	"sync"
)

// Run calls fn for every id using at most concurrency goroutines. It stops handing
// out ids once ctx is done; ids already started run to completion.
func Run(ctx context.Context, ids []string, concurrency int, fn func(ctx context.Context, id string)) {
	if concurrency < 1 {
		concurrency = 1
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				fn(ctx, id)
			}
		}()
	}

feed:
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()
}
