package chain

import (
	"context"
	"sync"
)

// MaxInFlight caps how many RPC requests a Gather call runs concurrently.
const MaxInFlight = 10

// Gather runs fn over items in groups of at most MaxInFlight. Requests within
// a group run concurrently, groups run one after another, and results come
// back in item order. The first error cancels the remaining groups.
func Gather[T, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))

	for start := 0; start < len(items); start += MaxInFlight {
		end := start + MaxInFlight
		if end > len(items) {
			end = len(items)
		}

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			groupErr error
		)
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				r, err := fn(ctx, items[i])
				if err != nil {
					mu.Lock()
					if groupErr == nil {
						groupErr = err
					}
					mu.Unlock()
					return
				}
				results[i] = r
			}(i)
		}
		wg.Wait()

		if groupErr != nil {
			return nil, groupErr
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	return results, nil
}
