// internal/common/database/health.go
package database

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Pinger is any backing store that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckResult is the outcome of one dependency probe.
type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// CheckAll pings every dependency concurrently, bounded by timeout, and returns results sorted by name.
func CheckAll(ctx context.Context, deps map[string]Pinger, timeout time.Duration) []CheckResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]CheckResult, 0, len(deps))
	)

	for name, dep := range deps {
		wg.Add(1)
		go func(name string, dep Pinger) {
			defer wg.Done()
			res := CheckResult{Name: name, Healthy: true}
			if err := dep.Ping(ctx); err != nil {
				res.Healthy = false
				res.Error = err.Error()
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(name, dep)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

// Healthy reports whether every probe succeeded.
func Healthy(results []CheckResult) bool {
	for _, r := range results {
		if !r.Healthy {
			return false
		}
	}
	return true
}
