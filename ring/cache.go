package ring

import (
	"sync"
)

// onceMap is a concurrent lazily-populated map. Each key is computed at
// most once; concurrent readers of a key being computed block until the
// computation completes. Entries whose value is reported stale are
// replaced and rebuilt synchronously by the caller that detected the
// staleness.
type onceMap[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]*onceEntry[V]
}

type onceEntry[V any] struct {
	once sync.Once
	val  V
	err  error
}

func newOnceMap[K comparable, V any]() *onceMap[K, V] {
	return &onceMap[K, V]{m: make(map[K]*onceEntry[V])}
}

// getOrCompute returns the value for key k, computing it with compute if
// absent. If stale is non-nil and reports true on a previously computed
// value, the entry is replaced and recomputed.
func (o *onceMap[K, V]) getOrCompute(k K, stale func(V) bool, compute func() (V, error)) (V, error) {

	for {
		o.mu.RLock()
		e := o.m[k]
		o.mu.RUnlock()

		if e == nil {
			o.mu.Lock()
			if e = o.m[k]; e == nil {
				e = &onceEntry[V]{}
				o.m[k] = e
			}
			o.mu.Unlock()
		}

		e.once.Do(func() {
			e.val, e.err = compute()
		})

		// failed entries are dropped so that a later call with valid
		// parameters can rebuild them
		if e.err != nil {
			o.mu.Lock()
			if o.m[k] == e {
				delete(o.m, k)
			}
			o.mu.Unlock()
			return e.val, e.err
		}

		if stale != nil && stale(e.val) {
			o.mu.Lock()
			if o.m[k] == e {
				delete(o.m, k)
			}
			o.mu.Unlock()
			continue
		}

		return e.val, nil
	}
}

// reset drops all entries.
func (o *onceMap[K, V]) reset() {
	o.mu.Lock()
	o.m = make(map[K]*onceEntry[V])
	o.mu.Unlock()
}
