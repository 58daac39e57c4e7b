package search

import (
	"sync"
	"time"
)

const (
	batchIntervalFast         = 75 * time.Millisecond
	batchIntervalSlow         = 200 * time.Millisecond
	batchForceSize            = 400
	batchFastThreshold        = 40
	initialImmediateBatchSize = 10
)

// resultAccumulator batches results from concurrent file searches and hands
// them to callback at a throttled rate. Callbacks never run concurrently.
type resultAccumulator struct {
	mu       sync.Mutex
	emitMu   sync.Mutex
	pending  []Result
	emitted  int
	lastTime time.Time
	callback func([]Result)
}

func newResultAccumulator(callback func([]Result)) *resultAccumulator {
	return &resultAccumulator{lastTime: time.Now(), callback: callback}
}

func (a *resultAccumulator) Add(results []Result) {
	if a == nil || len(results) == 0 {
		return
	}
	a.mu.Lock()
	a.pending = append(a.pending, results...)
	a.mu.Unlock()
	a.flush(false)
}

// FlushRemaining emits whatever is still pending.
func (a *resultAccumulator) FlushRemaining() {
	if a == nil {
		return
	}
	a.flush(true)
}

func (a *resultAccumulator) flush(force bool) {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()

	a.mu.Lock()
	current := a.emitted + len(a.pending)
	if len(a.pending) == 0 || (!force && !shouldFlushBatch(a.emitted, current, a.lastTime)) {
		a.mu.Unlock()
		return
	}
	chunk := a.pending
	a.pending = nil
	a.emitted = current
	a.lastTime = time.Now()
	a.mu.Unlock()

	a.callback(chunk)
}

func shouldFlushBatch(lastSize, currentSize int, lastTime time.Time) bool {
	if currentSize <= lastSize {
		return false
	}
	delta := currentSize - lastSize
	if lastSize == 0 && currentSize >= initialImmediateBatchSize {
		return true
	}
	if delta >= batchForceSize {
		return true
	}

	interval := batchIntervalSlow
	if delta <= batchFastThreshold {
		interval = batchIntervalFast
	}
	return time.Since(lastTime) >= interval
}
