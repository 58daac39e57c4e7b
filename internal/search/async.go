package search

import (
	"context"
	"sync"

	"github.com/kk-code-lab/bigtext/internal/textsource"
)

// Update is a checkpoint of a background search. The final update has Done
// set and carries the results, which are partial when Err reports
// cancellation.
type Update struct {
	Results []Result
	Percent int
	Done    bool
	Err     error
}

// Searcher runs one background FindAll at a time. Starting a search cancels
// the previous one, whose remaining updates are dropped.
type Searcher struct {
	engine *Engine

	cancelMu sync.Mutex
	cancel   context.CancelFunc
	token    int
	wg       sync.WaitGroup
}

// NewSearcher creates a Searcher; a nil engine uses the defaults.
func NewSearcher(engine *Engine) *Searcher {
	if engine == nil {
		engine = defaultEngine
	}
	return &Searcher{engine: engine}
}

// FindAllAsync starts searching src in a goroutine and reports progress and
// the outcome through callback.
func (s *Searcher) FindAllAsync(src textsource.Source, opts Options, callback func(Update)) {
	s.cancelOngoingSearch()

	ctx, cancel := context.WithCancel(context.Background())
	token := s.setCancel(cancel)

	s.wg.Add(1)
	go func(ctx context.Context, cancel context.CancelFunc, token int) {
		defer s.wg.Done()
		defer s.clearCancel(token)
		defer cancel()

		last := 0
		results, err := s.engine.FindAll(ctx, src, opts, func(percent int) {
			last = percent
			if s.isTokenCurrent(token) {
				callback(Update{Percent: percent})
			}
		})
		if !s.isTokenCurrent(token) {
			return
		}
		callback(Update{Results: results, Percent: last, Done: true, Err: err})
	}(ctx, cancel, token)
}

// Cancel stops the running search. Its final update reports cancellation.
func (s *Searcher) Cancel() {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Wait blocks until every started search has returned.
func (s *Searcher) Wait() { s.wg.Wait() }

func (s *Searcher) cancelOngoingSearch() {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		s.token++
	}
}

func (s *Searcher) setCancel(cancel context.CancelFunc) int {
	s.cancelMu.Lock()
	s.token++
	token := s.token
	s.cancel = cancel
	s.cancelMu.Unlock()
	return token
}

func (s *Searcher) clearCancel(token int) {
	s.cancelMu.Lock()
	if s.token == token {
		s.cancel = nil
	}
	s.cancelMu.Unlock()
}

func (s *Searcher) isTokenCurrent(token int) bool {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	return s.token == token
}
