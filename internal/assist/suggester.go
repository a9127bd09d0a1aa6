package assist

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fekuna/artista-service/internal/model"
)

const DefaultDebounce = 500 * time.Millisecond

// Suggester debounces search suggestion requests for one session. Only the newest
// query reaches the gateway; older callers get ErrSuperseded, including when their
// gateway call was already in flight.
type Suggester struct {
	gw        Gateway
	debouncer *Debouncer

	mu        sync.Mutex
	seq       uint64
	supersede chan struct{} // closed when the pending caller loses
}

func NewSuggester(gw Gateway, delay time.Duration) *Suggester {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Suggester{
		gw:        gw,
		debouncer: NewDebouncer(delay),
	}
}

// claim makes the caller the newest request and, unless the query is too short,
// schedules it behind the debounce delay. ready is nil when nothing was scheduled.
func (s *Suggester) claim(schedule bool) (seq uint64, superseded, ready chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.supersede != nil {
		close(s.supersede)
		s.supersede = nil
	}
	s.seq++
	if !schedule {
		s.debouncer.Cancel()
		return s.seq, nil, nil
	}
	superseded = make(chan struct{})
	s.supersede = superseded
	ready = make(chan struct{})
	s.debouncer.Debounce(func() { close(ready) })
	return s.seq, superseded, ready
}

// finish reports whether seq is still the newest request and drops its bookkeeping.
func (s *Suggester) finish(seq uint64, cancelTimer bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq != seq {
		return false
	}
	if cancelTimer {
		s.debouncer.Cancel()
	}
	s.supersede = nil
	return true
}

// Suggest returns suggestions for query once no newer query arrives within the
// debounce delay. Queries shorter than MinQueryLength return no suggestions at once.
func (s *Suggester) Suggest(ctx context.Context, query string, products []model.Product) ([]string, error) {
	query = strings.TrimSpace(query)
	seq, superseded, ready := s.claim(!tooShort(query))
	if ready == nil {
		return []string{}, nil
	}

	select {
	case <-ready:
	case <-superseded:
		return nil, ErrSuperseded
	case <-ctx.Done():
		s.finish(seq, true)
		return nil, ctx.Err()
	}

	out, err := s.gw.SuggestSearches(ctx, query, products)
	if !s.finish(seq, false) {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close cancels the waiting request, which returns ErrSuperseded.
func (s *Suggester) Close() {
	s.claim(false)
}
