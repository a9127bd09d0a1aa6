package identity

import (
	"context"
	"sync"

	"github.com/fekuna/artista-service/internal/model"
)

// Change is an identity transition. Present is false on sign-out.
type Change struct {
	Principal model.Principal
	Present   bool
}

// Hub fans identity changes out to subscribers in registration order.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(context.Context, Change)
	order  []int
}

func NewHub() *Hub {
	return &Hub{subs: map[int]func(context.Context, Change){}}
}

// OnIdentityChange registers fn and returns a function that removes it.
func (h *Hub) OnIdentityChange(fn func(context.Context, Change)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.order = append(h.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			for i, v := range h.order {
				if v == id {
					h.order = append(h.order[:i], h.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Emit calls every subscriber synchronously, outside the hub lock.
func (h *Hub) Emit(ctx context.Context, c Change) {
	h.mu.Lock()
	fns := make([]func(context.Context, Change), 0, len(h.order))
	for _, id := range h.order {
		fns = append(fns, h.subs[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ctx, c)
	}
}
