package listener

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/internal/product"
	"github.com/fekuna/artista-service/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type countingUseCase struct {
	product.UseCase
	invalidations int
}

func (c *countingUseCase) InvalidateListCache(context.Context) error {
	c.invalidations++
	return nil
}

func event(t *testing.T, eventType, source string) []byte {
	t.Helper()
	data, err := json.Marshal(product.Event{
		EventID:   "e1",
		EventType: eventType,
		Source:    source,
		Payload:   product.EventPayload{ID: "p1", OwnerID: "u1"},
		Timestamp: time.Now(),
	})
	assert.NoError(t, err)
	return data
}

func TestProcessMessage(t *testing.T) {
	tests := []struct {
		name  string
		value []byte
		want  int
	}{
		{"foreign create", event(t, product.EventProductCreated, "instance-b"), 1},
		{"foreign delete", event(t, product.EventProductDeleted, "instance-b"), 1},
		{"own update", event(t, product.EventProductUpdated, "instance-a"), 0},
		{"unrelated event", event(t, "OrderCreated", "instance-b"), 0},
		{"garbage", []byte("{not json"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &countingUseCase{}
			l := NewCatalogListener(nil, uc, nil, "instance-a", logger.NewNop())
			l.processMessage(context.Background(), tt.value)
			assert.Equal(t, tt.want, uc.invalidations)
		})
	}
}

type storeUseCase struct {
	countingUseCase
	products map[string]model.Product
}

func (s *storeUseCase) GetProduct(_ context.Context, id string) (*model.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

type recordingSink struct {
	created, updated []string
	deleted          []string
}

func (r *recordingSink) ProductCreated(p model.Product) { r.created = append(r.created, p.ID) }
func (r *recordingSink) ProductUpdated(p model.Product) { r.updated = append(r.updated, p.ID) }
func (r *recordingSink) ProductDeleted(id string)       { r.deleted = append(r.deleted, id) }

func TestForwardToSink(t *testing.T) {
	uc := &storeUseCase{products: map[string]model.Product{"p1": {ID: "p1", Title: "Dusk"}}}
	sink := &recordingSink{}
	l := NewCatalogListener(nil, uc, sink, "instance-a", logger.NewNop())
	ctx := context.Background()

	l.processMessage(ctx, event(t, product.EventProductCreated, "instance-b"))
	l.processMessage(ctx, event(t, product.EventProductUpdated, "instance-b"))
	l.processMessage(ctx, event(t, product.EventProductUpdated, "instance-a"))
	l.processMessage(ctx, event(t, product.EventProductDeleted, "instance-b"))

	delete(uc.products, "p1")
	l.processMessage(ctx, event(t, product.EventProductUpdated, "instance-b"))

	assert.Equal(t, []string{"p1"}, sink.created)
	assert.Equal(t, []string{"p1", "p1"}, sink.updated)
	assert.Equal(t, []string{"p1"}, sink.deleted)
	assert.Equal(t, 4, uc.invalidations)
}

func TestOwnWritesReachSinkWithoutInvalidating(t *testing.T) {
	uc := &storeUseCase{products: map[string]model.Product{"p1": {ID: "p1", Title: "Dusk"}}}
	sink := &recordingSink{}
	l := NewCatalogListener(nil, uc, sink, "instance-a", logger.NewNop())
	ctx := context.Background()

	l.processMessage(ctx, event(t, product.EventProductCreated, "instance-a"))
	l.processMessage(ctx, event(t, product.EventProductUpdated, "instance-a"))
	l.processMessage(ctx, event(t, product.EventProductDeleted, "instance-a"))

	assert.Equal(t, []string{"p1"}, sink.created)
	assert.Equal(t, []string{"p1"}, sink.updated)
	assert.Equal(t, []string{"p1"}, sink.deleted)
	assert.Zero(t, uc.invalidations)
}

type chanReader struct {
	msgs chan kafka.Message
}

func (r *chanReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, errors.New("reader closed")
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	reader := &chanReader{msgs: make(chan kafka.Message, 1)}
	uc := &countingUseCase{}
	l := NewCatalogListener(reader, uc, nil, "instance-a", logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(done)
	}()

	reader.msgs <- kafka.Message{Value: event(t, product.EventProductCreated, "instance-b")}
	assert.Eventually(t, func() bool { return len(reader.msgs) == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}
