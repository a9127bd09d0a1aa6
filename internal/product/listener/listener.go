package listener

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/internal/product"
	"github.com/fekuna/artista-service/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is satisfied by *broker.KafkaConsumer.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Sink receives every product write seen on the topic, this instance's included.
type Sink interface {
	ProductCreated(p model.Product)
	ProductUpdated(p model.Product)
	ProductDeleted(id string)
}

// CatalogListener drops cached product lists when another instance writes a product
// and forwards every write to sink.
type CatalogListener struct {
	consumer MessageReader
	uc       product.UseCase
	sink     Sink
	source   string
	logger   logger.ZapLogger
}

// NewCatalogListener builds a listener. sink may be nil.
func NewCatalogListener(consumer MessageReader, uc product.UseCase, sink Sink, source string, logger logger.ZapLogger) *CatalogListener {
	return &CatalogListener{
		consumer: consumer,
		uc:       uc,
		sink:     sink,
		source:   source,
		logger:   logger,
	}
}

func (l *CatalogListener) Start(ctx context.Context) {
	l.logger.Info("Starting Catalog Kafka Listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Catalog Kafka Listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

func (l *CatalogListener) processMessage(ctx context.Context, value []byte) {
	var event product.Event
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	switch event.EventType {
	case product.EventProductCreated, product.EventProductUpdated, product.EventProductDeleted:
	default:
		return
	}

	l.logger.Debug("Processing catalog event",
		zap.String("event_type", event.EventType),
		zap.String("product_id", event.Payload.ID),
	)
	// Our own writes already invalidated synchronously.
	if event.Source != l.source {
		if err := l.uc.InvalidateListCache(ctx); err != nil {
			l.logger.Error("Failed to invalidate product list cache",
				zap.String("event_id", event.EventID),
				zap.Error(err),
			)
		}
	}
	if l.sink != nil {
		l.forward(ctx, event)
	}
}

func (l *CatalogListener) forward(ctx context.Context, event product.Event) {
	if event.EventType == product.EventProductDeleted {
		l.sink.ProductDeleted(event.Payload.ID)
		return
	}

	p, err := l.uc.GetProduct(ctx, event.Payload.ID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			// deleted again before we read it; the delete event follows
			return
		}
		l.logger.Error("Failed to fetch changed product",
			zap.String("product_id", event.Payload.ID),
			zap.Error(err),
		)
		return
	}
	if event.EventType == product.EventProductCreated {
		l.sink.ProductCreated(*p)
		return
	}
	l.sink.ProductUpdated(*p)
}
