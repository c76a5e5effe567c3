package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/vidstream/gateway/internal/storage"
	"github.com/vidstream/gateway/internal/types"
)

// Broadcaster pushes record updates to connected clients.
type Broadcaster interface {
	BroadcastSingleUpdate(video types.PublicVideo)
}

// Consumer applies completion events from the metadata queue to the catalog
// and notifies connected clients. Messages are acknowledged only after both
// steps succeed, so a crash mid-processing leads to redelivery rather than a
// lost update. Reprocessing is safe because the catalog update is a full
// overwrite of the completion fields.
type Consumer struct {
	catalog     storage.Catalog
	broadcaster Broadcaster
}

// NewConsumer creates a completion event consumer.
func NewConsumer(catalog storage.Catalog, broadcaster Broadcaster) *Consumer {
	return &Consumer{
		catalog:     catalog,
		broadcaster: broadcaster,
	}
}

// HandleDelivery processes one delivery from the metadata queue. Failures
// leave the message unacknowledged for broker-level redelivery or manual
// inspection; they never take the subscription down.
func (c *Consumer) HandleDelivery(delivery amqp.Delivery) {
	var event types.CompletionEvent

	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		slog.Error("failed to parse completion event, leaving unacknowledged",
			slog.String("error", err.Error()))
		return
	}

	if event.Reference == "" || len(event.Previews) == 0 {
		slog.Error("completion event is missing required fields, leaving unacknowledged",
			slog.String("reference", event.Reference))
		return
	}

	// Select a random thumbnail from the available previews.
	thumbnail := event.Previews[rand.IntN(len(event.Previews))]

	video, err := c.catalog.ApplyCompletion(context.Background(), event, thumbnail)
	if err != nil {
		// A missing record means the catalog and the queue have diverged;
		// keep the message around instead of dropping it silently.
		slog.Error("failed to apply completion event, leaving unacknowledged",
			slog.String("reference", event.Reference),
			slog.String("error", err.Error()))
		return
	}

	c.broadcaster.BroadcastSingleUpdate(video.Public(0))

	if err := delivery.Ack(false); err != nil {
		slog.Error("failed to acknowledge completion event",
			slog.String("reference", event.Reference),
			slog.String("error", err.Error()))
		return
	}

	slog.Info("video processing completed",
		slog.String("reference", event.Reference),
		slog.Int("previews", len(event.Previews)))
}
