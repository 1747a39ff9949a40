package providers

import (
	"context"
	"fmt"

	"github.com/queueup/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to queue
// change events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.QueueEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.QueueEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelShopPrefix is the prefix for per-shop queue channels
const EventChannelShopPrefix = "queue:shop:"

// ShopChannel returns the event channel name for one shop's queue
func ShopChannel(shopID int32) string {
	return fmt.Sprintf("%s%d", EventChannelShopPrefix, shopID)
}
