package domain

import (
	"context"
	"time"
)

// PriceEvent is published after a price record is persisted. Downstream
// alerting rules consume these; the pipeline only produces them.
type PriceEvent struct {
	EventType     string    `json:"event_type"` // price.recorded
	ItemID        string    `json:"item_id"`
	PlaceID       string    `json:"place_id"`
	ProductName   string    `json:"product_name"`
	Price         float64   `json:"price"`
	OriginalPrice *float64  `json:"original_price,omitempty"`
	IsOnSale      bool      `json:"is_on_sale"`
	Source        string    `json:"source,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// EventTypePriceRecorded is the event type for new price observations.
const EventTypePriceRecorded = "price.recorded"

// PricePublisher publishes price events. Delivery is best-effort; a
// failing publisher must never abort an import batch.
type PricePublisher interface {
	PublishPriceRecorded(ctx context.Context, event *PriceEvent) error
	Close() error
}
