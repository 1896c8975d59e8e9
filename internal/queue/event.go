// Package queue defines message payloads exchanged over the message broker
// plus the publisher and background consumer for the order.placed queue.
package queue

// OrderPlacedEvent is published when a cart is successfully bought.
// It carries enough information for downstream consumers to log, notify
// or trigger analytics without querying the primary database.
type OrderPlacedEvent struct {
    OrderUUID  string      `json:"order_uuid"`
    UserID     uint64      `json:"user_id"`
    TotalCents uint64      `json:"total_cents"`
    Lines      []OrderLine `json:"lines"`
    PlacedAt   string      `json:"placed_at"`
}

// OrderLine is one purchased position inside an OrderPlacedEvent.
type OrderLine struct {
    TicketTypeID   uint64 `json:"ticket_type_id"`
    Qty            uint32 `json:"qty"`
    UnitPriceCents uint32 `json:"unit_price_cents"`
}
