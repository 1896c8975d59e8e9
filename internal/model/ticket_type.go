package model

import "time"

// TicketType is a priced ticket tier of an event with a fixed capacity.
// Sold counts reserved-or-purchased tickets and must never exceed
// Capacity; every mutation of Sold happens through a conditional UPDATE
// inside a transaction.  Tiers are retired, never deleted.
//
// Fields:
//  ID         – primary key identifier.
//  EventID    – owning event.
//  Name       – tier name (e.g. "Early bird", "VIP").
//  PriceCents – unit price in cents.
//  Capacity   – total number of tickets that may ever be sold.
//  Sold       – tickets currently reserved or sold (0 <= Sold <= Capacity).
//  RetiredAt  – soft-retire timestamp; retired tiers reject reservations.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type TicketType struct {
    ID         uint64     // ticket_types.id
    EventID    uint64     // ticket_types.event_id
    Name       string     // ticket_types.name
    PriceCents uint32     // ticket_types.price_cents
    Capacity   uint32     // ticket_types.capacity
    Sold       uint32     // ticket_types.sold
    RetiredAt  *time.Time // ticket_types.retired_at (nullable)
    CreatedAt  time.Time  // ticket_types.created_at
    UpdatedAt  time.Time  // ticket_types.updated_at
}

// Remaining returns how many tickets can still be reserved.
func (t *TicketType) Remaining() uint32 {
    if t.Sold >= t.Capacity {
        return 0
    }
    return t.Capacity - t.Sold
}
