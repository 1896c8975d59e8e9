package model

import "time"

// Cart statuses.  A cart is mutable only while OPEN.  CLOSED carts have
// been turned into orders; CANCELLED carts had their reservations
// released.
const (
    CartOpen      = "OPEN"
    CartClosed    = "CLOSED"
    CartCancelled = "CANCELLED"
)

// Cart is a user's shopping cart.  At most one OPEN cart exists per
// user at any time; the `carts` table enforces this with a unique key
// over (user_id, open_marker) where open_marker is NULL once the cart
// leaves the OPEN state.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – owning user; carts are never shared.
//  Status     – OPEN, CLOSED or CANCELLED.
//  TotalCents – running total over all line items.
//  ExpiresAt  – when an abandoned OPEN cart becomes eligible for reaping.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Cart struct {
    ID         uint64    // carts.id
    UserID     uint64    // carts.user_id
    Status     string    // carts.status
    TotalCents uint64    // carts.total_cents
    ExpiresAt  time.Time // carts.expires_at
    CreatedAt  time.Time // carts.created_at
    UpdatedAt  time.Time // carts.updated_at
}

// LineItem is one ticket-type position inside a cart.  UnitPriceCents
// is snapshotted when the item is added and is immune to later price
// changes on the tier.  ReservationToken ties the item to the inventory
// reservation that was taken in the same transaction, and is the key
// for idempotent release on cancellation.
//
// Fields:
//  ID               – primary key identifier.
//  CartID           – owning cart.
//  TicketTypeID     – reserved ticket tier.
//  Qty              – number of tickets reserved.
//  UnitPriceCents   – price per ticket at add time.
//  ReservationToken – uuid of the matching ticket_reservations row.
//  CreatedAt        – creation timestamp.
type LineItem struct {
    ID               uint64    // cart_items.id
    CartID           uint64    // cart_items.cart_id
    TicketTypeID     uint64    // cart_items.ticket_type_id
    Qty              uint32    // cart_items.qty
    UnitPriceCents   uint32    // cart_items.unit_price_cents
    ReservationToken string    // cart_items.reservation_token
    CreatedAt        time.Time // cart_items.created_at
}
