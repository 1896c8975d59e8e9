package model

import "time"

// Order statuses.  Orders are immutable after creation except for the
// administrative transition CLOSED -> REFUNDED.
const (
    OrderClosed   = "CLOSED"
    OrderRefunded = "REFUNDED"
)

// Order is the priced, immutable projection of a checked-out cart.
// Exactly one order exists per closed cart (1:1, enforced by a unique
// key on cart_id).
//
// Fields:
//  ID         – primary key identifier.
//  UUID       – public identifier exposed through the API.
//  UserID     – user who bought the cart.
//  CartID     – cart this order snapshots.
//  Status     – CLOSED or REFUNDED.
//  TotalCents – final total copied from the cart at checkout.
//  CreatedAt  – checkout timestamp.
//  UpdatedAt  – last update timestamp.
type Order struct {
    ID         uint64    // orders.id
    UUID       string    // orders.uuid
    UserID     uint64    // orders.user_id
    CartID     uint64    // orders.cart_id
    Status     string    // orders.status
    TotalCents uint64    // orders.total_cents
    CreatedAt  time.Time // orders.created_at
    UpdatedAt  time.Time // orders.updated_at
    Items      []OrderItem
}

// OrderItem copies one cart line item into the order snapshot.
//
// Fields:
//  ID             – primary key identifier.
//  OrderID        – owning order.
//  TicketTypeID   – purchased ticket tier.
//  Qty            – number of tickets.
//  UnitPriceCents – price per ticket at add-to-cart time.
type OrderItem struct {
    ID             uint64 // order_items.id
    OrderID        uint64 // order_items.order_id
    TicketTypeID   uint64 // order_items.ticket_type_id
    Qty            uint32 // order_items.qty
    UnitPriceCents uint32 // order_items.unit_price_cents
}
