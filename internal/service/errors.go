// Package service implements the checkout core: resolving a user's open
// cart, reserving ticket inventory, and turning carts into orders.  All
// state transitions run inside a single storage transaction obtained
// through the Store port, and every failure surfaces as one of the
// sentinel errors below so that handlers never see raw storage errors.
package service

import "errors"

// ErrOutOfStock is returned when a reservation would push a ticket
// tier's sold count past its capacity.  Safe to retry (someone else may
// cancel).  Handlers should translate this into HTTP 409.
var ErrOutOfStock = errors.New("out of stock")

// ErrCartClosed is returned when a mutation targets a cart that already
// left the OPEN state.  The caller must change its request.
var ErrCartClosed = errors.New("cart closed")

// ErrEmptyCart is returned when checkout is attempted on an open cart
// with no line items.
var ErrEmptyCart = errors.New("empty cart")

// ErrNoOpenCart is returned by buy/cancel when the user has no open
// cart to operate on.
var ErrNoOpenCart = errors.New("no open cart")

// ErrCartConflict signals that a concurrent request created the user's
// open cart first (duplicate key on the insert-if-absent).  The
// coordinator resolves it internally by refetching; it only escapes
// when the refetch itself fails.
var ErrCartConflict = errors.New("open cart already exists")

// ErrAlreadyCancelled marks a repeated cancellation.  The operation is
// an idempotent no-op at that point.
var ErrAlreadyCancelled = errors.New("cart already cancelled")

// ErrCartNotFound is returned when the referenced cart does not exist.
var ErrCartNotFound = errors.New("cart not found")

// ErrTicketTypeNotFound is returned when the referenced ticket tier
// does not exist, is retired, or belongs to a different event than the
// one named in the request.
var ErrTicketTypeNotFound = errors.New("ticket type not found")

// ErrNotCartOwner is returned when a user addresses a cart owned by
// someone else.  Handlers should translate this into HTTP 403.
var ErrNotCartOwner = errors.New("not cart owner")

// ErrInvalidQuantity is returned for a zero ticket quantity.
var ErrInvalidQuantity = errors.New("quantity must be positive")
