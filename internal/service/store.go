package service

import (
    "context"
    "time"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// Tx exposes the storage operations a single checkout transaction may
// perform.  Implementations translate their engine's failures into the
// sentinel errors of this package; callers never see driver errors.
// Every method participates in the transaction the Tx was created for
// and nothing is visible to other transactions before commit.
type Tx interface {
    // OpenCartForUpdate resolves the user's OPEN cart and locks its row
    // until commit, serializing same-user checkout operations.  Returns
    // ErrNoOpenCart when the user has none.
    OpenCartForUpdate(ctx context.Context, userID uint64) (*model.Cart, error)

    // CreateOpenCart atomically inserts an OPEN cart for the user.  The
    // insert-if-absent is keyed on (user, open); a racing duplicate
    // returns ErrCartConflict and the caller refetches instead.
    CreateOpenCart(ctx context.Context, userID uint64, expiresAt time.Time) (*model.Cart, error)

    // CartForUpdate loads any cart by ID with a row lock, regardless of
    // status.  Returns ErrCartNotFound when absent.
    CartForUpdate(ctx context.Context, cartID uint64) (*model.Cart, error)

    // LineItems returns the cart's line items in insertion order.
    LineItems(ctx context.Context, cartID uint64) ([]model.LineItem, error)

    // AppendLineItem inserts a line item.  The cart must be OPEN; the
    // status guard lives in AddToCartTotal which always runs in the same
    // transaction.
    AppendLineItem(ctx context.Context, item *model.LineItem) error

    // AddToCartTotal increments the cart total, conditional on the cart
    // still being OPEN.  Zero rows affected means the cart was closed
    // concurrently and yields ErrCartClosed.
    AddToCartTotal(ctx context.Context, cartID uint64, deltaCents uint64) error

    // CloseCart flips OPEN -> CLOSED exactly once.  A cart that already
    // left OPEN yields ErrCartClosed.
    CloseCart(ctx context.Context, cartID uint64) error

    // CancelCart flips OPEN -> CANCELLED exactly once, with the same
    // conditional discipline as CloseCart.
    CancelCart(ctx context.Context, cartID uint64) error

    // TicketType loads a non-retired ticket tier.  Returns
    // ErrTicketTypeNotFound when absent or retired.
    TicketType(ctx context.Context, id uint64) (*model.TicketType, error)

    // Reserve performs the conditional decrement: it bumps the tier's
    // sold count by qty only while sold+qty <= capacity, and records a
    // reservation row under token for the cart.  Zero rows affected
    // yields ErrOutOfStock and must leave no trace.
    Reserve(ctx context.Context, ticketTypeID, cartID uint64, qty uint32, token string) error

    // Release returns a reservation's quantity to the tier's pool.  It
    // is idempotent: releasing an unknown or already-released token is
    // a no-op, keyed on the reservation row's released_at flip.
    Release(ctx context.Context, token string) error

    // CreateOrder inserts the order snapshot and its items, populating
    // the generated ID on the given order.
    CreateOrder(ctx context.Context, o *model.Order) error
}

// Store is the coordinator's storage port.  The production
// implementation wraps database/sql transactions; tests substitute an
// in-memory store.
type Store interface {
    // WithinTx runs fn inside one atomic transaction.  When fn returns
    // an error the transaction rolls back and the error is returned
    // unchanged; otherwise the transaction commits.
    WithinTx(ctx context.Context, fn func(tx Tx) error) error

    // ExpiredOpenCarts lists IDs of OPEN carts whose expires_at has
    // passed, for the background reaper.  Read-only, so it runs outside
    // any transaction.
    ExpiredOpenCarts(ctx context.Context, limit int) ([]uint64, error)
}
