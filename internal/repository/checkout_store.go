package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/service"
)

// CheckoutStore is the MySQL implementation of the checkout
// coordinator's storage port.  All state the coordinator touches
// (carts, line items, sold counters, reservation rows) is mutated
// here, and only through conditional statements whose rows-affected
// count decides the outcome.  Driver errors are translated into the
// service package's sentinels at this boundary.
type CheckoutStore struct {
    db *sql.DB
}

// NewCheckoutStore returns a CheckoutStore bound to the given database.
func NewCheckoutStore(db *sql.DB) *CheckoutStore { return &CheckoutStore{db: db} }

// WithinTx runs fn inside one transaction.  Any error from fn rolls
// the transaction back and is returned unchanged; otherwise the
// transaction commits.
func (s *CheckoutStore) WithinTx(ctx context.Context, fn func(tx service.Tx) error) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(&checkoutTx{tx: tx}); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// ExpiredOpenCarts lists OPEN carts whose expires_at has passed, for
// the background reaper.
func (s *CheckoutStore) ExpiredOpenCarts(ctx context.Context, limit int) ([]uint64, error) {
    if limit <= 0 {
        limit = 100
    }
    rows, err := s.db.QueryContext(ctx,
        `SELECT id FROM carts WHERE status = 'OPEN' AND expires_at <= UTC_TIMESTAMP() LIMIT ?`, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ids []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}

// checkoutTx implements service.Tx over one *sql.Tx.
type checkoutTx struct {
    tx *sql.Tx
}

const cartColumns = `id, user_id, status, total_cents, expires_at, created_at, updated_at`

func scanCart(row interface{ Scan(...any) error }) (*model.Cart, error) {
    var c model.Cart
    err := row.Scan(&c.ID, &c.UserID, &c.Status, &c.TotalCents, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt)
    if err != nil {
        return nil, err
    }
    return &c, nil
}

// OpenCartForUpdate locks and returns the user's OPEN cart.  The row
// lock serializes all checkout operations of one user for the duration
// of the transaction, which is what makes the append-then-increment
// sequence safe against a concurrent buy.
func (t *checkoutTx) OpenCartForUpdate(ctx context.Context, userID uint64) (*model.Cart, error) {
    const q = `SELECT ` + cartColumns + ` FROM carts
               WHERE user_id = ? AND status = 'OPEN' FOR UPDATE`
    c, err := scanCart(t.tx.QueryRowContext(ctx, q, userID))
    if err == sql.ErrNoRows {
        return nil, service.ErrNoOpenCart
    }
    return c, err
}

// CreateOpenCart inserts the user's OPEN cart.  The unique key over
// (user_id, open_marker) makes the insert the atomic create-if-absent
// the one-open-cart invariant requires; a racing duplicate surfaces as
// ErrCartConflict.  MySQL does not poison the transaction on a
// duplicate key, so the caller can refetch in the same transaction.
func (t *checkoutTx) CreateOpenCart(ctx context.Context, userID uint64, expiresAt time.Time) (*model.Cart, error) {
    res, err := t.tx.ExecContext(ctx,
        `INSERT INTO carts (user_id, expires_at) VALUES (?, ?)`, userID, expiresAt.UTC())
    if err != nil {
        if isDuplicateKey(err) {
            return nil, service.ErrCartConflict
        }
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    const sel = `SELECT ` + cartColumns + ` FROM carts WHERE id = ?`
    return scanCart(t.tx.QueryRowContext(ctx, sel, id))
}

// CartForUpdate locks and returns any cart by ID.
func (t *checkoutTx) CartForUpdate(ctx context.Context, cartID uint64) (*model.Cart, error) {
    const q = `SELECT ` + cartColumns + ` FROM carts WHERE id = ? FOR UPDATE`
    c, err := scanCart(t.tx.QueryRowContext(ctx, q, cartID))
    if err == sql.ErrNoRows {
        return nil, service.ErrCartNotFound
    }
    return c, err
}

// LineItems returns the cart's line items in insertion order.
func (t *checkoutTx) LineItems(ctx context.Context, cartID uint64) ([]model.LineItem, error) {
    const q = `SELECT id, cart_id, ticket_type_id, qty, unit_price_cents, reservation_token, created_at
               FROM cart_items WHERE cart_id = ? ORDER BY id ASC`
    rows, err := t.tx.QueryContext(ctx, q, cartID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var items []model.LineItem
    for rows.Next() {
        var it model.LineItem
        if err := rows.Scan(&it.ID, &it.CartID, &it.TicketTypeID, &it.Qty,
            &it.UnitPriceCents, &it.ReservationToken, &it.CreatedAt); err != nil {
            return nil, err
        }
        items = append(items, it)
    }
    return items, rows.Err()
}

// AppendLineItem inserts a line item and populates its generated ID.
func (t *checkoutTx) AppendLineItem(ctx context.Context, item *model.LineItem) error {
    const q = `INSERT INTO cart_items (cart_id, ticket_type_id, qty, unit_price_cents, reservation_token)
               VALUES (?, ?, ?, ?, ?)`
    res, err := t.tx.ExecContext(ctx, q, item.CartID, item.TicketTypeID, item.Qty,
        item.UnitPriceCents, item.ReservationToken)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    item.ID = uint64(id)
    return nil
}

// AddToCartTotal bumps the running total, conditional on the cart
// still being OPEN.  Zero rows affected means the cart left OPEN since
// it was resolved, so the append must not stand: ErrCartClosed rolls
// the whole transaction back.
func (t *checkoutTx) AddToCartTotal(ctx context.Context, cartID uint64, deltaCents uint64) error {
    res, err := t.tx.ExecContext(ctx,
        `UPDATE carts SET total_cents = total_cents + ? WHERE id = ? AND status = 'OPEN'`,
        deltaCents, cartID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return service.ErrCartClosed
    }
    return nil
}

// CloseCart flips OPEN -> CLOSED and clears the open marker so the
// user may open a new cart.  The status guard makes the transition
// single-shot: a second close affects zero rows.
func (t *checkoutTx) CloseCart(ctx context.Context, cartID uint64) error {
    return t.transition(ctx, cartID, model.CartClosed)
}

// CancelCart flips OPEN -> CANCELLED with the same discipline.
func (t *checkoutTx) CancelCart(ctx context.Context, cartID uint64) error {
    return t.transition(ctx, cartID, model.CartCancelled)
}

func (t *checkoutTx) transition(ctx context.Context, cartID uint64, to string) error {
    res, err := t.tx.ExecContext(ctx,
        `UPDATE carts SET status = ?, open_marker = NULL WHERE id = ? AND status = 'OPEN'`,
        to, cartID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return service.ErrCartClosed
    }
    return nil
}

// TicketType loads a non-retired tier for the add-to-cart price
// snapshot.
func (t *checkoutTx) TicketType(ctx context.Context, id uint64) (*model.TicketType, error) {
    const q = `SELECT ` + ticketTypeColumns + ` FROM ticket_types
               WHERE id = ? AND retired_at IS NULL`
    tt, err := scanTicketType(t.tx.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return nil, service.ErrTicketTypeNotFound
    }
    return tt, err
}

// Reserve performs the conditional inventory decrement: sold moves
// forward only while sold+qty stays within capacity, in one statement,
// so two racing reservations can never both pass the check.
// The reservation row ties the decrement to a token for later release.
func (t *checkoutTx) Reserve(ctx context.Context, ticketTypeID, cartID uint64, qty uint32, token string) error {
    res, err := t.tx.ExecContext(ctx,
        `UPDATE ticket_types SET sold = sold + ?
         WHERE id = ? AND retired_at IS NULL AND sold + ? <= capacity`,
        qty, ticketTypeID, qty)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return service.ErrOutOfStock
    }
    _, err = t.tx.ExecContext(ctx,
        `INSERT INTO ticket_reservations (token, ticket_type_id, cart_id, qty) VALUES (?, ?, ?, ?)`,
        token, ticketTypeID, cartID, qty)
    return err
}

// Release returns a reservation's quantity to its tier.  The
// released_at flip is the idempotency gate: only the call that wins
// the flip performs the decrement, every later call affects zero
// reservation rows and stops.
func (t *checkoutTx) Release(ctx context.Context, token string) error {
    res, err := t.tx.ExecContext(ctx,
        `UPDATE ticket_reservations SET released_at = UTC_TIMESTAMP()
         WHERE token = ? AND released_at IS NULL`, token)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return nil // unknown or already released: no-op
    }
    _, err = t.tx.ExecContext(ctx,
        `UPDATE ticket_types tt
         JOIN ticket_reservations tr ON tr.ticket_type_id = tt.id
         SET tt.sold = tt.sold - tr.qty
         WHERE tr.token = ? AND tt.sold >= tr.qty`, token)
    return err
}

// CreateOrder inserts the order snapshot and its items, populating the
// generated ID.
func (t *checkoutTx) CreateOrder(ctx context.Context, o *model.Order) error {
    const q = `INSERT INTO orders (uuid, user_id, cart_id, status, total_cents) VALUES (?, ?, ?, ?, ?)`
    res, err := t.tx.ExecContext(ctx, q, o.UUID, o.UserID, o.CartID, o.Status, o.TotalCents)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    o.ID = uint64(id)
    if len(o.Items) == 0 {
        return nil
    }
    query := `INSERT INTO order_items (order_id, ticket_type_id, qty, unit_price_cents) VALUES `
    args := make([]interface{}, 0, len(o.Items)*4)
    for i := range o.Items {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?)"
        o.Items[i].OrderID = o.ID
        args = append(args, o.ID, o.Items[i].TicketTypeID, o.Items[i].Qty, o.Items[i].UnitPriceCents)
    }
    _, err = t.tx.ExecContext(ctx, query, args...)
    return err
}
