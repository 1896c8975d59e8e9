package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"
)

// OrderRepo provides read access to completed orders and the
// administrative refund transition.  Orders are created exclusively by
// the checkout store at buy time; nothing here inserts one.
type OrderRepo struct {
    db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// OrderDetail is an order with its line items, as returned to the
// order history endpoints.
type OrderDetail struct {
    UUID       string          `json:"uuid"`
    Status     string          `json:"status"`
    TotalCents uint64          `json:"total_cents"`
    CreatedAt  time.Time       `json:"created_at"`
    Items      []OrderItemView `json:"line_items"`
}

// OrderItemView is one line of an order detail.
type OrderItemView struct {
    TicketTypeID   uint64 `json:"ticket_type_id"`
    Qty            uint32 `json:"qty"`
    UnitPriceCents uint32 `json:"unit_price_cents"`
}

// GetByUUIDForUser returns a single order belonging to the given user.
// Restricting on the user enforces ownership; ErrOrderNotFound covers
// both "no such order" and "someone else's order" so the API does not
// leak existence.
func (r *OrderRepo) GetByUUIDForUser(ctx context.Context, orderUUID string, userID uint64) (*OrderDetail, error) {
    const q = `SELECT id, uuid, status, total_cents, created_at
               FROM orders WHERE uuid = ? AND user_id = ?`
    var (
        id  uint64
        det OrderDetail
    )
    err := r.db.QueryRowContext(ctx, q, orderUUID, userID).
        Scan(&id, &det.UUID, &det.Status, &det.TotalCents, &det.CreatedAt)
    if err == sql.ErrNoRows {
        return nil, ErrOrderNotFound
    }
    if err != nil {
        return nil, err
    }
    det.Items = []OrderItemView{}
    const itemQ = `SELECT ticket_type_id, qty, unit_price_cents
                   FROM order_items WHERE order_id = ? ORDER BY id ASC`
    rows, err := r.db.QueryContext(ctx, itemQ, id)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var it OrderItemView
        if err := rows.Scan(&it.TicketTypeID, &it.Qty, &it.UnitPriceCents); err != nil {
            return nil, err
        }
        det.Items = append(det.Items, it)
    }
    return &det, rows.Err()
}

// ListByUser returns all of the user's orders, newest first, each with
// its line items.  Items for the whole page are fetched in a single
// query and distributed by order ID.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]OrderDetail, error) {
    const q = `SELECT id, uuid, status, total_cents, created_at
               FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    details := make([]OrderDetail, 0)
    ids := make([]uint64, 0)
    index := make(map[uint64]int)
    for rows.Next() {
        var (
            id  uint64
            det OrderDetail
        )
        if err := rows.Scan(&id, &det.UUID, &det.Status, &det.TotalCents, &det.CreatedAt); err != nil {
            return nil, err
        }
        det.Items = []OrderItemView{}
        index[id] = len(details)
        details = append(details, det)
        ids = append(ids, id)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if len(details) == 0 {
        return details, nil
    }

    placeholders := make([]string, len(ids))
    args := make([]interface{}, len(ids))
    for i, id := range ids {
        placeholders[i] = "?"
        args[i] = id
    }
    itemQ := `SELECT order_id, ticket_type_id, qty, unit_price_cents
              FROM order_items
              WHERE order_id IN (` + strings.Join(placeholders, ",") + `)
              ORDER BY order_id, id`
    irows, err := r.db.QueryContext(ctx, itemQ, args...)
    if err != nil {
        return nil, err
    }
    defer irows.Close()
    for irows.Next() {
        var (
            oid uint64
            it  OrderItemView
        )
        if err := irows.Scan(&oid, &it.TicketTypeID, &it.Qty, &it.UnitPriceCents); err != nil {
            return nil, err
        }
        if i, ok := index[oid]; ok {
            details[i].Items = append(details[i].Items, it)
        }
    }
    return details, irows.Err()
}

// Refund transitions an order CLOSED -> REFUNDED and returns its
// reservations to inventory.  Only the owner or a manager may call it
// (enforced by the handler).  The whole operation is one transaction:
// the conditional status flip is the single-shot gate, and each
// reservation release reuses the released_at idempotency flip, so a
// refund can never restore inventory twice even when retried.
func (r *OrderRepo) Refund(ctx context.Context, orderUUID string, userID uint64, manager bool) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    var (
        id      uint64
        cartID  uint64
        ownerID uint64
    )
    err = tx.QueryRowContext(ctx,
        `SELECT id, cart_id, user_id FROM orders WHERE uuid = ? FOR UPDATE`, orderUUID).
        Scan(&id, &cartID, &ownerID)
    if err == sql.ErrNoRows {
        return ErrOrderNotFound
    }
    if err != nil {
        return err
    }
    if !manager && ownerID != userID {
        return ErrForbidden
    }

    res, err := tx.ExecContext(ctx,
        `UPDATE orders SET status = 'REFUNDED' WHERE id = ? AND status = 'CLOSED'`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrOrderNotFound // already refunded
    }

    // Release every unreleased reservation of the order's cart.
    if _, err := tx.ExecContext(ctx,
        `UPDATE ticket_types tt
         JOIN ticket_reservations tr ON tr.ticket_type_id = tt.id
         SET tt.sold = tt.sold - tr.qty
         WHERE tr.cart_id = ? AND tr.released_at IS NULL AND tt.sold >= tr.qty`, cartID); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx,
        `UPDATE ticket_reservations SET released_at = UTC_TIMESTAMP()
         WHERE cart_id = ? AND released_at IS NULL`, cartID); err != nil {
        return err
    }

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
