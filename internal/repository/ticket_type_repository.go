package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// TicketTypeRepo manages ticket tiers outside the checkout path:
// creation, listing, price/name changes and soft retirement.  The
// sold counter is never written here; all sold mutations go through
// the checkout store's conditional reserve/release statements.
type TicketTypeRepo struct {
    db *sql.DB
}

// NewTicketTypeRepo constructs a TicketTypeRepo given a DB handle.
func NewTicketTypeRepo(db *sql.DB) *TicketTypeRepo { return &TicketTypeRepo{db: db} }

const ticketTypeColumns = `id, event_id, name, price_cents, capacity, sold, retired_at, created_at, updated_at`

func scanTicketType(row interface{ Scan(...any) error }) (*model.TicketType, error) {
    var (
        t         model.TicketType
        retiredAt sql.NullTime
    )
    err := row.Scan(&t.ID, &t.EventID, &t.Name, &t.PriceCents, &t.Capacity,
        &t.Sold, &retiredAt, &t.CreatedAt, &t.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if retiredAt.Valid {
        rt := retiredAt.Time
        t.RetiredAt = &rt
    }
    return &t, nil
}

// Create inserts a ticket tier for an event and returns the stored row.
func (r *TicketTypeRepo) Create(ctx context.Context, eventID uint64, name string, priceCents, capacity uint32) (*model.TicketType, error) {
    const q = `INSERT INTO ticket_types (event_id, name, price_cents, capacity) VALUES (?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, eventID, name, priceCents, capacity)
    if err != nil {
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    return r.GetByID(ctx, uint64(id))
}

// GetByID returns a tier regardless of retirement, so managers can
// still inspect retired tiers and orders can resolve their references.
func (r *TicketTypeRepo) GetByID(ctx context.Context, id uint64) (*model.TicketType, error) {
    const q = `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE id = ?`
    t, err := scanTicketType(r.db.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return nil, ErrTicketTypeNotFound
    }
    return t, err
}

// ListByEvent returns the event's active (non-retired) tiers in
// creation order.
func (r *TicketTypeRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.TicketType, error) {
    const q = `SELECT ` + ticketTypeColumns + ` FROM ticket_types
               WHERE event_id = ? AND retired_at IS NULL
               ORDER BY id ASC`
    rows, err := r.db.QueryContext(ctx, q, eventID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    types := make([]model.TicketType, 0)
    for rows.Next() {
        t, err := scanTicketType(rows)
        if err != nil {
            return nil, err
        }
        types = append(types, *t)
    }
    return types, rows.Err()
}

// Update changes a tier's name and price.  Capacity can only grow:
// shrinking below the sold count would break the sold <= capacity
// invariant, so the statement guards capacity >= sold and zero rows
// affected reports the tier as not found (or the capacity invalid).
func (r *TicketTypeRepo) Update(ctx context.Context, id uint64, name string, priceCents, capacity uint32) (*model.TicketType, error) {
    const q = `UPDATE ticket_types
               SET name = ?, price_cents = ?, capacity = ?
               WHERE id = ? AND retired_at IS NULL AND sold <= ?`
    res, err := r.db.ExecContext(ctx, q, name, priceCents, capacity, id, capacity)
    if err != nil {
        return nil, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return nil, err
    }
    if n == 0 {
        return nil, ErrTicketTypeNotFound
    }
    return r.GetByID(ctx, id)
}

// Retire soft-retires a tier.  Retired tiers reject new reservations
// but keep their rows so existing line items stay resolvable.
func (r *TicketTypeRepo) Retire(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE ticket_types SET retired_at = UTC_TIMESTAMP() WHERE id = ? AND retired_at IS NULL`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrTicketTypeNotFound
    }
    return nil
}
