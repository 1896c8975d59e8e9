package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// EventRepo provides CRUD operations for events and their likes.
// Events are soft-deleted: rows keep existing so orders and ticket
// tiers retain valid references.  Public listings are restricted to
// SCHEDULED and LIVE events.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, uuid, user_id, title, description, category, status, starts_at, deleted_at, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
    var (
        e         model.Event
        desc      sql.NullString
        deletedAt sql.NullTime
    )
    err := row.Scan(&e.ID, &e.UUID, &e.UserID, &e.Title, &desc, &e.Category,
        &e.Status, &e.StartsAt, &deletedAt, &e.CreatedAt, &e.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if desc.Valid {
        e.Description = desc.String
    }
    if deletedAt.Valid {
        t := deletedAt.Time
        e.DeletedAt = &t
    }
    return &e, nil
}

// Create inserts a new event for the given manager and populates the
// generated ID, UUID and DB-default fields on the returned struct.
func (r *EventRepo) Create(ctx context.Context, userID uint64, title, description, category string, startsAt time.Time) (*model.Event, error) {
    id := uuid.NewString()
    const q = `INSERT INTO events (uuid, user_id, title, description, category, starts_at) VALUES (?, ?, ?, ?, ?, ?)`
    if _, err := r.db.ExecContext(ctx, q, id, userID, title, description, category, startsAt.UTC()); err != nil {
        return nil, err
    }
    return r.GetByUUID(ctx, id)
}

// GetByUUID returns a single non-deleted event by its public identifier.
func (r *EventRepo) GetByUUID(ctx context.Context, eventUUID string) (*model.Event, error) {
    const q = `SELECT ` + eventColumns + ` FROM events WHERE uuid = ? AND deleted_at IS NULL`
    e, err := scanEvent(r.db.QueryRowContext(ctx, q, eventUUID))
    if err == sql.ErrNoRows {
        return nil, ErrEventNotFound
    }
    return e, err
}

// GetByID returns a single non-deleted event by its internal identifier.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
    const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ? AND deleted_at IS NULL`
    e, err := scanEvent(r.db.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return nil, ErrEventNotFound
    }
    return e, err
}

// List returns browsable events (SCHEDULED or LIVE, not deleted),
// newest starts_at first, optionally filtered by category.  take bounds
// the page size; cursor is the uuid of the last event of the previous
// page and pages by keyset, so concurrent inserts never shift results.
// The returned cursor is empty once the final page is reached.
func (r *EventRepo) List(ctx context.Context, category string, take int, cursor string) ([]model.Event, string, error) {
    if take <= 0 || take > 100 {
        take = 20
    }
    args := []interface{}{}
    q := `SELECT ` + eventColumns + ` FROM events
          WHERE deleted_at IS NULL AND status IN ('SCHEDULED','LIVE')`
    if category != "" {
        q += ` AND category = ?`
        args = append(args, category)
    }
    if cursor != "" {
        // Resolve the cursor row so the keyset condition can use its
        // sort key. An unknown cursor reads as "from the beginning".
        var cs time.Time
        var cid uint64
        err := r.db.QueryRowContext(ctx,
            `SELECT starts_at, id FROM events WHERE uuid = ?`, cursor).Scan(&cs, &cid)
        if err == nil {
            q += ` AND (starts_at < ? OR (starts_at = ? AND id > ?))`
            args = append(args, cs, cs, cid)
        } else if err != sql.ErrNoRows {
            return nil, "", err
        }
    }
    q += ` ORDER BY starts_at DESC, id ASC LIMIT ?`
    args = append(args, take+1)

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, "", err
    }
    defer rows.Close()

    events := make([]model.Event, 0, take)
    for rows.Next() {
        e, err := scanEvent(rows)
        if err != nil {
            return nil, "", err
        }
        events = append(events, *e)
    }
    if err := rows.Err(); err != nil {
        return nil, "", err
    }
    next := ""
    if len(events) > take {
        events = events[:take]
        next = events[take-1].UUID
    }
    return events, next, nil
}

// Update modifies the mutable fields of an event owned by userID.  It
// returns ErrEventNotFound when the event does not exist and
// ErrForbidden when it belongs to someone else.
func (r *EventRepo) Update(ctx context.Context, eventUUID string, userID uint64, title, description, category, status string, startsAt time.Time) (*model.Event, error) {
    e, err := r.GetByUUID(ctx, eventUUID)
    if err != nil {
        return nil, err
    }
    if e.UserID != userID {
        return nil, ErrForbidden
    }
    const q = `UPDATE events SET title=?, description=?, category=?, status=?, starts_at=? WHERE id=? AND deleted_at IS NULL`
    if _, err := r.db.ExecContext(ctx, q, title, description, category, status, startsAt.UTC(), e.ID); err != nil {
        return nil, err
    }
    return r.GetByUUID(ctx, eventUUID)
}

// SoftDelete marks an event deleted.  Ownership is enforced the same
// way as Update.
func (r *EventRepo) SoftDelete(ctx context.Context, eventUUID string, userID uint64) error {
    e, err := r.GetByUUID(ctx, eventUUID)
    if err != nil {
        return err
    }
    if e.UserID != userID {
        return ErrForbidden
    }
    _, err = r.db.ExecContext(ctx,
        `UPDATE events SET deleted_at = UTC_TIMESTAMP() WHERE id = ? AND deleted_at IS NULL`, e.ID)
    return err
}

// ToggleLike likes the event on behalf of userID, or removes the like
// when it already exists.  The (event, user) pair is guarded by a
// unique key, so the insert doubles as the existence check: a duplicate
// key means "already liked" and flips to a delete.  Returns true when
// the event is liked after the call.
func (r *EventRepo) ToggleLike(ctx context.Context, eventID, userID uint64) (bool, error) {
    _, err := r.db.ExecContext(ctx,
        `INSERT INTO event_likes (event_id, user_id) VALUES (?, ?)`, eventID, userID)
    if err == nil {
        return true, nil
    }
    if !isDuplicateKey(err) {
        return false, err
    }
    _, err = r.db.ExecContext(ctx,
        `DELETE FROM event_likes WHERE event_id = ? AND user_id = ?`, eventID, userID)
    return false, err
}

// Liker is one user who liked an event.
type Liker struct {
    UserID uint64 `json:"user_id"`
    Email  string `json:"email"`
}

// ListLikes returns the users who like the event, oldest like first.
func (r *EventRepo) ListLikes(ctx context.Context, eventID uint64) ([]Liker, error) {
    const q = `SELECT u.id, u.email
               FROM event_likes l
               JOIN users u ON u.id = l.user_id
               WHERE l.event_id = ?
               ORDER BY l.created_at ASC`
    rows, err := r.db.QueryContext(ctx, q, eventID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    likers := make([]Liker, 0)
    for rows.Next() {
        var l Liker
        if err := rows.Scan(&l.UserID, &l.Email); err != nil {
            return nil, err
        }
        likers = append(likers, l)
    }
    return likers, rows.Err()
}
