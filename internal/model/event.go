package model

import "time"

// Event statuses.  Only SCHEDULED and LIVE events appear in public
// listings; FINISHED and CANCELLED events stay queryable by their
// manager.
const (
    EventScheduled = "SCHEDULED"
    EventLive      = "LIVE"
    EventFinished  = "FINISHED"
    EventCancelled = "CANCELLED"
)

// Event represents a sellable event as stored in the `events` table.
// Events are soft-deleted: DeletedAt is set instead of removing the
// row so historical orders keep a valid reference.
//
// Fields:
//  ID          – primary key identifier.
//  UUID        – public identifier exposed through the API.
//  UserID      – manager who owns the event.
//  Title       – display title.
//  Description – optional long description.
//  Category    – one of MUSIC, SPORT, THEATRE, CONFERENCE, OTHER.
//  Status      – current state of the event.
//  StartsAt    – when the event takes place (UTC).
//  DeletedAt   – soft-delete timestamp (nil while visible).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
    ID          uint64     // events.id
    UUID        string     // events.uuid
    UserID      uint64     // events.user_id
    Title       string     // events.title
    Description string     // events.description
    Category    string     // events.category
    Status      string     // events.status
    StartsAt    time.Time  // events.starts_at
    DeletedAt   *time.Time // events.deleted_at (nullable)
    CreatedAt   time.Time  // events.created_at
    UpdatedAt   time.Time  // events.updated_at
}

// EventCategories lists the accepted category values in the order they
// appear in the schema enum.
var EventCategories = []string{"MUSIC", "SPORT", "THEATRE", "CONFERENCE", "OTHER"}

// ValidCategory reports whether s is one of the schema's category values.
func ValidCategory(s string) bool {
    for _, c := range EventCategories {
        if c == s {
            return true
        }
    }
    return false
}
