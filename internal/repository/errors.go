// Package repository implements data access over MySQL.  This file
// defines error values reused across repositories.  These sentinel
// values let handlers distinguish failure scenarios without inspecting
// driver errors.
package repository

import (
    "errors"

    "github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrEventNotFound indicates that an event was not located (or is
// soft-deleted).
var ErrEventNotFound = errors.New("event not found")

// ErrTicketTypeNotFound indicates that a ticket tier was not located
// (or is retired).
var ErrTicketTypeNotFound = errors.New("ticket type not found")

// ErrOrderNotFound indicates that an order was not located for the
// requesting user.
var ErrOrderNotFound = errors.New("order not found")

// isDuplicateKey reports whether err is a MySQL duplicate-key error
// (error 1062).  Unique-constraint violations are how the schema
// surfaces create-if-absent races, so callers translate this into a
// domain conflict instead of bubbling the driver error.
func isDuplicateKey(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == 1062
}
