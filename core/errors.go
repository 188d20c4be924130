package core

import "errors"

var (
	// ErrTicketNotFound is returned when no ticket is stored in a context.
	ErrTicketNotFound = errors.New("ticket not found in context")

	// ErrNoDataFormat is returned when a context has neither an override
	// nor a DataFormat to fall back on.
	ErrNoDataFormat = errors.New("no data format configured")

	// ErrNoTicket is returned when serialization is attempted without a ticket.
	ErrNoTicket = errors.New("no ticket to serialize")
)
