package model

import "time"

// Reminder is an alarm that fires once its due time has passed.
type Reminder struct {
	// ID is assigned per session and never stored.
	ID   string
	Task string
	Due  time.Time
	// Raw keeps the stored time text when it could not be parsed. Such
	// reminders are never triggered and are written back unchanged.
	Raw      string
	Notified bool
}

// Armed reports whether the reminder has a usable due time.
func (r Reminder) Armed() bool {
	return !r.Due.IsZero()
}

// XPEvent is an append-only ledger entry.
type XPEvent struct {
	Date string
	XP   int
}
