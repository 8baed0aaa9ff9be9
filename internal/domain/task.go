package domain

import "time"

// Task is the work item created when a ticket is converted. The broader task
// board lives outside this service; only the conversion linkage is kept here.
type Task struct {
	ID        string
	ProjectID string
	TicketID  string
	Title     string
	CreatedAt time.Time
}
