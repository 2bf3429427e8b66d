// internal/domain/models/ticket.go
package models

import "time"

// Ticket statuses.
const (
	TicketOpen       = "Open"
	TicketInProgress = "In Progress"
	TicketResolved   = "Resolved"
	TicketClosed     = "Closed"
)

// Comment author roles recorded on ticket history.
const (
	AuthorUser     = "user"
	AuthorSystem   = "system"
	AuthorResolver = "resolver"
)

// Assignee identifies the employee a ticket is assigned to.
type Assignee struct {
	Email string `bson:"email" json:"email"`
	Name  string `bson:"name,omitempty" json:"name,omitempty"`
}

// Comment is one entry in a ticket's history.
type Comment struct {
	Message    string    `bson:"message" json:"message"`
	AuthorRole string    `bson:"author_role" json:"author_role"`
	Author     string    `bson:"author,omitempty" json:"author,omitempty"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}

// Ticket is a support request. Project holds the project name, not its id.
type Ticket struct {
	ID          string    `bson:"_id" json:"id"`
	Number      int64     `bson:"ticket_number" json:"ticket_number"`
	Subject     string    `bson:"subject" json:"subject"`
	Description string    `bson:"description" json:"description"`
	Project     string    `bson:"project" json:"project"`
	Module      string    `bson:"module,omitempty" json:"module,omitempty"`
	Category    string    `bson:"category,omitempty" json:"category,omitempty"`
	SubCategory string    `bson:"sub_category,omitempty" json:"sub_category,omitempty"`
	Status      string    `bson:"status" json:"status"`
	AssignedTo  Assignee  `bson:"assigned_to" json:"assigned_to"`
	CreatedBy   string    `bson:"created_by" json:"created_by"`
	Comments    []Comment `bson:"comments" json:"comments"`
	Created     time.Time `bson:"created" json:"created"`
	LastUpdated time.Time `bson:"last_updated" json:"last_updated"`
}
