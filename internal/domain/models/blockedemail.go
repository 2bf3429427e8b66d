// internal/domain/models/blockedemail.go
package models

import "time"

// BlockedEmail prevents an address from being added as a member until removed.
type BlockedEmail struct {
	Email     string    `bson:"_id" json:"email"`
	BlockedAt time.Time `bson:"blocked_at" json:"blocked_at"`
	BlockedBy string    `bson:"blocked_by,omitempty" json:"blocked_by,omitempty"`
}
