// internal/domain/models/project.go
package models

import (
	"strings"
	"time"
)

// Member is a denormalized snapshot of a UserProfile embedded in a project.
type Member struct {
	Email    string   `bson:"email" json:"email"`
	Role     Role     `bson:"role" json:"role"`
	UID      string   `bson:"uid" json:"uid"`
	UserType UserType `bson:"user_type" json:"user_type"`
	Status   string   `bson:"status" json:"status"`
}

// Project groups members and is referenced by tickets through its name.
type Project struct {
	ID          string    `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	NameCI      string    `bson:"name_ci" json:"-"` // trimmed, lowercased; uniqueness key
	Description string    `bson:"description" json:"description"`
	Members     []Member  `bson:"members" json:"members"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// MemberByUID returns the member with the given uid.
func (p Project) MemberByUID(uid string) (Member, bool) {
	for _, m := range p.Members {
		if m.UID == uid {
			return m, true
		}
	}
	return Member{}, false
}

// HasEmail reports whether any member uses email (case-insensitive).
func (p Project) HasEmail(email string) bool {
	for _, m := range p.Members {
		if strings.EqualFold(m.Email, email) {
			return true
		}
	}
	return false
}
