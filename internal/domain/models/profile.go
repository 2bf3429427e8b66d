// internal/domain/models/profile.go
package models

import (
	"strings"
	"time"
)

// TempIDPrefix marks profile keys assigned before a real account exists.
const TempIDPrefix = "temp_"

// IsTemporaryID reports whether id is a synthetic pre-registration key.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// UserProfile is the per-account document in the "users" collection.
//
// Projects holds project ids (set semantics). Project holds the matching
// project names in the same order and is nil for clients without projects.
type UserProfile struct {
	ID           string     `bson:"_id" json:"id"`
	Email        string     `bson:"email" json:"email"`
	Role         Role       `bson:"role" json:"role"`
	UserType     UserType   `bson:"user_type" json:"user_type"`
	Status       string     `bson:"status" json:"status"` // active | pending | disabled
	Projects     []string   `bson:"projects" json:"projects"`
	Project      []string   `bson:"project" json:"project"`
	PasswordHash string     `bson:"password_hash,omitempty" json:"-"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	CreatedBy    string     `bson:"created_by,omitempty" json:"created_by,omitempty"`
	UpdatedAt    *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
	UpdatedBy    string     `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
}

// HasProject reports whether the profile lists the project id.
func (p UserProfile) HasProject(projectID string) bool {
	for _, id := range p.Projects {
		if id == projectID {
			return true
		}
	}
	return false
}
