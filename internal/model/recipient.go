package model

import (
	"fmt"
	"time"
)

// Recipient represents a user marketing emails can be sent to
type Recipient struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DisplayName returns the recipient's full name with address
func (r *Recipient) DisplayName() string {
	return fmt.Sprintf("%s %s (%s)", r.FirstName, r.LastName, r.Email)
}
