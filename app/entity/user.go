package entity

import "time"

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Role        string `json:"role,omitempty"`
}

const MaxSavedCredentials = 5

// SavedCredential backs login auto-fill. Passwords are never stored.
type SavedCredential struct {
	ID         uint64
	Email      string
	LastUsedAt time.Time
	CreatedAt  time.Time
}

type Notification struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Type      string     `json:"notification_type"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
