package models

import "time"

// User is a referenced identity. Identity verification is external;
// the store only keeps the lookup records issues point at.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
