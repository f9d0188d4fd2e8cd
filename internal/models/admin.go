package models

import "time"

// Admin represents the authenticated dashboard operator.
type Admin struct {
	Username  string    `json:"username"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	LastLogin time.Time `json:"lastLogin,omitempty"`
}
