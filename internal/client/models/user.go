// Package models holds data types shared by the client layers.
package models

// User is the profile record returned by the server on login and cached
// locally so the session can be rehydrated across restarts.
type User struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	FullName      string `json:"full_name"`
	Role          string `json:"role"`
	AccountNumber string `json:"account_number"`
	Balance       int64  `json:"balance"`
}
