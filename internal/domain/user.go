package domain

import "time"

// User is a registered account. Admins additionally manage orders.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the mutually exclusive owner of a cart or order: either an
// authenticated user or an anonymous session id from the X-Session-ID header.
type Identity struct {
	User      *User
	SessionID string
}

// Empty reports whether the request carried no usable identity.
func (i Identity) Empty() bool {
	return i.User == nil && i.SessionID == ""
}
