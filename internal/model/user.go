package model

import "time"

// User rows live in the externally-initialized users table; this service
// only reads them.
type User struct {
	UserID      int64     `db:"user_id"`
	PhoneNumber string    `db:"phone_number"`
	UserName    string    `db:"user_name"`
	Email       string    `db:"email"`
	Role        string    `db:"role"`
	SMSEnabled  bool      `db:"sms_enabled"`
	CreatedAt   time.Time `db:"created_at"`
}

// Recipient is the projection of a user a group resolves to.
type Recipient struct {
	UserID      int64  `db:"user_id"`
	PhoneNumber string `db:"phone_number"`
}
