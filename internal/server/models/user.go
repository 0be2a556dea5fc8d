package models

import "time"

// User is a row of the users table. Email and UserName are stored lower-case;
// PasswordHash is the encoded digest produced by a credentials.Hasher.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	UserName     string
	PasswordHash string
	CreatedAt    time.Time
}
