// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered traveller account.
//
// Users are owned by the registration/login flow. The engagement core (experiences,
// comments, bookmarks) only ever references users — it never mutates them.
//
// WHY PasswordHash WITH json:"-"?
// The `json:"-"` tag tells encoding/json to NEVER serialize this field.
// A bcrypt hash must not leave the server, not even by accident in a joined
// author record. Same for GitHubID — it's an auth implementation detail.
//
// WHY GitHubID *int64 (a pointer)?
// Most users register with email + password and have no GitHub account linked.
// A nil pointer means "no GitHub identity"; 0 would be a (theoretically) valid ID.
// The pointer also maps cleanly onto a nullable INTEGER column.
type User struct {
	ID           string    `json:"id"          db:"id"`
	Email        string    `json:"email"       db:"email"`    // unique across accounts
	Username     string    `json:"username"    db:"username"`
	Bio          string    `json:"bio"         db:"bio"`
	MemberSince  time.Time `json:"memberSince" db:"member_since"`
	UserImage    string    `json:"userImage"   db:"user_image"` // profile picture URL (may be empty)
	PasswordHash string    `json:"-"           db:"password_hash"`
	GitHubID     *int64    `json:"-"           db:"github_id"`
}
