// Package model defines the data structures used throughout the application.
package model

import "time"

// Comment is a free-text reply attached to an experience.
//
// Comments are immutable once created: there is no update path, and the only
// way a comment disappears is as part of its experience's cascade delete.
// Author is resolved on read like Experience.Author and may be nil if the
// commenting account was deleted.
type Comment struct {
	ID           string    `json:"id"`
	ExperienceID string    `json:"experienceId"`
	AuthorID     string    `json:"authorId"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"createdAt"`

	Author *User `json:"author"`
}
