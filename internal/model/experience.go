// Package model defines the data structures used throughout the application.
package model

import "time"

// ExperienceType is the fixed category an experience belongs to.
//
// WHY A NAMED STRING TYPE (not just string)?
// Defining `type ExperienceType string` gives us a place to hang the valid-value
// check (Valid below) and makes function signatures self-documenting:
// ListByType(t ExperienceType) can't silently receive a country name.
// The underlying type is still string, so JSON encoding needs no custom code.
type ExperienceType string

const (
	TypeAdventure ExperienceType = "adventure"
	TypeCulture   ExperienceType = "culture"
	TypeFood      ExperienceType = "food"
	TypeNature    ExperienceType = "nature"
	TypeNightlife ExperienceType = "nightlife"
	TypeWellness  ExperienceType = "wellness"
)

// ExperienceTypes lists every valid category, in display order.
var ExperienceTypes = []ExperienceType{
	TypeAdventure, TypeCulture, TypeFood, TypeNature, TypeNightlife, TypeWellness,
}

// Valid reports whether t is one of the defined categories.
// Filter and submission inputs are rejected up front when this is false,
// rather than silently matching zero rows on a typo.
func (t ExperienceType) Valid() bool {
	for _, known := range ExperienceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Location is the value object describing where an experience took place.
// Country and city are matched exactly (case-sensitive) by the filters.
type Location struct {
	Country   string  `json:"country"`
	City      string  `json:"city"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Experience represents a user-authored travel post.
//
// TWO KINDS OF FIELDS:
// The first group is what the experiences table stores directly. The second
// group (Author, BookmarkedBy, Comments) is resolved by the repository on
// every read — the API always returns experiences fully joined.
//
// WHY Author *User (a pointer)?
// Deleting a user does not cascade-delete their experiences, so the author
// reference can dangle. Readers must tolerate that: the repository LEFT JOINs
// the users table and leaves Author nil when the row is gone. nil encodes to
// JSON null, which is exactly what clients should see for an orphaned post.
type Experience struct {
	ID             string         `json:"id"`
	AuthorID       string         `json:"authorId"`
	Title          string         `json:"title"`
	Caption        string         `json:"caption"`
	TextBody       string         `json:"textBody"`
	Photo          string         `json:"photo"`      // primary photo URL
	PhotoAlbum     []string       `json:"photoAlbum"` // ordered album URLs
	ExperienceType ExperienceType `json:"experienceType"`
	Location       Location       `json:"location"`
	CreatedAt      time.Time      `json:"createdAt"`

	// Joined relationships, populated on read.
	Author       *User     `json:"author"`       // nil when the author account is gone
	BookmarkedBy []User    `json:"bookmarkedBy"` // no duplicates — it's a set
	Comments     []Comment `json:"comments"`     // ordered by creation time
}
