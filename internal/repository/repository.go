package repository

import (
	"context"

	"github.com/sakif/voyage/internal/model"
)

// ExperienceRepository is the entity-store surface for experiences, their
// bookmark set, and (via cascade) their comments. Every read returns
// experiences fully joined: author, bookmarkers, and comments resolved.
type ExperienceRepository interface {
	Create(ctx context.Context, exp *model.Experience) error
	GetByID(ctx context.Context, id string) (*model.Experience, error)
	ListAll(ctx context.Context) ([]model.Experience, error)
	ListByType(ctx context.Context, t model.ExperienceType) ([]model.Experience, error)
	ListByCountry(ctx context.Context, country string) ([]model.Experience, error)
	ListByCity(ctx context.Context, country, city string) ([]model.Experience, error)

	// Delete removes the experience together with its comments, album rows,
	// and bookmark entries in one transaction.
	Delete(ctx context.Context, id string) error

	// ToggleBookmark flips the (userID, experienceID) membership in the
	// bookmark set. Returns true when the pair is bookmarked after the call.
	ToggleBookmark(ctx context.Context, userID, experienceID string) (bool, error)
}

// CommentRepository stores comments. There is no update or standalone delete:
// comments are immutable and disappear only with their experience.
//
// The method names carry the entity suffix because one sqlite.DB implements
// all three repositories — Create is taken by the experience interface.
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	ListComments(ctx context.Context) ([]model.Comment, error)
	ListCommentsByAuthor(ctx context.Context, userID string) ([]model.Comment, error)
	ListCommentsByExperience(ctx context.Context, experienceID string) ([]model.Comment, error)
}

// UserRepository stores traveller accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// UpsertGitHub creates or refreshes the account linked to user.GitHubID.
	// After the call user.ID is populated.
	UpsertGitHub(ctx context.Context, user *model.User) error
}
