// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, authorizes, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services receive repository INTERFACES, not concrete sqlite types. That is
// what lets the tests in this package run against in-memory mocks, and what
// keeps SQL out of every file here.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/voyage/internal/apperror"
	"github.com/sakif/voyage/internal/model"
	"github.com/sakif/voyage/internal/repository"
	"github.com/sakif/voyage/internal/storage"
)

// Validation constants. Named (not magic numbers) so error messages and tests
// can reference them.
const (
	MaxTitleLength   = 120
	MaxCaptionLength = 280
	MaxBodyLength    = 20000
	MaxAlbumPhotos   = 12
)

// ExperienceService is the core of the app: creation, retrieval, filtering,
// deletion, and bookmarking of travel experiences.
type ExperienceService struct {
	experiences repository.ExperienceRepository
	users       repository.UserRepository
	photos      storage.PhotoStore
	logger      *slog.Logger
}

// NewExperienceService wires the service's dependencies.
func NewExperienceService(
	experiences repository.ExperienceRepository,
	users repository.UserRepository,
	photos storage.PhotoStore,
	logger *slog.Logger,
) *ExperienceService {
	return &ExperienceService{
		experiences: experiences,
		users:       users,
		photos:      photos,
		logger:      logger,
	}
}

// SubmitInput carries the fields of a new experience submission.
//
// NOTE WHAT IS ABSENT: there is no author or email field. Authorship comes
// exclusively from the verified identity resolved by the auth middleware —
// a client-supplied author would be an impersonation vector, so the API
// simply has nowhere to put one.
type SubmitInput struct {
	Title          string               `json:"title"`
	Caption        string               `json:"caption"`
	TextBody       string               `json:"textBody"`
	Photo          string               `json:"photo"`      // primary photo URL from a prior upload
	PhotoAlbum     []string             `json:"photoAlbum"` // album URLs from a prior upload
	ExperienceType model.ExperienceType `json:"experienceType"`
	Location       model.Location       `json:"location"`
}

// ListAll returns every experience, fully joined.
func (s *ExperienceService) ListAll(ctx context.Context) ([]model.Experience, error) {
	experiences, err := s.experiences.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/experience: listing all: %w", err)
	}
	return experiences, nil
}

// GetByID returns one experience. NotFound is a normal, reportable outcome —
// it flows to the handler untouched and is never logged as an error.
func (s *ExperienceService) GetByID(ctx context.Context, id string) (*model.Experience, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "experience id is required")
	}
	exp, err := s.experiences.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return exp, nil
}

// ListByType filters by category, exact match.
//
// STRONGLY-TYPED FILTERS:
// The route parameter arrives as a string, but it is rejected here unless it
// names one of the defined categories. A typo'd filter is a 400, not a
// silently empty 200 — the empty result is reserved for "the filter is fine,
// nothing matches it".
func (s *ExperienceService) ListByType(ctx context.Context, t model.ExperienceType) ([]model.Experience, error) {
	if !t.Valid() {
		return nil, apperror.ValidationFailed("experienceType",
			fmt.Sprintf("unknown experience type %q", string(t)))
	}
	experiences, err := s.experiences.ListByType(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("service/experience: listing by type %s: %w", t, err)
	}
	return experiences, nil
}

// ListByCountry filters by location country, exact and case-sensitive.
// An empty result is success with zero items.
func (s *ExperienceService) ListByCountry(ctx context.Context, country string) ([]model.Experience, error) {
	if strings.TrimSpace(country) == "" {
		return nil, apperror.ValidationFailed("country", "country is required")
	}
	experiences, err := s.experiences.ListByCountry(ctx, country)
	if err != nil {
		return nil, fmt.Errorf("service/experience: listing by country %s: %w", country, err)
	}
	return experiences, nil
}

// ListByCity filters by country AND city — both must match exactly.
func (s *ExperienceService) ListByCity(ctx context.Context, country, city string) ([]model.Experience, error) {
	if strings.TrimSpace(country) == "" {
		return nil, apperror.ValidationFailed("country", "country is required")
	}
	if strings.TrimSpace(city) == "" {
		return nil, apperror.ValidationFailed("city", "city is required")
	}
	experiences, err := s.experiences.ListByCity(ctx, country, city)
	if err != nil {
		return nil, fmt.Errorf("service/experience: listing by city %s/%s: %w", country, city, err)
	}
	return experiences, nil
}

// Submit persists a new experience authored by the verified user.
//
// The submitter must resolve to an existing account: a token whose user row
// has since vanished gets Unauthorized, same as no token at all.
func (s *ExperienceService) Submit(ctx context.Context, userID string, input SubmitInput) (*model.Experience, error) {
	author, err := s.resolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := validateSubmission(&input); err != nil {
		return nil, err
	}

	exp := &model.Experience{
		AuthorID:       author.ID,
		Title:          input.Title,
		Caption:        input.Caption,
		TextBody:       input.TextBody,
		Photo:          input.Photo,
		PhotoAlbum:     input.PhotoAlbum,
		ExperienceType: input.ExperienceType,
		Location:       input.Location,
	}

	if err := s.experiences.Create(ctx, exp); err != nil {
		return nil, fmt.Errorf("service/experience: creating experience: %w", err)
	}

	s.logger.Info("experience submitted",
		slog.String("id", exp.ID),
		slog.String("author", author.ID),
		slog.String("type", string(exp.ExperienceType)),
		slog.String("country", exp.Location.Country),
	)

	// The caller gets the stored record, joins included. The collections are
	// empty (it was just created) but present.
	exp.Author = author
	exp.BookmarkedBy = []model.User{}
	exp.Comments = []model.Comment{}
	return exp, nil
}

// Delete removes an experience and cascades its comments and bookmarks.
// Only the author may delete; everyone else gets Forbidden, regardless of
// how politely they ask.
func (s *ExperienceService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return apperror.Unauthorized("valid authentication required")
	}

	exp, err := s.experiences.GetByID(ctx, id)
	if err != nil {
		return err // NotFound flows through untouched
	}

	if exp.AuthorID != userID {
		return apperror.Forbidden("only the author may delete an experience")
	}

	if err := s.experiences.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/experience: deleting %s: %w", id, err)
	}

	s.logger.Info("experience deleted",
		slog.String("id", id),
		slog.String("author", userID),
		slog.Int("comments_removed", len(exp.Comments)),
		slog.Int("bookmarks_removed", len(exp.BookmarkedBy)),
	)
	return nil
}

// ToggleBookmark flips the caller's bookmark on an experience. Idempotent
// membership: toggling twice lands back where it started.
func (s *ExperienceService) ToggleBookmark(ctx context.Context, userID, id string) (bool, error) {
	user, err := s.resolveUser(ctx, userID)
	if err != nil {
		return false, err
	}

	bookmarked, err := s.experiences.ToggleBookmark(ctx, user.ID, id)
	if err != nil {
		if _, isApp := appErr(err); isApp {
			return false, err
		}
		return false, fmt.Errorf("service/experience: toggling bookmark: %w", err)
	}

	return bookmarked, nil
}

// UploadPhoto stores a single image via the object store.
func (s *ExperienceService) UploadPhoto(ctx context.Context, photo storage.Photo) (string, error) {
	return s.photos.UploadPhoto(ctx, photo)
}

// UploadAlbum stores an album via the object store (all-or-nothing).
func (s *ExperienceService) UploadAlbum(ctx context.Context, photos []storage.Photo) ([]string, error) {
	return s.photos.UploadAlbum(ctx, photos)
}

// resolveUser turns a (possibly empty) verified user ID into a stored user.
// Empty ID and dangling ID both come back Unauthorized — from the caller's
// perspective the credential simply doesn't resolve to anyone.
func (s *ExperienceService) resolveUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("valid authentication required")
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if _, isApp := appErr(err); isApp {
			return nil, apperror.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("service/experience: resolving user %s: %w", userID, err)
	}
	return user, nil
}

// validateSubmission normalises and checks submission fields in place.
func validateSubmission(input *SubmitInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Caption = strings.TrimSpace(input.Caption)
	input.Location.Country = strings.TrimSpace(input.Location.Country)
	input.Location.City = strings.TrimSpace(input.Location.City)

	if input.Title == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if len(input.Title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or fewer", MaxTitleLength))
	}
	if len(input.Caption) > MaxCaptionLength {
		return apperror.ValidationFailed("caption",
			fmt.Sprintf("caption must be %d characters or fewer", MaxCaptionLength))
	}
	if len(input.TextBody) > MaxBodyLength {
		return apperror.ValidationFailed("textBody",
			fmt.Sprintf("text body must be %d characters or fewer", MaxBodyLength))
	}
	if !input.ExperienceType.Valid() {
		return apperror.ValidationFailed("experienceType",
			fmt.Sprintf("unknown experience type %q", string(input.ExperienceType)))
	}
	if input.Location.Country == "" {
		return apperror.ValidationFailed("country", "country is required")
	}
	if input.Location.City == "" {
		return apperror.ValidationFailed("city", "city is required")
	}
	if input.Location.Longitude < -180 || input.Location.Longitude > 180 {
		return apperror.ValidationFailed("longitude", "longitude must be between -180 and 180")
	}
	if input.Location.Latitude < -90 || input.Location.Latitude > 90 {
		return apperror.ValidationFailed("latitude", "latitude must be between -90 and 90")
	}
	if len(input.PhotoAlbum) > MaxAlbumPhotos {
		return apperror.ValidationFailed("photoAlbum",
			fmt.Sprintf("album may hold at most %d photos", MaxAlbumPhotos))
	}
	return nil
}
