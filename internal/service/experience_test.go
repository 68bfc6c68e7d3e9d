package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"log/slog"

	"github.com/sakif/voyage/internal/apperror"
	"github.com/sakif/voyage/internal/model"
)

// =========================================================================
// MOCK REPOSITORIES
// =========================================================================
//
// Hand-written in-memory fakes of the repository interfaces. The service
// doesn't know or care which implementation it gets — that's the point of
// accepting interfaces. These keep the service tests fast and let us inject
// failures a real database wouldn't produce on demand.

type mockExperienceRepo struct {
	experiences map[string]*model.Experience
	bookmarks   map[string]bool // "userID|experienceID"
	nextID      int
	failWith    error // when set, every method returns this
}

func newMockExperienceRepo() *mockExperienceRepo {
	return &mockExperienceRepo{
		experiences: make(map[string]*model.Experience),
		bookmarks:   make(map[string]bool),
	}
}

func (m *mockExperienceRepo) Create(_ context.Context, exp *model.Experience) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.nextID++
	exp.ID = fmt.Sprintf("exp-%d", m.nextID)
	stored := *exp
	m.experiences[exp.ID] = &stored
	return nil
}

func (m *mockExperienceRepo) GetByID(_ context.Context, id string) (*model.Experience, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	exp, ok := m.experiences[id]
	if !ok {
		return nil, apperror.NotFound("experience", id)
	}
	result := *exp
	return &result, nil
}

func (m *mockExperienceRepo) ListAll(_ context.Context) ([]model.Experience, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	result := make([]model.Experience, 0, len(m.experiences))
	for _, e := range m.experiences {
		result = append(result, *e)
	}
	return result, nil
}

func (m *mockExperienceRepo) ListByType(_ context.Context, t model.ExperienceType) ([]model.Experience, error) {
	result := []model.Experience{}
	for _, e := range m.experiences {
		if e.ExperienceType == t {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockExperienceRepo) ListByCountry(_ context.Context, country string) ([]model.Experience, error) {
	result := []model.Experience{}
	for _, e := range m.experiences {
		if e.Location.Country == country {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockExperienceRepo) ListByCity(_ context.Context, country, city string) ([]model.Experience, error) {
	result := []model.Experience{}
	for _, e := range m.experiences {
		if e.Location.Country == country && e.Location.City == city {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockExperienceRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.experiences[id]; !ok {
		return apperror.NotFound("experience", id)
	}
	delete(m.experiences, id)
	return nil
}

func (m *mockExperienceRepo) ToggleBookmark(_ context.Context, userID, experienceID string) (bool, error) {
	if _, ok := m.experiences[experienceID]; !ok {
		return false, apperror.NotFound("experience", experienceID)
	}
	key := userID + "|" + experienceID
	if m.bookmarks[key] {
		delete(m.bookmarks, key)
		return false, nil
	}
	m.bookmarks[key] = true
	return true, nil
}

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo(users ...*model.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*model.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) UpsertGitHub(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.GitHubID != nil && user.GitHubID != nil && *u.GitHubID == *user.GitHubID {
			user.ID = u.ID
			m.users[u.ID] = user
			return nil
		}
	}
	user.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	m.users[user.ID] = user
	return nil
}

// discard logger for tests — we assert on behaviour, not log output
var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestExperienceService(repo *mockExperienceRepo, users *mockUserRepo) *ExperienceService {
	return NewExperienceService(repo, users, nil, testLogger)
}

var validInput = SubmitInput{
	Title:          "Hiking the Bandarban hills",
	Caption:        "three days, two peaks",
	TextBody:       "We set off before dawn...",
	ExperienceType: model.TypeAdventure,
	Location:       model.Location{Country: "Bangladesh", City: "Bandarban", Longitude: 92.2, Latitude: 22.2},
}

// =========================================================================
// SUBMIT TESTS
// =========================================================================

func TestSubmit(t *testing.T) {
	author := &model.User{ID: "user-1", Email: "rafi@example.com", Username: "rafi"}
	svc := newTestExperienceService(newMockExperienceRepo(), newMockUserRepo(author))

	exp, err := svc.Submit(context.Background(), "user-1", validInput)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if exp.ID == "" {
		t.Error("Submit() did not assign an ID")
	}
	// Authorship comes from the verified identity, nowhere else
	if exp.AuthorID != "user-1" {
		t.Errorf("AuthorID = %q, want %q", exp.AuthorID, "user-1")
	}
	if exp.Author == nil || exp.Author.Username != "rafi" {
		t.Errorf("Author = %+v, want the resolved rafi record", exp.Author)
	}
	// Fresh record: collections present but empty
	if exp.BookmarkedBy == nil || exp.Comments == nil {
		t.Error("Submit() returned nil collections, want empty slices")
	}
}

func TestSubmit_UnknownUser(t *testing.T) {
	svc := newTestExperienceService(newMockExperienceRepo(), newMockUserRepo())

	_, err := svc.Submit(context.Background(), "ghost", validInput)
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Submit() with dangling user error = %v, want ErrUnauthorized", err)
	}
}

func TestSubmit_Validation(t *testing.T) {
	author := &model.User{ID: "user-1", Username: "rafi"}

	tests := []struct {
		name   string
		mutate func(*SubmitInput)
	}{
		{"empty title", func(in *SubmitInput) { in.Title = "  " }},
		{"unknown type", func(in *SubmitInput) { in.ExperienceType = "advnture" }},
		{"missing country", func(in *SubmitInput) { in.Location.Country = "" }},
		{"missing city", func(in *SubmitInput) { in.Location.City = "" }},
		{"longitude out of range", func(in *SubmitInput) { in.Location.Longitude = 181 }},
		{"latitude out of range", func(in *SubmitInput) { in.Location.Latitude = -91 }},
		{"album too large", func(in *SubmitInput) {
			in.PhotoAlbum = make([]string, MaxAlbumPhotos+1)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestExperienceService(newMockExperienceRepo(), newMockUserRepo(author))
			input := validInput
			tt.mutate(&input)

			_, err := svc.Submit(context.Background(), "user-1", input)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Submit() error = %v, want ErrValidation", err)
			}
		})
	}
}

// =========================================================================
// FILTER TESTS
// =========================================================================

func TestListByType_RejectsUnknownType(t *testing.T) {
	svc := newTestExperienceService(newMockExperienceRepo(), newMockUserRepo())

	_, err := svc.ListByType(context.Background(), "beach-parties")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("ListByType() error = %v, want ErrValidation", err)
	}
}

func TestListByCity_EmptyResultIsNotAnError(t *testing.T) {
	svc := newTestExperienceService(newMockExperienceRepo(), newMockUserRepo())

	experiences, err := svc.ListByCity(context.Background(), "Iceland", "Reykjavik")
	if err != nil {
		t.Fatalf("ListByCity() error = %v", err)
	}
	if len(experiences) != 0 {
		t.Errorf("got %d experiences, want 0", len(experiences))
	}
}

// Submit an experience, then find it through every filter it should match.
func TestSubmitThenFilter(t *testing.T) {
	author := &model.User{ID: "user-1", Username: "rafi"}
	svc := newTestExperienceService(newMockExperienceRepo(), newMockUserRepo(author))
	ctx := context.Background()

	created, err := svc.Submit(ctx, "user-1", validInput)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	byType, err := svc.ListByType(ctx, model.TypeAdventure)
	if err != nil {
		t.Fatalf("ListByType: %v", err)
	}
	if len(byType) != 1 || byType[0].ID != created.ID {
		t.Errorf("ListByType missed the new experience: %+v", byType)
	}

	byCountry, err := svc.ListByCountry(ctx, "Bangladesh")
	if err != nil {
		t.Fatalf("ListByCountry: %v", err)
	}
	if len(byCountry) != 1 {
		t.Errorf("ListByCountry = %d results, want 1", len(byCountry))
	}

	byCity, err := svc.ListByCity(ctx, "Bangladesh", "Bandarban")
	if err != nil {
		t.Fatalf("ListByCity: %v", err)
	}
	if len(byCity) != 1 {
		t.Errorf("ListByCity = %d results, want 1", len(byCity))
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestDelete_OnlyAuthor(t *testing.T) {
	author := &model.User{ID: "user-1", Username: "rafi"}
	intruder := &model.User{ID: "user-2", Username: "mallory"}
	repo := newMockExperienceRepo()
	svc := newTestExperienceService(repo, newMockUserRepo(author, intruder))
	ctx := context.Background()

	created, err := svc.Submit(ctx, "user-1", validInput)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Someone else: Forbidden, and the experience survives
	err = svc.Delete(ctx, "user-2", created.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Delete() by non-author error = %v, want ErrForbidden", err)
	}
	if _, err := svc.GetByID(ctx, created.ID); err != nil {
		t.Errorf("experience should still exist after forbidden delete: %v", err)
	}

	// The author: allowed
	if err := svc.Delete(ctx, "user-1", created.ID); err != nil {
		t.Fatalf("Delete() by author error = %v", err)
	}
	if _, err := svc.GetByID(ctx, created.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID after delete error = %v, want ErrNotFound", err)
	}
}

func TestDelete_NoAuth(t *testing.T) {
	svc := newTestExperienceService(newMockExperienceRepo(), newMockUserRepo())

	err := svc.Delete(context.Background(), "", "exp-1")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Delete() without auth error = %v, want ErrUnauthorized", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	author := &model.User{ID: "user-1", Username: "rafi"}
	svc := newTestExperienceService(newMockExperienceRepo(), newMockUserRepo(author))

	err := svc.Delete(context.Background(), "user-1", "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// BOOKMARK TESTS
// =========================================================================

func TestToggleBookmark_RoundTrip(t *testing.T) {
	author := &model.User{ID: "user-1", Username: "rafi"}
	reader := &model.User{ID: "user-2", Username: "mina"}
	svc := newTestExperienceService(newMockExperienceRepo(), newMockUserRepo(author, reader))
	ctx := context.Background()

	created, err := svc.Submit(ctx, "user-1", validInput)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	on, err := svc.ToggleBookmark(ctx, "user-2", created.ID)
	if err != nil {
		t.Fatalf("ToggleBookmark: %v", err)
	}
	if !on {
		t.Error("first toggle = false, want true")
	}

	off, err := svc.ToggleBookmark(ctx, "user-2", created.ID)
	if err != nil {
		t.Fatalf("ToggleBookmark second: %v", err)
	}
	if off {
		t.Error("second toggle = true, want false")
	}
}

func TestToggleBookmark_ExperienceNotFound(t *testing.T) {
	reader := &model.User{ID: "user-2", Username: "mina"}
	svc := newTestExperienceService(newMockExperienceRepo(), newMockUserRepo(reader))

	_, err := svc.ToggleBookmark(context.Background(), "user-2", "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ToggleBookmark() error = %v, want ErrNotFound", err)
	}
}
