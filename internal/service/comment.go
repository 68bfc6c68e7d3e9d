package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/voyage/internal/apperror"
	"github.com/sakif/voyage/internal/model"
	"github.com/sakif/voyage/internal/repository"
)

// MaxCommentLength bounds a comment body.
const MaxCommentLength = 2000

// CommentService is the simpler sibling of ExperienceService: comments are
// created and listed, never updated, and die only with their experience.
type CommentService struct {
	comments repository.CommentRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

// NewCommentService wires the service's dependencies.
func NewCommentService(
	comments repository.CommentRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{comments: comments, users: users, logger: logger}
}

// ListAll returns every comment with authors resolved.
func (s *CommentService) ListAll(ctx context.Context) ([]model.Comment, error) {
	comments, err := s.comments.ListComments(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/comment: listing all: %w", err)
	}
	return comments, nil
}

// ListByAuthor returns one user's comments.
func (s *CommentService) ListByAuthor(ctx context.Context, userID string) ([]model.Comment, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("author", "author id is required")
	}
	comments, err := s.comments.ListCommentsByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/comment: listing by author %s: %w", userID, err)
	}
	return comments, nil
}

// ListByExperience returns an experience's comments in creation order.
// After a cascade delete this is an empty list — never an error, and never
// a stale comment.
func (s *CommentService) ListByExperience(ctx context.Context, experienceID string) ([]model.Comment, error) {
	if experienceID == "" {
		return nil, apperror.ValidationFailed("experience", "experience id is required")
	}
	comments, err := s.comments.ListCommentsByExperience(ctx, experienceID)
	if err != nil {
		return nil, fmt.Errorf("service/comment: listing by experience %s: %w", experienceID, err)
	}
	return comments, nil
}

// Create attaches a new comment to an existing experience, authored by the
// verified user. The experience must exist at the moment of insertion — the
// repository enforces that atomically, so a comment can never be persisted
// against an id that just cascade-deleted (NotFound instead, nothing stored).
func (s *CommentService) Create(ctx context.Context, userID, experienceID, body string) (*model.Comment, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("valid authentication required")
	}

	author, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if _, isApp := appErr(err); isApp {
			return nil, apperror.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("service/comment: resolving user %s: %w", userID, err)
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperror.ValidationFailed("body", "comment body is required")
	}
	if len(body) > MaxCommentLength {
		return nil, apperror.ValidationFailed("body",
			fmt.Sprintf("comment must be %d characters or fewer", MaxCommentLength))
	}

	comment := &model.Comment{
		ExperienceID: experienceID,
		AuthorID:     author.ID,
		Body:         body,
	}

	if err := s.comments.CreateComment(ctx, comment); err != nil {
		if _, isApp := appErr(err); isApp {
			return nil, err // NotFound: the experience is gone
		}
		return nil, fmt.Errorf("service/comment: creating comment: %w", err)
	}

	s.logger.Info("comment created",
		slog.String("id", comment.ID),
		slog.String("experience", experienceID),
		slog.String("author", author.ID),
	)

	comment.Author = author
	return comment, nil
}
