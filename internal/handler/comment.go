package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/voyage/internal/auth"
	"github.com/sakif/voyage/internal/service"
)

// CommentHandler serves the comment browse and create routes.
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

// NewCommentHandler creates a CommentHandler.
func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

// HandleListAll returns every comment across all experiences.
//
// HTTP: GET /api/comments/all
func (h *CommentHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.ListAll(r.Context())
	if err != nil {
		h.logger.Error("listing comments failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeList(w, http.StatusOK, len(comments), comments, "no comments yet")
}

// HandleListByUser returns the comments a given user has written.
//
// HTTP: GET /api/comments/user/{id}
func (h *CommentHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	comments, err := h.comments.ListByAuthor(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeList(w, http.StatusOK, len(comments), comments, "this user has not commented yet")
}

// HandleListByExperience returns an experience's comments in creation order.
//
// HTTP: GET /api/comments/experience/{id}
func (h *CommentHandler) HandleListByExperience(w http.ResponseWriter, r *http.Request) {
	experienceID := r.PathValue("id")

	comments, err := h.comments.ListByExperience(r.Context(), experienceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeList(w, http.StatusOK, len(comments), comments, "no comments on this experience yet")
}

// commentInput is the create-comment request body. Only the body text comes
// from the client; the author is the verified identity from the JWT.
type commentInput struct {
	Body string `json:"body"`
}

// HandleCreate attaches a comment to an experience.
//
// HTTP: POST /api/comments/experience/{id}
// Auth: Required
//
// Commenting on an experience that no longer exists is a 404 — the insert
// and the existence check happen atomically in the repository, so a comment
// can never land on a just-deleted experience.
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "valid authentication required"})
		return
	}

	var input commentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid comment JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid JSON body"})
		return
	}

	comment, err := h.comments.Create(r.Context(), userID, r.PathValue("id"), input.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	writeList(w, http.StatusCreated, 1, comment, "")
}
