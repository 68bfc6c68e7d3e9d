package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/voyage/internal/auth"
	"github.com/sakif/voyage/internal/model"
	"github.com/sakif/voyage/internal/service"
)

// ExperienceHandler serves the experience browse/submit/delete/bookmark routes.
//
// The handler does HTTP work only: decode the request, pull the verified user
// ID out of the request context, call the service, translate the result into
// the response envelope. Every business rule (ownership, enum validation,
// coordinate ranges) lives in the service layer where it can be tested
// without a router.
type ExperienceHandler struct {
	experiences *service.ExperienceService
	logger      *slog.Logger
}

// NewExperienceHandler creates an ExperienceHandler.
func NewExperienceHandler(experiences *service.ExperienceService, logger *slog.Logger) *ExperienceHandler {
	return &ExperienceHandler{experiences: experiences, logger: logger}
}

// HandleListAll returns every experience, newest last.
//
// HTTP: GET /api/experiences/all
func (h *ExperienceHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	experiences, err := h.experiences.ListAll(r.Context())
	if err != nil {
		h.logger.Error("listing experiences failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeList(w, http.StatusOK, len(experiences), experiences, "no experiences have been shared yet")
}

// HandleGet returns a single experience with author, bookmarkers, and
// comments resolved.
//
// HTTP: GET /api/experiences/{id}
func (h *ExperienceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	exp, err := h.experiences.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeList(w, http.StatusOK, 1, exp, "")
}

// HandleListByType filters by experience type.
//
// HTTP: GET /api/experiences/type/{experienceType}
//
// An unknown type is a 400, not an empty 200 — "advnture" is a client
// mistake, not a place with no experiences.
func (h *ExperienceHandler) HandleListByType(w http.ResponseWriter, r *http.Request) {
	t := model.ExperienceType(r.PathValue("experienceType"))

	experiences, err := h.experiences.ListByType(r.Context(), t)
	if err != nil {
		writeError(w, err)
		return
	}
	writeList(w, http.StatusOK, len(experiences), experiences,
		fmt.Sprintf("no %s experiences found", t))
}

// HandleListByCountry filters by country.
//
// HTTP: GET /api/experiences/country/{country}
func (h *ExperienceHandler) HandleListByCountry(w http.ResponseWriter, r *http.Request) {
	country := r.PathValue("country")

	experiences, err := h.experiences.ListByCountry(r.Context(), country)
	if err != nil {
		writeError(w, err)
		return
	}
	writeList(w, http.StatusOK, len(experiences), experiences,
		fmt.Sprintf("no experiences found for country %s", country))
}

// HandleListByCity filters by country and city together.
//
// HTTP: GET /api/experiences/country/{country}/{city}
func (h *ExperienceHandler) HandleListByCity(w http.ResponseWriter, r *http.Request) {
	country := r.PathValue("country")
	city := r.PathValue("city")

	experiences, err := h.experiences.ListByCity(r.Context(), country, city)
	if err != nil {
		writeError(w, err)
		return
	}
	writeList(w, http.StatusOK, len(experiences), experiences,
		fmt.Sprintf("no experiences found for %s, %s", city, country))
}

// HandleSubmit publishes a new experience authored by the logged-in user.
//
// HTTP: POST /api/experiences
// Auth: Required
//
// The author is the verified identity from the JWT — the request body does
// not carry (and cannot choose) an author.
func (h *ExperienceHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "valid authentication required"})
		return
	}

	var input service.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid experience JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid JSON body"})
		return
	}

	exp, err := h.experiences.Submit(r.Context(), userID, input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeList(w, http.StatusCreated, 1, exp, "")
}

// HandleDelete removes an experience and everything attached to it.
//
// HTTP: DELETE /api/experiences/{id}
// Auth: Required — and only the author may delete.
func (h *ExperienceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "valid authentication required"})
		return
	}

	id := r.PathValue("id")
	if err := h.experiences.Delete(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "experience deleted"})
}

// HandleToggleBookmark adds or removes the caller's bookmark.
//
// HTTP: POST /api/experiences/{id}/bookmark
// Auth: Required
//
// The same endpoint toggles both ways; the response says which way it went.
func (h *ExperienceHandler) HandleToggleBookmark(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "valid authentication required"})
		return
	}

	id := r.PathValue("id")
	bookmarked, err := h.experiences.ToggleBookmark(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	message := "bookmark removed"
	if bookmarked {
		message = "experience bookmarked"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    message,
		"bookmarked": bookmarked,
	})
}
