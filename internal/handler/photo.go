package handler

import (
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/sakif/voyage/internal/service"
	"github.com/sakif/voyage/internal/storage"
)

// maxUploadBytes caps a whole multipart upload request. ParseMultipartForm
// spills anything beyond its memory argument to temp files, so this is a
// request-size limit, not a memory limit.
const maxUploadBytes = 32 << 20 // 32 MiB

// PhotoHandler serves the photo upload routes. Uploads are a separate step
// from submitting an experience: the client uploads first, gets back public
// URLs, and then includes those URLs in the experience payload.
type PhotoHandler struct {
	experiences *service.ExperienceService
	logger      *slog.Logger
}

// NewPhotoHandler creates a PhotoHandler.
func NewPhotoHandler(experiences *service.ExperienceService, logger *slog.Logger) *PhotoHandler {
	return &PhotoHandler{experiences: experiences, logger: logger}
}

// HandleUpload stores a single photo and returns its public URL.
//
// HTTP: POST /api/photos
// Auth: Required
// Form field: "photo"
func (h *PhotoHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "form field \"photo\" is required"})
		return
	}
	defer file.Close()

	photo, err := readPhoto(file, header)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "could not read uploaded photo"})
		return
	}

	url, err := h.experiences.UploadPhoto(r.Context(), photo)
	if err != nil {
		h.logger.Error("photo upload failed",
			slog.String("name", header.Filename),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeList(w, http.StatusOK, 1, url, "")
}

// HandleUploadAlbum stores a batch of photos and returns their URLs in the
// order the files were sent. The album is all-or-nothing: if any photo fails,
// no URLs come back and the client retries the whole batch.
//
// HTTP: POST /api/photos/album
// Auth: Required
// Form field: "photos" (repeated)
func (h *PhotoHandler) HandleUploadAlbum(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid multipart form"})
		return
	}

	files := r.MultipartForm.File["photos"]
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "form field \"photos\" is required"})
		return
	}

	photos := make([]storage.Photo, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "could not read uploaded photo"})
			return
		}
		photo, err := readPhoto(file, header)
		file.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "could not read uploaded photo"})
			return
		}
		photos = append(photos, photo)
	}

	urls, err := h.experiences.UploadAlbum(r.Context(), photos)
	if err != nil {
		h.logger.Error("album upload failed",
			slog.Int("photos", len(photos)),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeList(w, http.StatusOK, len(urls), urls, "")
}

// readPhoto drains one multipart file into a storage.Photo.
func readPhoto(file multipart.File, header *multipart.FileHeader) (storage.Photo, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return storage.Photo{}, err
	}
	return storage.Photo{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
