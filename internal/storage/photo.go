// Package storage is the object-store boundary: it turns uploaded photo bytes
// into durable public URLs. The rest of the app only sees the PhotoStore
// interface — the S3 implementation lives in s3.go and tests swap in fakes.
package storage

import (
	"context"

	"github.com/sakif/voyage/internal/apperror"
)

// Photo is one uploaded image, already read out of the multipart request.
//
// WHY []byte AND NOT io.Reader?
// Album uploads fan out concurrently; a shared reader can only be consumed
// once and sequentially. Uploaded photos are a few MB at most (the handler
// enforces the multipart memory limit), so buffering them is fine.
type Photo struct {
	Name        string // original filename, used only for logs
	ContentType string // as declared by the multipart part
	Data        []byte
}

// PhotoStore persists uploaded images and returns stable URLs.
type PhotoStore interface {
	// UploadPhoto stores a single image and returns its public URL.
	UploadPhoto(ctx context.Context, photo Photo) (string, error)

	// UploadAlbum stores a set of images and returns their URLs in input
	// order. The call is all-or-nothing: if any item fails, the whole call
	// fails and no URL list is returned.
	UploadAlbum(ctx context.Context, photos []Photo) ([]string, error)
}

// allowedTypes is the media whitelist. Anything else is rejected before a
// single byte leaves the process.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// validatePhoto rejects empty uploads and unsupported media types, returning
// the file extension for the object key on success.
func validatePhoto(photo Photo) (string, error) {
	if len(photo.Data) == 0 {
		return "", apperror.ValidationFailed("photo", "no file was uploaded")
	}
	ext, ok := allowedTypes[photo.ContentType]
	if !ok {
		return "", apperror.ValidationFailed("photo", "file type not supported")
	}
	return ext, nil
}
