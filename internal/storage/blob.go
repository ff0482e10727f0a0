package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// BlobStore stores binary media and returns a stable retrieval URL.
// Implementations must not retry internally; retry policy belongs to the
// caller.
type BlobStore interface {
	Put(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, objectName string) error
	URL(objectName string) string
}

// Extensions for the image MIME types accepted as snapshots and identity
// photos.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageExtension returns the file extension for an allowed image MIME type.
// The second return value is false for anything that is not an accepted
// image type.
func ImageExtension(contentType string) (string, bool) {
	ext, ok := imageExtensions[contentType]
	return ext, ok
}

// SafeEmail rewrites an email address into a string usable as a path
// segment. '@' and '.' are folded to '_' so object prefixes stay flat.
func SafeEmail(email string) string {
	r := strings.NewReplacer("@", "_", ".", "_")
	return r.Replace(email)
}

// SnapshotObject builds the object name for a webcam snapshot.
func SnapshotObject(email, ext string) string {
	return fmt.Sprintf("snapshots/%s/%s%s", SafeEmail(email), uuid.New().String(), ext)
}

// VideoChunkObject builds the object name for one video chunk. The chunk
// index is advisory metadata; a fresh UUID keeps concurrent uploads of the
// same index from clobbering each other.
func VideoChunkObject(email string, chunkIndex int) string {
	return fmt.Sprintf("uploads/%s_videos/chunk_%d_%s.webm", SafeEmail(email), chunkIndex, uuid.New().String())
}

// IdentityObject builds the object name for an identity-verification photo.
func IdentityObject(email, ext string) string {
	return fmt.Sprintf("identity/%s_%s%s", SafeEmail(email), uuid.New().String(), ext)
}
