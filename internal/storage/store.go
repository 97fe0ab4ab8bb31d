package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// AvatarPathSegment separates the public base URL from the object key in avatar URLs.
const AvatarPathSegment = "/avatars/"

var (
	ErrInvalidKey           = errors.New("storage: invalid object key")
	ErrMissingPublicBaseURL = errors.New("storage: public base url required")
)

// ObjectStore persists avatar objects and exposes them under a public URL.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, keys ...string) error
	PublicURL(key string) string
}

// KeyFromPublicURL recovers the object key from a URL built by PublicURL.
func KeyFromPublicURL(publicURL string) (string, bool) {
	segments := strings.SplitN(publicURL, AvatarPathSegment, 2)
	if len(segments) < 2 {
		return "", false
	}
	key := strings.TrimSpace(segments[1])
	if err := validateKey(key); err != nil {
		return "", false
	}
	return key, true
}

func publicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + AvatarPathSegment + key
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	return nil
}
