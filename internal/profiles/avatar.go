package profiles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/apperrors"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/storage"
	"go.uber.org/zap"
)

// MaxAvatarBytes is the upload ceiling for avatar images.
const MaxAvatarBytes = 2 * 1024 * 1024

var errMissingStore = errors.New("object store is required")

// Stored object names take their extension from this table only; SVG is
// excluded because it can carry script.
var extensionsByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/avif": ".avif",
}

// UploadAvatar stores an image and points the profile at its public URL.
// The previously stored avatar is removed once the profile references the new one.
func (s *Service) UploadAvatar(ctx context.Context, profileID string, upload AvatarUpload, body io.Reader) (Profile, error) {
	if s.db == nil {
		return Profile{}, apperrors.Remote(opUploadAvatar, "missing_database", errMissingDatabase)
	}
	if s.store == nil {
		return Profile{}, apperrors.Remote(opUploadAvatar, "missing_store", errMissingStore)
	}
	contentType, extension, ok := avatarContentType(upload.ContentType)
	if !ok {
		return Profile{}, apperrors.Validation("invalid_avatar_type", "please upload a valid image file")
	}
	if upload.Size > MaxAvatarBytes {
		return Profile{}, apperrors.Validation("avatar_too_large", "image size must be less than 2MB")
	}

	content, err := io.ReadAll(io.LimitReader(body, MaxAvatarBytes+1))
	if err != nil {
		return Profile{}, apperrors.Remote(opUploadAvatar, "read_failed", err)
	}
	if len(content) > MaxAvatarBytes {
		return Profile{}, apperrors.Validation("avatar_too_large", "image size must be less than 2MB")
	}
	if len(content) == 0 {
		return Profile{}, apperrors.Validation("invalid_avatar_type", "please upload a valid image file")
	}

	current, err := s.Get(ctx, profileID)
	if err != nil {
		return Profile{}, err
	}

	key := fmt.Sprintf("%s/%d%s", profileID, s.clock().UnixMilli(), extension)
	if err := s.store.Upload(ctx, key, bytes.NewReader(content), int64(len(content)), contentType); err != nil {
		s.logError(opUploadAvatar, "upload_failed", err, zap.String("profile_id", profileID), zap.String("key", key))
		return Profile{}, apperrors.Remote(opUploadAvatar, "upload_failed", err)
	}

	updated, err := s.setAvatarURL(ctx, opUploadAvatar, profileID, s.store.PublicURL(key))
	if err != nil {
		return Profile{}, err
	}

	if previousKey, ok := storage.KeyFromPublicURL(current.AvatarURL); ok && previousKey != key {
		if err := s.store.Remove(ctx, previousKey); err != nil {
			s.logger.Warn("previous avatar removal failed",
				zap.String("profile_id", profileID),
				zap.String("key", previousKey),
				zap.Error(err))
		}
	}
	return updated, nil
}

// DeleteAvatar removes the stored image and blanks the profile field.
func (s *Service) DeleteAvatar(ctx context.Context, profileID string) (Profile, error) {
	if s.db == nil {
		return Profile{}, apperrors.Remote(opDeleteAvatar, "missing_database", errMissingDatabase)
	}
	if s.store == nil {
		return Profile{}, apperrors.Remote(opDeleteAvatar, "missing_store", errMissingStore)
	}
	current, err := s.Get(ctx, profileID)
	if err != nil {
		return Profile{}, err
	}
	if strings.TrimSpace(current.AvatarURL) == "" {
		return Profile{}, apperrors.Validation("no_avatar", "no avatar to delete")
	}
	key, ok := storage.KeyFromPublicURL(current.AvatarURL)
	if !ok {
		return Profile{}, apperrors.Validation("invalid_avatar_url", "invalid avatar url")
	}
	if err := s.store.Remove(ctx, key); err != nil {
		s.logError(opDeleteAvatar, "remove_failed", err, zap.String("profile_id", profileID), zap.String("key", key))
		return Profile{}, apperrors.Remote(opDeleteAvatar, "remove_failed", err)
	}
	return s.setAvatarURL(ctx, opDeleteAvatar, profileID, "")
}

// avatarContentType normalises the declared type and reports the extension
// the stored object gets. The client's filename never influences it.
func avatarContentType(declared string) (string, string, bool) {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(declared))
	if err != nil {
		return "", "", false
	}
	mediaType = strings.ToLower(mediaType)
	extension, ok := extensionsByContentType[mediaType]
	return mediaType, extension, ok
}
