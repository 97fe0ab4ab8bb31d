package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes avatars below a directory; the HTTP server serves that
// directory at /avatars/.
type LocalStore struct {
	root          string
	publicBaseURL string
}

func NewLocalStore(root, publicBaseURL string) (*LocalStore, error) {
	trimmedRoot := strings.TrimSpace(root)
	if trimmedRoot == "" {
		return nil, errors.New("storage: local directory required")
	}
	if strings.TrimSpace(publicBaseURL) == "" {
		return nil, ErrMissingPublicBaseURL
	}
	if err := os.MkdirAll(trimmedRoot, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", trimmedRoot, err)
	}
	return &LocalStore{root: trimmedRoot, publicBaseURL: strings.TrimSpace(publicBaseURL)}, nil
}

// Root returns the directory holding stored objects.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Upload(ctx context.Context, key string, body io.Reader, _ int64, _ string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	target := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("storage: create directory for %s: %w", key, err)
	}
	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("storage: create %s: %w", key, err)
	}
	if _, err := io.Copy(file, body); err != nil {
		_ = file.Close()
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	return file.Close()
}

func (s *LocalStore) Remove(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := validateKey(key); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("storage: remove %s: %w", key, err)
		}
	}
	return nil
}

func (s *LocalStore) PublicURL(key string) string {
	return publicURL(s.publicBaseURL, key)
}
