package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage stores assets on the local filesystem under a base
// directory and serves them from a base URL. Path traversal is
// rejected in resolvePath.
type LocalStorage struct {
	basePath string
	baseURL  string
	logger   *slog.Logger
}

// NewLocalStorage creates a LocalStorage, creating the base directory
// if it does not exist.
func NewLocalStorage(cfg LocalConfig, logger *slog.Logger) (*LocalStorage, error) {
	absPath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	logger.Info("initialized local storage", "base_path", absPath, "base_url", baseURL)

	return &LocalStorage{
		basePath: absPath,
		baseURL:  baseURL,
		logger:   logger,
	}, nil
}

// FileServer returns an http.Handler serving the stored files, for
// mounting under the base URL path.
func (s *LocalStorage) FileServer() http.Handler {
	return http.FileServer(http.Dir(s.basePath))
}

// Put stores data at the specified key.
func (s *LocalStorage) Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	filePath, err := s.resolvePath(key)
	if err != nil {
		return &StorageError{Op: "Put", Key: key, Err: err}
	}

	if !opts.Overwrite {
		if _, err := os.Stat(filePath); err == nil {
			return &StorageError{Op: "Put", Key: key, Err: ErrKeyExists}
		}
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return &StorageError{Op: "Put", Key: key, Err: fmt.Errorf("create directory: %w", err)}
	}

	file, err := os.Create(filePath)
	if err != nil {
		return &StorageError{Op: "Put", Key: key, Err: fmt.Errorf("create file: %w", err)}
	}
	defer file.Close()

	reader := data
	if opts.MaxSize > 0 {
		reader = io.LimitReader(data, opts.MaxSize+1)
	}
	written, err := io.Copy(file, reader)
	if err != nil {
		os.Remove(filePath)
		return &StorageError{Op: "Put", Key: key, Err: fmt.Errorf("write file: %w", err)}
	}
	if opts.MaxSize > 0 && written > opts.MaxSize {
		os.Remove(filePath)
		return &StorageError{Op: "Put", Key: key, Err: ErrTooLarge}
	}

	s.logger.Debug("stored file", "key", key, "size", written, "content_type", opts.ContentType)

	return nil
}

// Get retrieves the data at the specified key.
func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if ctx.Err() != nil {
		return nil, ObjectInfo{}, ctx.Err()
	}

	filePath, err := s.resolvePath(key)
	if err != nil {
		return nil, ObjectInfo{}, &StorageError{Op: "Get", Key: key, Err: err}
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ObjectInfo{}, &StorageError{Op: "Get", Key: key, Err: ErrNotFound}
		}
		return nil, ObjectInfo{}, &StorageError{Op: "Get", Key: key, Err: fmt.Errorf("stat file: %w", err)}
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, ObjectInfo{}, &StorageError{Op: "Get", Key: key, Err: fmt.Errorf("open file: %w", err)}
	}

	info := ObjectInfo{
		Key:          key,
		Size:         stat.Size(),
		ContentType:  DetectContentType("", key, nil),
		LastModified: stat.ModTime(),
	}

	return file, info, nil
}

// Delete removes the object at the specified key. No error when the
// key does not exist.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	filePath, err := s.resolvePath(key)
	if err != nil {
		return &StorageError{Op: "Delete", Key: key, Err: err}
	}

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return &StorageError{Op: "Delete", Key: key, Err: fmt.Errorf("delete file: %w", err)}
	}

	s.logger.Debug("deleted file", "key", key)

	return nil
}

// URL returns a public URL for the object. The expires parameter is
// ignored; local files are always public.
func (s *LocalStorage) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if _, err := s.resolvePath(key); err != nil {
		return "", &StorageError{Op: "URL", Key: key, Err: err}
	}

	return fmt.Sprintf("%s/%s", s.baseURL, key), nil
}

// Exists checks if an object exists at the specified key.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	filePath, err := s.resolvePath(key)
	if err != nil {
		return false, &StorageError{Op: "Exists", Key: key, Err: err}
	}

	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &StorageError{Op: "Exists", Key: key, Err: fmt.Errorf("stat file: %w", err)}
	}

	return true, nil
}

// resolvePath converts a storage key to an absolute path under the
// base directory, rejecting traversal attempts.
func (s *LocalStorage) resolvePath(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}

	cleanKey := filepath.Clean(key)
	if strings.Contains(cleanKey, "..") {
		return "", ErrInvalidKey
	}

	absPath := filepath.Join(s.basePath, cleanKey)
	if !strings.HasPrefix(absPath, s.basePath) {
		return "", ErrInvalidKey
	}

	return absPath, nil
}
