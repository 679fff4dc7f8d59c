// Package blobstore stores symptom images and lab result files. Callers get
// back an opaque location string that is persisted alongside the record.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound    = errors.New("blob not found")
	ErrMissingFileName = errors.New("file name is required")
)

// BlobStore is the contract for blob storage backends.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, content io.Reader) (string, error)
	Get(ctx context.Context, location string) (io.ReadCloser, error)
	Delete(ctx context.Context, location string) error
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

var extChars = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// ObjectKey builds a collision-resistant key of the form
// category/yyyy/mm/dd/<uuid><ext>. Only the extension of fileName survives
// so stored locations never carry the uploader's name for the file.
func ObjectKey(category, fileName string, now time.Time) (string, error) {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		return "", ErrMissingFileName
	}
	ext := strings.ToLower(path.Ext(base))
	if !extChars.MatchString(ext) {
		ext = ""
	}
	return path.Join(category, now.UTC().Format("2006/01/02"), uuid.NewString()+ext), nil
}

// Writer saves files under generated keys with a bounded write timeout.
type Writer struct {
	store   BlobStore
	timeout time.Duration
	now     func() time.Time
}

func NewWriter(store BlobStore, timeout time.Duration) *Writer {
	return &Writer{store: store, timeout: timeout, now: time.Now}
}

// Save writes content under a fresh key in category and returns its location.
func (w *Writer) Save(ctx context.Context, category, fileName, contentType string, content io.Reader) (string, error) {
	key, err := ObjectKey(category, fileName, w.now())
	if err != nil {
		return "", err
	}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	loc, err := w.store.Put(ctx, key, contentType, content)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", fileName, err)
	}
	return loc, nil
}

// Discard deletes locations written earlier in a request that later failed.
// Errors are ignored; the objects become orphans.
func (w *Writer) Discard(ctx context.Context, locations []string) {
	for _, loc := range locations {
		_ = w.store.Delete(ctx, loc)
	}
}

// MemoryStore keeps blobs in process memory. Used for tests and ENV=development.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

const memoryScheme = "mem://"

func (s *MemoryStore) Put(ctx context.Context, key, _ string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.blobs[key] = data
	s.mu.Unlock()
	return memoryScheme + key, nil
}

func (s *MemoryStore) Get(_ context.Context, location string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[strings.TrimPrefix(location, memoryScheme)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Delete(_ context.Context, location string) error {
	key := strings.TrimPrefix(location, memoryScheme)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, key)
	return nil
}

// Len reports the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
