package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/feediq/internal/domain/entities"
	"github.com/zatekoja/feediq/internal/domain/repositories"
	apperrors "github.com/zatekoja/feediq/pkg/errors"
)

// lockRetryDelay is how often a blocked append retries the file lock
const lockRetryDelay = 10 * time.Millisecond

// FileStore keeps every record as one JSON array in a single file.
// Appends rewrite the whole file through a temp file and rename while holding
// an advisory lock on a sibling ".lock" file, so processes sharing the path
// never overwrite each other.
type FileStore struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
	now  func() time.Time

	// ids this process has already observed, used to tell external writes apart
	seen map[string]struct{}
}

var _ repositories.FeedbackRepository = (*FileStore)(nil)

// NewFileStore opens (or prepares) the store at path.
func NewFileStore(path string) (*FileStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	s := &FileStore{
		path: abs,
		lock: flock.New(abs + ".lock"),
		now:  time.Now,
		seen: make(map[string]struct{}),
	}

	records, err := s.read()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", abs, err)
	}
	for _, r := range records {
		s.seen[r.ID] = struct{}{}
	}
	return s, nil
}

// Path returns the absolute path of the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Append reads the collection, adds the stamped draft and replaces the file.
func (s *FileStore) Append(ctx context.Context, draft entities.FeedbackDraft) (*entities.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStoreError("Failed to save feedback", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		if err == nil {
			err = fmt.Errorf("could not lock %s", s.lock.Path())
		}
		return nil, apperrors.NewStoreError("Failed to save feedback", err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			log.Warn().Err(err).Str("path", s.lock.Path()).Msg("failed to release feedback file lock")
		}
	}()

	records, err := s.read()
	if err != nil {
		return nil, apperrors.NewStoreError("Failed to save feedback", err)
	}

	record, err := entities.NewFeedback(draft, s.now())
	if err != nil {
		return nil, apperrors.NewStoreError("Failed to save feedback", err)
	}

	if err := s.write(append(records, record)); err != nil {
		return nil, apperrors.NewStoreError("Failed to save feedback", err)
	}
	s.seen[record.ID] = struct{}{}

	return record, nil
}

// ListAll returns the records in file order. A missing file is an empty store.
func (s *FileStore) ListAll(ctx context.Context) ([]*entities.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewReadError("failed to list feedback", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return nil, apperrors.NewReadError("failed to list feedback", err)
	}
	return records, nil
}

// Watch blocks until ctx is done, calling onNew for every record another
// process adds to the file. Records appended through this store are not reported.
func (s *FileStore) Watch(ctx context.Context, onNew func(*entities.Feedback)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}

	logger := log.With().Str("path", s.path).Logger()
	logger.Debug().Msg("watching feedback file")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			for _, record := range s.unseen() {
				onNew(record)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (s *FileStore) unseen() []*entities.Feedback {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		// partial writes by other processes show up as parse errors; the next event retries
		log.Debug().Err(err).Str("path", s.path).Msg("skipping unreadable feedback file")
		return nil
	}

	var fresh []*entities.Feedback
	for _, r := range records {
		if _, ok := s.seen[r.ID]; ok {
			continue
		}
		s.seen[r.ID] = struct{}{}
		fresh = append(fresh, r)
	}
	return fresh
}

func (s *FileStore) read() ([]*entities.Feedback, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []*entities.Feedback{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []*entities.Feedback{}, nil
	}

	records := []*entities.Feedback{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("corrupt feedback file: %w", err)
	}
	return records, nil
}

func (s *FileStore) write(records []*entities.Feedback) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".feedback-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}
