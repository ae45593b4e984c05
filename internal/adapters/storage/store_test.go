package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/feediq/internal/adapters/storage"
	"github.com/zatekoja/feediq/internal/domain/entities"
	"github.com/zatekoja/feediq/internal/domain/repositories"
	apperrors "github.com/zatekoja/feediq/pkg/errors"
)

var alice = entities.FeedbackDraft{
	Name:    "Alice",
	Email:   "",
	Rating:  5,
	Comment: "Great service!",
	Page:    "https://shop.example.io/",
	Device:  "Mozilla/5.0",
}

// exerciseRepository checks the contract every backend shares.
func exerciseRepository(t *testing.T, repo repositories.FeedbackRepository) {
	t.Helper()
	ctx := context.Background()

	empty, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	first, err := repo.Append(ctx, alice)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Timestamp.IsZero())
	assert.Equal(t, alice.Name, first.Name)
	assert.Equal(t, alice.Comment, first.Comment)

	second, err := repo.Append(ctx, entities.FeedbackDraft{Name: "Maria", Rating: 2, Comment: "Too slow today"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	records, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.ID, records[0].ID)
	assert.Equal(t, second.ID, records[1].ID)
	assert.Equal(t, 2, records[1].Rating)
}

func TestMemoryStore(t *testing.T) {
	exerciseRepository(t, storage.NewMemoryStore())
}

func TestMemoryStore_ListAllReturnsCopy(t *testing.T) {
	store := storage.NewMemoryStore()
	_, err := store.Append(context.Background(), alice)
	require.NoError(t, err)

	records, _ := store.ListAll(context.Background())
	records[0] = nil

	again, _ := store.ListAll(context.Background())
	assert.NotNil(t, again[0])
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := storage.NewMemoryStore().Append(ctx, alice)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStore))
}

func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	store := storage.NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Append(context.Background(), alice)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 20)
}

func TestFileStore(t *testing.T) {
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "nested", "feedback_data.json"))
	require.NoError(t, err)
	exerciseRepository(t, store)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback_data.json")

	first, err := storage.NewFileStore(path)
	require.NoError(t, err)
	record, err := first.Append(context.Background(), alice)
	require.NoError(t, err)

	second, err := storage.NewFileStore(path)
	require.NoError(t, err)
	records, err := second.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.ID, records[0].ID)
	assert.True(t, record.Timestamp.Equal(records[0].Timestamp))
}

func TestFileStore_SharedPathKeepsEveryAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback_data.json")

	stores := make([]*storage.FileStore, 2)
	for i := range stores {
		store, err := storage.NewFileStore(path)
		require.NoError(t, err)
		stores[i] = store
	}

	const perWorker = 25
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]struct{})
	)
	for _, store := range stores {
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(store *storage.FileStore) {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					record, err := store.Append(context.Background(), alice)
					if !assert.NoError(t, err) {
						return
					}
					mu.Lock()
					ids[record.ID] = struct{}{}
					mu.Unlock()
				}
			}(store)
		}
	}
	wg.Wait()

	records, err := stores[0].ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, len(ids))
	assert.Len(t, ids, 2*4*perWorker)
	for _, r := range records {
		assert.Contains(t, ids, r.ID)
	}
}

func TestFileStore_AppendWaitsForLockHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback_data.json")
	store, err := storage.NewFileStore(path)
	require.NoError(t, err)

	holder := flock.New(path + ".lock")
	require.NoError(t, holder.Lock())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = store.Append(ctx, alice)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStore))

	require.NoError(t, holder.Unlock())
	_, err = store.Append(context.Background(), alice)
	require.NoError(t, err)

	records, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback_data.json")
	store, err := storage.NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err = store.ListAll(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRead))

	_, err = store.Append(context.Background(), alice)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStore))
}

func TestFileStore_EmptyFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback_data.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	store, err := storage.NewFileStore(path)
	require.NoError(t, err)
	records, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFileStore_WatchReportsExternalWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback_data.json")

	watched, err := storage.NewFileStore(path)
	require.NoError(t, err)
	own, err := watched.Append(context.Background(), alice)
	require.NoError(t, err)

	other, err := storage.NewFileStore(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan *entities.Feedback, 16)
	done := make(chan error, 1)
	go func() {
		done <- watched.Watch(ctx, func(f *entities.Feedback) { got <- f })
	}()

	external := map[string]bool{}
	deadline := time.After(5 * time.Second)
	var first *entities.Feedback

wait:
	for {
		record, err := other.Append(context.Background(), entities.FeedbackDraft{Name: "Maria", Rating: 3, Comment: "Written elsewhere"})
		require.NoError(t, err)
		external[record.ID] = true

		select {
		case first = <-got:
			break wait
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("watcher did not report the external write")
		}
	}

	cancel()
	require.NoError(t, <-done)

	assert.True(t, external[first.ID])
	assert.NotEqual(t, own.ID, first.ID)
	for len(got) > 0 {
		f := <-got
		assert.True(t, external[f.ID])
	}
}
