package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zatekoja/feediq/internal/adapters/storage"
	"github.com/zatekoja/feediq/internal/app"
	"github.com/zatekoja/feediq/internal/domain/entities"
	"github.com/zatekoja/feediq/internal/infrastructure/notifications"
	"github.com/zatekoja/feediq/internal/intake"
	"github.com/zatekoja/feediq/pkg/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func memoryConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Storage.Backend = config.StorageMemory
	cfg.Dashboard.Timezone = "UTC"
	return cfg
}

func TestNew_Memory(t *testing.T) {
	a, err := app.New(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &storage.MemoryStore{}, a.Store)
	assert.IsType(t, notifications.LogNotifier{}, a.Notifier)

	feedback, err := a.Service.Append(context.Background(), entities.FeedbackDraft{
		Name:    "Alice",
		Rating:  5,
		Comment: "Great service!",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, feedback.ID)

	bundle, err := a.Service.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, bundle.Total)
}

func TestNew_RejectsUnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage.Backend = "sqlite"

	_, err := app.New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNew_FileStorePublishesExternalAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback_data.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

	cfg := memoryConfig()
	cfg.Storage.Backend = config.StorageFile
	cfg.Storage.FilePath = path

	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := a.Service.Watch(ctx)
	require.NoError(t, err)

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	other, err := storage.NewFileStore(path)
	require.NoError(t, err)
	_, err = other.Append(context.Background(), entities.FeedbackDraft{
		Name:    "Bob Smith",
		Rating:  4,
		Comment: "Quick and friendly",
	})
	require.NoError(t, err)

	select {
	case event := <-sub:
		assert.Equal(t, "Bob Smith", event.Feedback.Name)
	case <-time.After(3 * time.Second):
		t.Fatal("external append was not published")
	}
}

func TestApp_NewRegistry(t *testing.T) {
	a, err := app.New(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer a.Close()

	registry := a.NewRegistry()
	defer registry.CloseAll()

	session := registry.Start(nil)
	_, err = session.Handle(context.Background(), intake.Accept())
	require.NoError(t, err)
	assert.Equal(t, intake.StateAskName, session.State())
	assert.Equal(t, 1, registry.Len())
}
