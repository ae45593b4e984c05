package handlers_test

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/feediq/internal/adapters/events"
	"github.com/zatekoja/feediq/internal/api/handlers"
	"github.com/zatekoja/feediq/internal/domain/entities"
	"github.com/zatekoja/feediq/internal/domain/providers"
)

type busWatcher struct {
	bus providers.EventBus
}

func (w busWatcher) Watch(ctx context.Context) (<-chan *entities.FeedbackEvent, error) {
	return w.bus.Subscribe(ctx, providers.EventChannelFeedbackCreated)
}

type failingWatcher struct{}

func (failingWatcher) Watch(ctx context.Context) (<-chan *entities.FeedbackEvent, error) {
	return nil, errors.New("no bus")
}

// readEvent returns the name and data of the next SSE event
func readEvent(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestSSEHandler_StreamFeedback(t *testing.T) {
	bus := events.NewLocalEventBus()
	defer bus.Close()

	handler := handlers.NewSSEHandler(busWatcher{bus: bus})
	server := httptest.NewServer(http.HandlerFunc(handler.StreamFeedback))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	reader := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, reader)
	require.Equal(t, "connected", name)
	assert.Equal(t, 1, handler.ClientCount())

	event := entities.NewFeedbackCreatedEvent(&entities.Feedback{ID: "fb-7", Name: "Alice", Rating: 5})
	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelFeedbackCreated, event))

	name, data := readEvent(t, reader)
	assert.Equal(t, string(entities.FeedbackEventTypeCreated), name)
	assert.Contains(t, data, `"id":"fb-7"`)

	cancel()
	assert.Eventually(t, func() bool { return handler.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSSEHandler_Heartbeat(t *testing.T) {
	bus := events.NewLocalEventBus()
	defer bus.Close()

	handler := handlers.NewSSEHandler(busWatcher{bus: bus})
	handler.SetHeartbeat(20 * time.Millisecond)
	server := httptest.NewServer(http.HandlerFunc(handler.StreamFeedback))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, reader)
	require.Equal(t, "connected", name)
	name, _ = readEvent(t, reader)
	assert.Equal(t, "heartbeat", name)
}

func TestSSEHandler_Unavailable(t *testing.T) {
	handler := handlers.NewSSEHandler(failingWatcher{})
	w := httptest.NewRecorder()

	handler.StreamFeedback(w, httptest.NewRequest(http.MethodGet, "/api/feedback/stream", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
