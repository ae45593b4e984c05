package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/feediq/internal/adapters/storage"
	"github.com/zatekoja/feediq/internal/api/handlers"
	"github.com/zatekoja/feediq/internal/application/services"
	"github.com/zatekoja/feediq/internal/intake"
)

type sessionView struct {
	ID      string `json:"id"`
	State   string `json:"state"`
	Answers struct {
		Name   string `json:"name"`
		Email  string `json:"email"`
		Rating int    `json:"rating"`
	} `json:"answers"`
	HoverLabel string `json:"hover_label"`
	Transcript []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"transcript"`
	Notice struct {
		Signal string `json:"signal"`
	} `json:"notice"`
	Record *struct {
		ID   string `json:"id"`
		Page string `json:"page"`
	} `json:"record"`
}

type intakeFixture struct {
	mux      *http.ServeMux
	registry *intake.Registry
	store    *storage.MemoryStore
}

func newIntakeFixture(t *testing.T) *intakeFixture {
	t.Helper()
	store := storage.NewMemoryStore()
	registry := intake.NewRegistry(services.NewFeedbackService(store), intake.WithAutoCloseDelay(time.Hour))
	t.Cleanup(registry.CloseAll)

	handler := handlers.NewIntakeHandler(registry, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/intake/sessions", handler.StartSession)
	mux.HandleFunc("GET /api/intake/sessions/{id}", handler.GetSession)
	mux.HandleFunc("POST /api/intake/sessions/{id}/input", handler.HandleInput)
	mux.HandleFunc("DELETE /api/intake/sessions/{id}", handler.CloseSession)

	return &intakeFixture{mux: mux, registry: registry, store: store}
}

func (f *intakeFixture) do(t *testing.T, method, path, body string) (int, sessionView) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("User-Agent", "Mozilla/5.0 Chrome/120.0")
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)

	var view sessionView
	if w.Code == http.StatusUnprocessableEntity {
		var rejected struct {
			Code    string      `json:"code"`
			Session sessionView `json:"session"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&rejected))
		view = rejected.Session
	} else if w.Code < 300 {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	}
	return w.Code, view
}

func (f *intakeFixture) input(t *testing.T, id, body string) (int, sessionView) {
	t.Helper()
	return f.do(t, http.MethodPost, "/api/intake/sessions/"+id+"/input", body)
}

func TestIntakeHandler_Conversation(t *testing.T) {
	f := newIntakeFixture(t)

	code, view := f.do(t, http.MethodPost, "/api/intake/sessions", `{"page":"https://example.org/pricing"}`)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, view.ID)
	assert.Equal(t, "greeting", view.State)
	assert.Len(t, view.Transcript, 1)
	id := view.ID

	code, view = f.input(t, id, `{"kind":"accept"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ask_name", view.State)

	code, view = f.input(t, id, `{"kind":"answer","text":"Al"}`)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "ask_name", view.State)

	_, view = f.input(t, id, `{"kind":"answer","text":"Alice"}`)
	assert.Equal(t, "ask_email", view.State)

	_, view = f.input(t, id, `{"kind":"answer","text":""}`)
	assert.Equal(t, "ask_rating", view.State)

	_, view = f.input(t, id, `{"kind":"hover","rating":4}`)
	assert.Equal(t, "ask_rating", view.State)
	assert.Equal(t, "Very Good", view.HoverLabel)

	_, view = f.input(t, id, `{"kind":"rate","rating":5}`)
	assert.Equal(t, "ask_comment", view.State)

	code, view = f.input(t, id, `{"kind":"answer","text":"Great service!"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "submitting", view.State)
	assert.Equal(t, "saved", view.Notice.Signal)
	require.NotNil(t, view.Record)
	assert.Equal(t, "https://example.org/pricing", view.Record.Page)

	records, err := f.store.ListAll(t.Context())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Alice", records[0].Name)
	assert.Equal(t, "", records[0].Email)
	assert.Equal(t, "Mozilla/5.0 Chrome/120.0", records[0].Device)

	code, view = f.do(t, http.MethodDelete, "/api/intake/sessions/"+id, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "closed", view.State)

	code, _ = f.do(t, http.MethodGet, "/api/intake/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestIntakeHandler_UnexpectedInput(t *testing.T) {
	f := newIntakeFixture(t)

	_, view := f.do(t, http.MethodPost, "/api/intake/sessions", "")
	code, _ := f.input(t, view.ID, `{"kind":"rate","rating":5}`)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = f.input(t, view.ID, `{"kind":"shout"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestIntakeHandler_Decline(t *testing.T) {
	f := newIntakeFixture(t)

	_, view := f.do(t, http.MethodPost, "/api/intake/sessions", "")
	require.Equal(t, 1, f.registry.Len())

	code, view := f.input(t, view.ID, `{"kind":"decline"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "closed", view.State)
	assert.Equal(t, 0, f.registry.Len())

	records, _ := f.store.ListAll(t.Context())
	assert.Empty(t, records)
}

func TestIntakeHandler_StartSessionRateLimit(t *testing.T) {
	f := newIntakeFixture(t)

	start := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/intake/sessions", nil)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		f.mux.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 30; i++ {
		require.Equal(t, http.StatusCreated, start("10.1.0.1:5000"))
	}
	assert.Equal(t, http.StatusTooManyRequests, start("10.1.0.1:5000"))
	assert.Equal(t, http.StatusCreated, start("10.1.0.2:5000"))
	assert.Equal(t, 31, f.registry.Len())
}

func TestIntakeHandler_UnknownSession(t *testing.T) {
	f := newIntakeFixture(t)

	code, _ := f.do(t, http.MethodGet, "/api/intake/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.input(t, "missing", `{"kind":"accept"}`)
	assert.Equal(t, http.StatusNotFound, code)
}
