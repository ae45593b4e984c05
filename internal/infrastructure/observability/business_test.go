package observability_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/feediq/internal/infrastructure/observability"
)

func TestBusinessMetrics_Counters(t *testing.T) {
	m := observability.NewBusinessMetrics()

	m.ObserveSubmission(5, nil)
	m.ObserveSubmission(5, nil)
	m.ObserveSubmission(1, errors.New("disk full"))
	m.ObserveAlert(nil)
	m.ObserveIntakeOutcome("saved")
	m.ObserveRejection("INVALID_NAME")

	count, err := testutil.GatherAndCount(m.Registry(), "feediq_feedback_submissions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(m.Registry(), "feediq_intake_sessions_total", "feediq_feedback_rejections_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestBusinessMetrics_NilIsNoop(t *testing.T) {
	var m *observability.BusinessMetrics
	assert.NotPanics(t, func() {
		m.ObserveSubmission(3, nil)
		m.ObserveAlert(nil)
		m.ObserveIntakeOutcome("declined")
		m.ObserveRejection("INVALID_EMAIL")
	})
}

func TestBusinessMetrics_Handler(t *testing.T) {
	m := observability.NewBusinessMetrics()
	m.ObserveSubmission(4, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `feediq_feedback_submissions_total{rating="4",result="ok"} 1`)
}
