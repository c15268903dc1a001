package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	t.Parallel()
	m := New()

	m.Login("local", ResultSuccess)
	m.Login("local", ResultSuccess)
	m.Login("google", ResultFailure)
	m.ClientRejected("invalid_redirect")
	m.TokensIssued.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Logins.WithLabelValues("local", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues("google", ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClientRejections.WithLabelValues("invalid_redirect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensIssued))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionsCreated))
}

func TestHandlerExposesCounters(t *testing.T) {
	t.Parallel()
	m := New()
	m.SessionsCreated.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "identity_broker_sessions_created_total 1")
}
