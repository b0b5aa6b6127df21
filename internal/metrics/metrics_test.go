package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRemoteCall(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveRemoteCall("image.create", nil)
	m.ObserveRemoteCall("image.create", errors.New("code 99991663"))
	m.ObserveRemoteCall("image.create", nil)

	body := scrape(t, m)
	assert.Contains(t, body, `feishubridge_remote_calls_total{op="image.create",outcome="success"} 2`)
	assert.Contains(t, body, `feishubridge_remote_calls_total{op="image.create",outcome="error"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveRemoteCall("message.create", nil)
	m.MediaItemFailed("default")
	m.ChunkDelivered("default", "card")
	m.TypingFailed("add")
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.MediaItemFailed("default")

	assert.Contains(t, scrape(t, m), `feishubridge_media_item_failures_total{account="default"} 1`)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
