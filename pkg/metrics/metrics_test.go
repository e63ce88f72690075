package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/keepfs/pkg/filestore"
	"github.com/marmos91/keepfs/pkg/scrub"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newFileStoreMetrics(reg)

	m.ObserveOperation(filestore.OpRead, filestore.OK, 2*time.Millisecond)
	m.ObserveOperation(filestore.OpRead, filestore.ErrFileCorrupted, time.Millisecond)
	m.ObserveOperation(filestore.OpRead, filestore.OK, time.Millisecond)
	m.RecordCorruption(filestore.OpRead)
	m.SetRegisteredFiles(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("read", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("read", "FILE_CORRUPTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.corruptionsTotal.WithLabelValues("read")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.registeredFiles))
	assert.Equal(t, 1, testutil.CollectAndCount(m.operationDuration))
}

func TestScrubMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newScrubMetrics(reg)

	start := time.Now()
	m.ObservePass(&scrub.Report{
		StartTime: start,
		EndTime:   start.Add(time.Second),
		Checked:   []string{"a", "b"},
		Corrupted: []string{"c"},
		Skipped:   []string{"d"},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.passesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.filesTotal.WithLabelValues("checked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesTotal.WithLabelValues("corrupted")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.filesTotal.WithLabelValues("missing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lastUnhealthy))
	assert.Equal(t, float64(start.Add(time.Second).Unix()), testutil.ToFloat64(m.lastPass))
}

func TestConstructorsAreNilWhenDisabled(t *testing.T) {
	if IsEnabled() {
		t.Skip("global registry already initialized")
	}
	assert.Nil(t, NewFileStoreMetrics())
	assert.Nil(t, NewScrubMetrics())
}

func TestServerEndpoints(t *testing.T) {
	srv := NewServer(ServerConfig{})
	assert.Equal(t, 9090, srv.Port())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "/metrics"))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
