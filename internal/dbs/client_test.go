package dbs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodops/chainsizer/internal/config"
	"github.com/prodops/chainsizer/internal/store"
)

func newTestClient(t *testing.T, handler http.Handler, withCache bool) (*Client, *int64) {
	t.Helper()

	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	var cache *store.Store
	if withCache {
		var err error
		cache, err = store.Open(filepath.Join(t.TempDir(), "cache.db"))
		require.NoError(t, err)
		t.Cleanup(func() { cache.Close() })
	}

	c := NewClient(config.DBS{URL: srv.URL, CacheTTLMinutes: 60}, cache)
	return c, &hits
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestEventsPerLumi(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/filesummaries", r.URL.Path)
		assert.Equal(t, "/A/B/GEN-SIM", r.URL.Query().Get("dataset"))
		assert.Equal(t, "1", r.URL.Query().Get("validFileOnly"))
		writeJSON(t, w, []map[string]any{
			{"num_event": 6000, "num_lumi": 10},
			{"num_event": 4000, "num_lumi": 10},
		})
	})
	c, _ := newTestClient(t, handler, false)

	perLumi, err := c.EventsPerLumi(context.Background(), "/A/B/GEN-SIM")
	require.NoError(t, err)
	assert.Equal(t, 500.0, perLumi)
}

func TestEventsPerLumi_NoLumiInfo(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{{"num_event": 6000, "num_lumi": 0}})
	})
	c, _ := newTestClient(t, handler, false)

	perLumi, err := c.EventsPerLumi(context.Background(), "/A/B/GEN-SIM")
	require.NoError(t, err)
	assert.Zero(t, perLumi)
}

func TestEventsPerLumi_CacheHit(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{{"num_event": 1000, "num_lumi": 4}})
	})
	c, hits := newTestClient(t, handler, true)
	ctx := context.Background()

	perLumi, err := c.EventsPerLumi(ctx, "/A/B/GEN-SIM")
	require.NoError(t, err)
	assert.Equal(t, 250.0, perLumi)
	assert.Equal(t, int64(1), atomic.LoadInt64(hits))

	// Second lookup answers from the cache.
	perLumi, err = c.EventsPerLumi(ctx, "/A/B/GEN-SIM")
	require.NoError(t, err)
	assert.Equal(t, 250.0, perLumi)
	assert.Equal(t, int64(1), atomic.LoadInt64(hits))
}

func TestEventsPerLumi_CacheExpiry(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{{"num_event": 1000, "num_lumi": 4}})
	})
	c, hits := newTestClient(t, handler, true)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	c.now = func() time.Time { return base }

	_, err := c.EventsPerLumi(ctx, "/A/B/GEN-SIM")
	require.NoError(t, err)

	// Past the 60-minute lifetime the network is asked again.
	c.now = func() time.Time { return base.Add(61 * time.Minute) }
	_, err = c.EventsPerLumi(ctx, "/A/B/GEN-SIM")
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(hits))
}

func TestDatasetSize(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/blocksummaries", r.URL.Path)
		writeJSON(t, w, []map[string]any{
			{"file_size": 3 * 1024 * 1024 * 1024},
			{"file_size": 1024 * 1024 * 1024},
		})
	})
	c, _ := newTestClient(t, handler, false)

	sizeGB, err := c.DatasetSize(context.Background(), "/A/B/AODSIM")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, sizeGB, 1e-9)
}

func TestDatasetStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/datasets", r.URL.Path)
		assert.Equal(t, "*", r.URL.Query().Get("dataset_access_type"))
		writeJSON(t, w, []map[string]any{{"dataset_access_type": "VALID"}})
	})
	c, _ := newTestClient(t, handler, false)

	status, err := c.DatasetStatus(context.Background(), "/A/B/AODSIM")
	require.NoError(t, err)
	assert.Equal(t, "VALID", status)
}

func TestDatasetStatus_NotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{})
	})
	c, _ := newTestClient(t, handler, false)

	_, err := c.DatasetStatus(context.Background(), "/A/B/AODSIM")
	require.Error(t, err)

	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "datasets", re.Endpoint)
}

func TestRequestError_HTTPStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})
	c, _ := newTestClient(t, handler, false)

	_, err := c.EventsPerLumi(context.Background(), "/A/B/GEN-SIM")
	require.Error(t, err)

	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusInternalServerError, re.Status)
}

func TestCheck(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{{"file_size": 1}})
	})
	c, _ := newTestClient(t, handler, false)
	require.NoError(t, c.Check(context.Background()))

	empty := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{})
	})
	c, _ = newTestClient(t, empty, false)
	assert.Error(t, c.Check(context.Background()))
}
