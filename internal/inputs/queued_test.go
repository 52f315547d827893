package inputs

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inovacc/aimodels/internal/fields"
	"github.com/inovacc/aimodels/internal/mars"
)

func testQueuedClient(t *testing.T, srv *httptest.Server) *queuedClient {
	t.Helper()

	c := newQueuedClient(srv.URL, map[string]string{"PRIVATE-TOKEN": "secret"}, slog.Default())
	c.pollInterval = time.Millisecond
	return c
}

func TestQueuedRetrieve(t *testing.T) {
	var polls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("POST /requests", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("PRIVATE-TOKEN"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "20230101", body["date"])

		_ = json.NewEncoder(w).Encode(statusResponse{Status: "Queued", Href: "status/1"})
	})
	mux.HandleFunc("GET /status/1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 2 {
			_ = json.NewEncoder(w).Encode(statusResponse{Status: "running", Href: "status/1"})
			return
		}
		_ = json.NewEncoder(w).Encode(statusResponse{Status: "complete", Result: "result/1"})
	})
	mux.HandleFunc("GET /result/1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("netcdf bytes"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := testQueuedClient(t, srv)

	r := mars.Request{}
	r.Set("date", "20230101")

	cacheDir := t.TempDir()
	path, err := c.retrieve(context.Background(), "requests", requestBody(r, nil), cacheDir)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("netcdf bytes"), got)
	assert.GreaterOrEqual(t, polls.Load(), int64(2))
}

func TestQueuedRetrieveFailed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /requests", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(statusResponse{Status: "failed", Reason: "no data"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := testQueuedClient(t, srv)

	_, err := c.retrieve(context.Background(), "requests", map[string]any{}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data")
}

func TestQueuedRetrieveUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c := testQueuedClient(t, srv)

	_, err := c.retrieve(context.Background(), "requests", map[string]any{}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestRequestBody(t *testing.T) {
	r := mars.Request{}
	r.Set("date", "20230101")
	r.Set("param", "z", "t")

	got := requestBody(r, map[string]any{"format": "netcdf"})

	assert.Equal(t, "20230101", got["date"])
	assert.Equal(t, []string{"z", "t"}, got["param"])
	assert.Equal(t, "netcdf", got["format"])
}

func TestMakeZFromGH(t *testing.T) {
	l := fields.List{
		{Param: "gh", Levtype: fields.LevtypePressure, Level: 500, Values: []float32{1, 2}},
		{Param: "t", Levtype: fields.LevtypePressure, Level: 500, Values: []float32{280}},
	}

	got := MakeZFromGH(l)
	require.Len(t, got, 2)

	assert.Equal(t, "z", got[0].Param)
	assert.InDelta(t, 9.80665, got[0].Values[0], 1e-4)
	assert.InDelta(t, 2*9.80665, got[0].Values[1], 1e-4)

	// Original list is untouched.
	assert.Equal(t, "gh", l[0].Param)
	assert.Equal(t, float32(1), l[0].Values[0])

	assert.Equal(t, "t", got[1].Param)
}

func TestFileSourceRequiresFile(t *testing.T) {
	_, err := New("file", Params{})
	assert.Error(t, err)
}

func TestAvailableInputs(t *testing.T) {
	names := Available()

	for _, want := range []string{"mars", "cds", "opendata", "file"} {
		assert.Contains(t, names, want)
	}
}
