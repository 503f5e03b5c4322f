package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"cell-counter/internal/api"
	"cell-counter/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeService(t *testing.T, status int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(api.PingPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(api.PingResponse{Message: "pong", Version: "cellcount test"})
	})
	mux.HandleFunc(api.CountPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		f, fh, err := r.FormFile(api.ImageField)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(api.ErrorResponse{Error: err.Error()})
			return
		}
		data, _ := io.ReadAll(f)
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(api.ErrorResponse{ID: "x", Error: "roi: edge map is empty"})
			return
		}
		json.NewEncoder(w).Encode(api.CountResponse{
			ID:    fh.Filename,
			Count: len(data),
			Cells: []geometry.Cell{{X: 1, Y: 2}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func tempImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plate.tiff")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))
	return path
}

func TestPing(t *testing.T) {
	srv := fakeService(t, http.StatusOK)
	v, err := New(srv.URL, 0).Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cellcount test", v)
}

func TestCountFile(t *testing.T) {
	srv := fakeService(t, http.StatusOK)

	resp, err := New(srv.URL+"/", 0).CountFile(context.Background(), tempImage(t))
	require.NoError(t, err)
	assert.Equal(t, "plate.tiff", resp.ID)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, []geometry.Cell{{X: 1, Y: 2}}, resp.Cells)
}

func TestCountFile_ServerError(t *testing.T) {
	srv := fakeService(t, http.StatusUnprocessableEntity)

	_, err := New(srv.URL, 0).CountFile(context.Background(), tempImage(t))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnprocessableEntity, se.Status)
	assert.Equal(t, "roi: edge map is empty", se.Message)
}

func TestCountFile_Missing(t *testing.T) {
	_, err := New("127.0.0.1:1", 0).CountFile(context.Background(), filepath.Join(t.TempDir(), "none"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
