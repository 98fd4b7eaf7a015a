package imgur

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/snapbot/internal/repository"
)

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "webshot-1.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG fake"), 0o600))
	return path
}

func TestUpload(t *testing.T) {
	var gotKey, gotFilename, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotKey = r.FormValue("key")
		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotFilename, gotBody = hdr.Filename, string(data)

		fmt.Fprint(w, `{"rsp": {"stat": "ok", "image": {"imgur_page": "http://img.host/abc"}}}`)
	}))
	defer srv.Close()

	u := NewUploader(srv.URL, "apikey", "", zap.NewNop())
	page, err := u.Upload(context.Background(), writeImage(t))
	require.NoError(t, err)

	assert.Equal(t, "http://img.host/abc", page)
	assert.Equal(t, "apikey", gotKey)
	assert.Equal(t, "snap.png", gotFilename)
	assert.Equal(t, "\x89PNG fake", gotBody)
}

func TestUpload_RemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rsp": {"stat": "fail", "error_code": 108, "error_msg": "Invalid API key"}}`)
	}))
	defer srv.Close()

	u := NewUploader(srv.URL, "bad", "", zap.NewNop())
	_, err := u.Upload(context.Background(), writeImage(t))
	require.Error(t, err)

	var upErr *repository.UploadError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, 108, upErr.Code)
	assert.Equal(t, "Invalid API key", upErr.Message)
	assert.True(t, errors.Is(err, repository.ErrUpload))
}

func TestUpload_GarbageResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `<html>bad gateway</html>`)
	}))
	defer srv.Close()

	u := NewUploader(srv.URL, "apikey", "", zap.NewNop())
	_, err := u.Upload(context.Background(), writeImage(t))
	assert.True(t, errors.Is(err, repository.ErrUpload))
}

func TestUpload_MissingFile(t *testing.T) {
	u := NewUploader("http://127.0.0.1:1", "apikey", "", zap.NewNop())
	_, err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "gone.png"))
	assert.True(t, errors.Is(err, repository.ErrUpload))
}
