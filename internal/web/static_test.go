package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, body string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
}

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestMediaHandler_ServesFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sounds/rain.mp3", "audio-bytes")

	h := NewMediaHandler(root)

	w := serve(h, "/media/sounds/rain.mp3")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio-bytes", w.Body.String())
}

func TestMediaHandler_NoDirectoryListing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sounds/rain.mp3", "audio-bytes")

	h := NewMediaHandler(root)

	assert.Equal(t, http.StatusNotFound, serve(h, "/media/sounds/").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, "/media/missing.mp3").Code)
}

func TestSPAHandler_FallsBackToIndex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "<html>app</html>")
	writeFile(t, dir, "assets/app.js", "console.log(1)")

	h := NewSPAHandler(dir)

	tests := []struct {
		target string
		want   string
	}{
		{"/", "<html>app</html>"},
		{"/garden/week", "<html>app</html>"},
		{"/assets/app.js", "console.log(1)"},
		{"/assets", "<html>app</html>"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := serve(h, tt.target)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestSPAHandler_MissingIndex(t *testing.T) {
	h := NewSPAHandler(t.TempDir())

	assert.Equal(t, http.StatusNotFound, serve(h, "/anything").Code)
}
