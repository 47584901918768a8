package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRecordingTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	h := NewRecordingHandler(dir)
	r := gin.New()
	r.GET("/api/recording/:file", h.Download)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, dir
}

func TestRecordingDownloadServesExistingFile(t *testing.T) {
	srv, dir := newRecordingTestServer(t)
	if err := os.WriteFile(filepath.Join(dir, "broadcast-abc123.webm"), []byte("audio-bytes"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/recording/broadcast-abc123.webm")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRecordingDownloadMissingFileReturns404(t *testing.T) {
	srv, _ := newRecordingTestServer(t)

	resp, err := http.Get(srv.URL + "/api/recording/doesnotexist.webm")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRecordingDownloadRejectsPathTraversal(t *testing.T) {
	srv, dir := newRecordingTestServer(t)
	secret := filepath.Join(filepath.Dir(dir), "secret.txt")
	if err := os.WriteFile(secret, []byte("top-secret"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(secret) })

	resp, err := http.Get(srv.URL + "/api/recording/..%2Fsecret.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected traversal attempt rejected with 404, got %d", resp.StatusCode)
	}
}

func TestRecordingDownloadRejectsNestedPath(t *testing.T) {
	srv, dir := newRecordingTestServer(t)
	nested := filepath.Join(dir, "nested")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(nested, "file.webm"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/recording/nested%2Ffile.webm")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected nested path rejected with 404, got %d", resp.StatusCode)
	}
}
