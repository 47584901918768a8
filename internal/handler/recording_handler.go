package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// RecordingHandler implements GET /api/recording/:file: it streams a
// recorded file from the recordings directory, rejecting any path-traversal
// attempt by requiring the request's file component to be a bare basename.
type RecordingHandler struct {
	dir string
}

// NewRecordingHandler builds the recording download handler bound to dir.
func NewRecordingHandler(dir string) *RecordingHandler {
	return &RecordingHandler{dir: dir}
}

// Download handles GET /api/recording/:file.
func (h *RecordingHandler) Download(c *gin.Context) {
	name := c.Param("file")
	base := filepath.Base(name)
	if base != name || base == "." || base == ".." || base == "/" || base == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	path := filepath.Join(h.dir, base)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.File(path)
}
