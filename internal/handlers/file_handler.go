package handlers

import (
	"io"
	"net/http"

	"degree-service/internal/storage"

	"github.com/gin-gonic/gin"
)

type FileHandler struct {
	Storage *storage.GridFSStore
}

func NewFileHandler(store *storage.GridFSStore) *FileHandler {
	return &FileHandler{Storage: store}
}

// Upload stores a standalone attachment and returns its reference, for
// clients that upload before submitting.
func (h *FileHandler) Upload(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	url, err := h.Storage.Store(c.Request.Context(), data, file.Filename)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "File uploaded successfully",
		"file_url": url,
	})
}

// Download streams a stored attachment.
func (h *FileHandler) Download(c *gin.Context) {
	c.Header("Content-Type", "application/octet-stream")
	if err := h.Storage.Open(c.Request.Context(), c.Param("id"), c.Writer); err != nil {
		abortWithError(c, err)
		return
	}
}
