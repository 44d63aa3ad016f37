package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"degree-service/internal/service"

	"github.com/gin-gonic/gin"
)

type ProgressHandler struct {
	Service *service.ProgressService
}

func NewProgressHandler(s *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{Service: s}
}

// CompleteLesson marks a lesson, or one of its sub-lessons, complete for
// the calling user and returns the updated degree-level mirror.
func (h *ProgressHandler) CompleteLesson(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	degreeID := c.Param("degreeId")
	lessonID := c.Param("lessonId")

	var req struct {
		SubLessonID string `json:"sub_lesson_id"`
	}
	// The body is optional. Always attempt the bind so chunked requests
	// (ContentLength -1) are read too; a bare EOF means no body was sent.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mirror, err := h.Service.CompleteLesson(context.Background(), userID, degreeID, lessonID, req.SubLessonID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Lesson progress updated",
		"progress": mirror,
	})
}

// GetProgress returns the calling user's progress mirror for a degree.
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	degreeID := c.Param("degreeId")

	mirror, err := h.Service.GetProgress(context.Background(), userID, degreeID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, mirror)
}
