package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"degree-service/internal/models"
	"degree-service/internal/scoring"
	"degree-service/internal/service"
	"degree-service/internal/storage"

	"github.com/gin-gonic/gin"
)

type ScoreSheetHandler struct {
	Service *service.ScoringService
	Storage storage.Store
}

func NewScoreSheetHandler(s *service.ScoringService, store storage.Store) *ScoreSheetHandler {
	return &ScoreSheetHandler{Service: s, Storage: store}
}

type attemptRequest struct {
	NodeKind models.NodeKind           `json:"node_kind" binding:"required"`
	NodeID   string                    `json:"node_id" binding:"required"`
	Answers  []scoring.SubmittedAnswer `json:"answers" binding:"required"`
}

// SubmitAttempt accepts a test submission as JSON, or as multipart form
// data with a "payload" JSON field plus one attachment per question id.
// Attachments are stored before any scoring state is touched, so an upload
// failure leaves no half-recorded attempt.
func (h *ScoreSheetHandler) SubmitAttempt(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	degreeID := c.Param("degreeId")

	var req attemptRequest
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := json.Unmarshal([]byte(c.PostForm("payload")), &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid payload field",
				"details": err.Error(),
			})
			return
		}
		if err := h.attachFiles(c, req.Answers); err != nil {
			abortWithError(c, err)
			return
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid submission format",
				"details": err.Error(),
			})
			return
		}
	}

	sheet, err := h.Service.SubmitAttempt(context.Background(), userID, degreeID, req.NodeKind, req.NodeID, req.Answers)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":     "Attempt recorded",
		"score_sheet": sheet,
	})
}

// attachFiles uploads each multipart file keyed by question id and stamps
// the returned reference into the matching answer.
func (h *ScoreSheetHandler) attachFiles(c *gin.Context, answers []scoring.SubmittedAnswer) error {
	form, err := c.MultipartForm()
	if err != nil {
		return err
	}
	for i := range answers {
		files := form.File[answers[i].QuestionID]
		if len(files) == 0 {
			continue
		}
		f, err := files[0].Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return err
		}
		url, err := h.Storage.Store(c.Request.Context(), data, files[0].Filename)
		if err != nil {
			return err
		}
		answers[i].FileURL = url
	}
	return nil
}

// GetScoreSheet returns the calling user's score sheet for a degree.
func (h *ScoreSheetHandler) GetScoreSheet(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	degreeID := c.Param("degreeId")

	sheet, err := h.Service.GetScoreSheet(context.Background(), userID, degreeID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sheet)
}

// ListDegreeScoreSheets returns every user's score sheet for a degree, for
// graders working through pending free-response answers.
func (h *ScoreSheetHandler) ListDegreeScoreSheets(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}
	sheets, err := h.Service.ListScoreSheets(context.Background(), c.Param("degreeId"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sheets)
}

// UpdateMarks applies manual grading corrections to a learner's
// free-response answers. The target user comes from the path: graders
// amend other users' sheets.
func (h *ScoreSheetHandler) UpdateMarks(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}
	userID := c.Param("userId")
	degreeID := c.Param("degreeId")

	var req struct {
		UpdatedMarks map[string]float64 `json:"updated_marks" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid corrections format",
			"details": err.Error(),
		})
		return
	}

	sheet, err := h.Service.AmendMarks(context.Background(), userID, degreeID, req.UpdatedMarks)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Marks updated successfully",
		"score_sheet": sheet,
	})
}
