package handlers

import (
	"context"
	"net/http"

	"degree-service/internal/service"

	"github.com/gin-gonic/gin"
)

type DegreeHandler struct {
	Service *service.DegreeService
}

func NewDegreeHandler(s *service.DegreeService) *DegreeHandler {
	return &DegreeHandler{Service: s}
}

func (h *DegreeHandler) ListDegrees(c *gin.Context) {
	degrees, err := h.Service.ListDegrees(context.Background())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, degrees)
}

func (h *DegreeHandler) GetDegree(c *gin.Context) {
	degree, err := h.Service.GetTree(context.Background(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, degree)
}
