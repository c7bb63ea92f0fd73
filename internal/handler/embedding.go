package handler

import (
	"fmt"
	"net/http"

	"tripcore/internal/model"
	"tripcore/internal/service"

	"github.com/gin-gonic/gin"
)

// EmbeddingHandler handles vibe embedding uploads from the image pipeline
type EmbeddingHandler struct {
	planner *service.PlannerService
}

// NewEmbeddingHandler creates a new embedding handler
func NewEmbeddingHandler(planner *service.PlannerService) *EmbeddingHandler {
	return &EmbeddingHandler{
		planner: planner,
	}
}

// BatchUpdate handles POST /api/v1/places/embeddings/batch
func (h *EmbeddingHandler) BatchUpdate(c *gin.Context) {
	var req model.EmbeddingBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if len(req.Embeddings) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No embeddings provided"})
		return
	}

	// Every vector in a batch must share the first one's dimension
	dim := len(req.Embeddings[0].Embedding)
	for i, item := range req.Embeddings {
		if len(item.Embedding) == 0 || len(item.Embedding) != dim {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Invalid embedding dimension at index %d: got %d, expected %d", i, len(item.Embedding), dim),
			})
			return
		}
	}

	success, errs := h.planner.UpdateVibeEmbeddings(c.Request.Context(), req.Embeddings)

	response := model.EmbeddingBatchResponse{
		Success: success,
		Failed:  len(req.Embeddings) - success,
		Errors:  errs,
	}

	if len(errs) > 0 {
		c.JSON(http.StatusPartialContent, response)
	} else {
		c.JSON(http.StatusOK, response)
	}
}
