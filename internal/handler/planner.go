package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tripcore/internal/model"
	"tripcore/internal/repository"
	"tripcore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PlannerHandler handles scoring, ranking, budget and verification requests
type PlannerHandler struct {
	planner      *service.PlannerService
	defaultLimit int
	maxLimit     int
}

// NewPlannerHandler creates a new planner handler
func NewPlannerHandler(planner *service.PlannerService, defaultLimit, maxLimit int) *PlannerHandler {
	return &PlannerHandler{
		planner:      planner,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// ScorePlace handles POST /api/v1/places/score
func (h *PlannerHandler) ScorePlace(c *gin.Context) {
	var req model.ScorePlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.planner.ScorePlace(&req.Place, &req.Reality))
}

// RescorePlace handles POST /api/v1/places/:place_id/score - score and persist one stored place
func (h *PlannerHandler) RescorePlace(c *gin.Context) {
	placeID := strings.TrimSpace(c.Param("place_id"))
	if placeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid place id"})
		return
	}

	place, err := h.planner.RescorePlace(c.Request.Context(), placeID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Place not found: " + placeID})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Scoring failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, place)
}

// RefreshReality handles POST /api/v1/cities/:city/reality/refresh
func (h *PlannerHandler) RefreshReality(c *gin.Context) {
	city, ok := cityParam(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.planner.RefreshReality(c.Request.Context(), city))
}

// ScoreCity handles POST /api/v1/cities/:city/score
func (h *PlannerHandler) ScoreCity(c *gin.Context) {
	city, ok := cityParam(c)
	if !ok {
		return
	}

	summary, err := h.planner.ScoreCity(c.Request.Context(), city)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Scoring failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ScoreCityStream handles POST /api/v1/cities/:city/score/stream - SSE per-place outcomes
func (h *PlannerHandler) ScoreCityStream(c *gin.Context) {
	city, ok := cityParam(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	runID := uuid.NewString()
	sendSSE(c, "start", map[string]any{"run_id": runID, "city": city})
	flusher.Flush()

	summary, err := h.planner.ScoreCityStream(c.Request.Context(), city, runID, func(outcome model.ScoreOutcome) {
		sendSSE(c, "outcome", outcome)
		flusher.Flush()
	})
	if err != nil {
		sendSSE(c, "error", map[string]any{"error": err.Error()})
		flusher.Flush()
		return
	}

	summary.Outcomes = nil
	sendSSE(c, "summary", summary)
	sendSSE(c, "done", nil)
	flusher.Flush()
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data == nil {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
		return
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, jsonData)
}

// Rank handles POST /api/v1/rank
func (h *PlannerHandler) Rank(c *gin.Context) {
	startTime := time.Now()

	var req model.RankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	results := h.planner.Rank(req.Places, req.Preferences, req.RealityPenalty)

	c.JSON(http.StatusOK, model.RankResponse{
		Results: results,
		Total:   len(results),
		Took:    time.Since(startTime).Milliseconds(),
	})
}

// Recommend handles POST /api/v1/cities/:city/recommendations
func (h *PlannerHandler) Recommend(c *gin.Context) {
	startTime := time.Now()

	city, ok := cityParam(c)
	if !ok {
		return
	}

	// An empty body asks for defaults
	var req model.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if req.Limit <= 0 {
		req.Limit = h.defaultLimit
	}
	if h.maxLimit > 0 && req.Limit > h.maxLimit {
		req.Limit = h.maxLimit
	}

	results, err := h.planner.Recommend(c.Request.Context(), city, req.Preferences, req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Recommendation failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.RankResponse{
		Results: results,
		Total:   len(results),
		Took:    time.Since(startTime).Milliseconds(),
	})
}

// Budget handles POST /api/v1/budget
func (h *PlannerHandler) Budget(c *gin.Context) {
	var req model.BudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.planner.PriceItinerary(c.Request.Context(), req))
}

// Verify handles POST /api/v1/itineraries/verify
func (h *PlannerHandler) Verify(c *gin.Context) {
	var req model.Itinerary
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.planner.VerifyItinerary(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func cityParam(c *gin.Context) (string, bool) {
	city := strings.TrimSpace(c.Param("city"))
	if city == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid city"})
		return "", false
	}
	return city, true
}
