package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platewise/v1/internal/infrastructure/http/middleware"
	"github.com/platewise/v1/internal/ports/inbound"
)

// SuggestHandler exposes predictions, auto-complete, companion suggestions,
// and library analytics.
type SuggestHandler struct {
	suggestions inbound.SuggestionService
}

// NewSuggestHandler creates a suggestion API handler.
func NewSuggestHandler(suggestions inbound.SuggestionService) *SuggestHandler {
	return &SuggestHandler{suggestions: suggestions}
}

// RegisterRoutes mounts the suggestion routes on the given group.
func (h *SuggestHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/library/predictions", h.GetPrediction)
	rg.GET("/library/search", h.SearchPredictions)
	rg.GET("/library/stats", h.GetLibraryStats)
	rg.GET("/meals/:mealID/suggestions", h.GetMissingSuggestions)
	rg.GET("/corrections", h.ListCorrections)
}

// GetPrediction returns the library prediction for one ingredient name,
// falling back to a fuzzy match within the edit-distance bound.
func (h *SuggestHandler) GetPrediction(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		respondBadRequest(c, "name query parameter is required")
		return
	}

	prediction, err := h.suggestions.GetPrediction(c.Request.Context(), middleware.OwnerID(c), name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, prediction)
}

// SearchPredictions returns auto-complete candidates for a name prefix.
func (h *SuggestHandler) SearchPredictions(c *gin.Context) {
	prefix := c.Query("q")
	if prefix == "" {
		respondBadRequest(c, "q query parameter is required")
		return
	}
	limit := intQuery(c, "limit", 0)

	predictions, err := h.suggestions.SearchPredictions(c.Request.Context(), middleware.OwnerID(c), prefix, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"predictions": predictions})
}

// GetMissingSuggestions returns the habitual companions absent from a meal.
func (h *SuggestHandler) GetMissingSuggestions(c *gin.Context) {
	mealID, ok := pathUUID(c, "mealID")
	if !ok {
		return
	}

	suggestions, err := h.suggestions.GetMissingSuggestions(c.Request.Context(), middleware.OwnerID(c), mealID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// GetLibraryStats summarizes the caller's ingredient library.
func (h *SuggestHandler) GetLibraryStats(c *gin.Context) {
	stats, err := h.suggestions.GetLibraryStats(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ListCorrections returns the caller's correction telemetry, newest first.
func (h *SuggestHandler) ListCorrections(c *gin.Context) {
	query := inbound.ListCorrectionsQuery{
		FieldName: c.Query("field"),
		Offset:    intQuery(c, "offset", 0),
		Limit:     intQuery(c, "limit", 0),
	}
	var ok bool
	if query.Since, ok = timeQuery(c, "since"); !ok {
		return
	}
	if query.Until, ok = timeQuery(c, "until"); !ok {
		return
	}

	corrections, err := h.suggestions.ListCorrections(c.Request.Context(), middleware.OwnerID(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"corrections": corrections})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func timeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respondBadRequest(c, name+" must be RFC 3339")
		return nil, false
	}
	return &t, true
}
