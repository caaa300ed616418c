package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/platewise/v1/internal/infrastructure/http/middleware"
	"github.com/platewise/v1/internal/ports/inbound"
)

// MealHandler exposes meal ingestion and editing over JSON.
type MealHandler struct {
	meals inbound.MealService
}

// NewMealHandler creates a meal API handler.
func NewMealHandler(meals inbound.MealService) *MealHandler {
	return &MealHandler{meals: meals}
}

// RegisterRoutes mounts the meal routes on the given group.
func (h *MealHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/meals", h.CreateMeal)
	rg.GET("/meals/:mealID", h.GetMeal)
	rg.POST("/meals/:mealID/ingredients", h.AddIngredient)
	rg.PUT("/meals/:mealID/ingredients/:ingredientID", h.UpdateIngredient)
	rg.DELETE("/meals/:mealID/ingredients/:ingredientID", h.DeleteIngredient)
}

type createMealRequest struct {
	ImageHandle  string     `json:"image_handle"`
	Description  string     `json:"description"`
	MealTime     *time.Time `json:"meal_time"`
	DeclaredType string     `json:"meal_type"`
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`
}

// CreateMeal ingests one meal: persists it, runs AI analysis, validates,
// and returns the terminal state.
func (h *MealHandler) CreateMeal(c *gin.Context) {
	var req createMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "malformed request body")
		return
	}

	result, err := h.meals.CreateMeal(c.Request.Context(), inbound.CreateMealCommand{
		OwnerID:      middleware.OwnerID(c),
		ImageHandle:  req.ImageHandle,
		Description:  req.Description,
		MealTime:     req.MealTime,
		DeclaredType: req.DeclaredType,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetMeal returns one meal with its ingredients.
func (h *MealHandler) GetMeal(c *gin.Context) {
	mealID, ok := pathUUID(c, "mealID")
	if !ok {
		return
	}

	result, err := h.meals.GetMeal(c.Request.Context(), middleware.OwnerID(c), mealID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type ingredientRequest struct {
	Name      string                 `json:"name"`
	Category  string                 `json:"category"`
	Quantity  float64                `json:"quantity"`
	Unit      string                 `json:"unit"`
	Nutrition inbound.NutritionPatch `json:"nutrition"`
}

// UpdateIngredient applies one full after-image edit to an ingredient,
// logging the correction and training the library.
func (h *MealHandler) UpdateIngredient(c *gin.Context) {
	mealID, ok := pathUUID(c, "mealID")
	if !ok {
		return
	}
	ingredientID, ok := pathUUID(c, "ingredientID")
	if !ok {
		return
	}

	var req ingredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "malformed request body")
		return
	}

	result, err := h.meals.UpdateIngredient(c.Request.Context(), inbound.UpdateIngredientCommand{
		OwnerID:      middleware.OwnerID(c),
		MealID:       mealID,
		IngredientID: ingredientID,
		Name:         req.Name,
		Category:     req.Category,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		Nutrition:    req.Nutrition,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AddIngredient appends a manual ingredient to an existing meal.
func (h *MealHandler) AddIngredient(c *gin.Context) {
	mealID, ok := pathUUID(c, "mealID")
	if !ok {
		return
	}

	var req ingredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "malformed request body")
		return
	}

	view, err := h.meals.AddIngredient(c.Request.Context(), inbound.AddIngredientCommand{
		OwnerID:   middleware.OwnerID(c),
		MealID:    mealID,
		Name:      req.Name,
		Category:  req.Category,
		Quantity:  req.Quantity,
		Unit:      req.Unit,
		Nutrition: req.Nutrition,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// DeleteIngredient removes an ingredient from a meal.
func (h *MealHandler) DeleteIngredient(c *gin.Context) {
	mealID, ok := pathUUID(c, "mealID")
	if !ok {
		return
	}
	ingredientID, ok := pathUUID(c, "ingredientID")
	if !ok {
		return
	}

	if err := h.meals.DeleteIngredient(c.Request.Context(), middleware.OwnerID(c), mealID, ingredientID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// pathUUID parses a UUID path parameter, writing the rejection itself when
// the value is malformed.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondBadRequest(c, name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
