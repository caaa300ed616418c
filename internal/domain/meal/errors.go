package meal

import "errors"

// Domain errors for meal operations

var (
	// Entity validation errors
	ErrNoOwner             = errors.New("meal must have an owner")
	ErrNoInput             = errors.New("meal needs an image or a description")
	ErrInvalidMealType     = errors.New("invalid meal type")
	ErrInvalidQuantity     = errors.New("ingredient quantity must be greater than 0")
	ErrEmptyUnit           = errors.New("ingredient unit must not be empty")
	ErrEmptyIngredientName = errors.New("ingredient name must not be empty")

	// State transition errors
	ErrAlreadyAnalyzed  = errors.New("meal analysis already finished")
	ErrNoCalories       = errors.New("a completed analysis must carry calories")
	ErrMealNotFound     = errors.New("meal not found")
	ErrIngredientNotFound = errors.New("ingredient not found on meal")

	// Permission errors
	ErrNotMealOwner = errors.New("only the meal owner can perform this action")
)
