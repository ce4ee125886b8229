package shopping

import (
	"errors"
	"fmt"
)

var (
	// ErrNothingToGenerate means no meal-plan entries matched the selection.
	ErrNothingToGenerate = errors.New("no meals planned for the selected members and dates")
	// ErrNoIngredients means the planned meals resolved to no ingredients.
	ErrNoIngredients = errors.New("the planned meals have no ingredients")
	// ErrConfirmationRequired means generating would replace an existing list
	// and the caller has not agreed to that.
	ErrConfirmationRequired = errors.New("the shopping list already has items; confirm to replace them")

	ErrNoMembers       = errors.New("select at least one household member")
	ErrInvalidDate     = errors.New("dates must be YYYY-MM-DD")
	ErrInvalidRange    = errors.New("start date must not be after end date")
	ErrInvalidServings = errors.New("servings must be a positive number")
	ErrNoItems         = errors.New("no matching shopping list items")
	ErrEmptyName       = errors.New("item name is required")
)

// IsNoData reports whether err is an informational "nothing to do" condition
// rather than a failure.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNothingToGenerate) || errors.Is(err, ErrNoIngredients)
}

// StoreError wraps a persistence failure with the step that failed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
