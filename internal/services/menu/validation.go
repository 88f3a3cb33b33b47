package menu

import (
	"fmt"
	"unicode/utf8"
)

// maxNameLength matches bill_items.name VARCHAR(50)
const maxNameLength = 50

// ValidationError names the menu field that failed a check
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateItems checks a menu definition before it becomes a catalog
func ValidateItems(items []Item) error {
	if len(items) == 0 {
		return ValidationError{
			Field:   "items",
			Message: "menu must contain at least one item",
		}
	}

	seen := make(map[string]int, len(items))
	for i, item := range items {
		if err := validateItem(item, i); err != nil {
			return err
		}
		if first, dup := seen[item.Name]; dup {
			return ValidationError{
				Field:   fmt.Sprintf("items[%d].name", i),
				Message: fmt.Sprintf("duplicate item name %q (first defined at items[%d])", item.Name, first),
			}
		}
		seen[item.Name] = i
	}
	return nil
}

func validateItem(item Item, index int) error {
	if item.Name == "" {
		return ValidationError{
			Field:   fmt.Sprintf("items[%d].name", index),
			Message: "item name is required",
		}
	}

	if utf8.RuneCountInString(item.Name) > maxNameLength {
		return ValidationError{
			Field:   fmt.Sprintf("items[%d].name", index),
			Message: fmt.Sprintf("item name must be at most %d characters", maxNameLength),
		}
	}

	if item.Price.IsNegative() {
		return ValidationError{
			Field:   fmt.Sprintf("items[%d].price", index),
			Message: "item price must not be negative",
		}
	}

	if item.Stock < 0 {
		return ValidationError{
			Field:   fmt.Sprintf("items[%d].stock", index),
			Message: "item stock must not be negative",
		}
	}
	return nil
}
