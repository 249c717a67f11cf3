package types

import (
	"fmt"
	"strings"
)

// Category is the closed set of task categories.
//
// Each category owns its own ring in the scheduler. The number of categories
// is fixed at build time and feeds the bound load threshold.
type Category uint8

const (
	// CategoryCompute marks CPU-bound tasks.
	CategoryCompute Category = iota
	// CategoryStorage marks IO-bound tasks.
	CategoryStorage

	numCategories
)

var categoryNames = [numCategories]string{
	CategoryCompute: "compute",
	CategoryStorage: "storage",
}

// Categories returns every category in declaration order.
func Categories() []Category {
	all := make([]Category, 0, numCategories)
	for c := range numCategories {
		all = append(all, c)
	}

	return all
}

// NumCategories returns the number of categories.
func NumCategories() int {
	return int(numCategories)
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	return c < numCategories
}

// String returns the category name.
func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", uint8(c))
	}

	return categoryNames[c]
}

// ParseCategory resolves a category by name (case-insensitive).
//
// Returns:
//   - Category: The matching category
//   - error: ErrUnknownCategory (wrapped) when no category matches
func ParseCategory(name string) (Category, error) {
	for c, n := range categoryNames {
		if strings.EqualFold(n, name) {
			return Category(c), nil //nolint:gosec // index bounded by numCategories
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, uint8(c))
	}

	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed

	return nil
}

// Task is an immutable unit of work.
type Task struct {
	// ID identifies the task; tasks sharing an ID hash to the same ring position.
	ID string `json:"id"`

	// Category selects the category ring consulted first.
	Category Category `json:"category"`

	// Weight is the load the task adds to the server it lands on.
	Weight int64 `json:"weight"`
}

// Validate checks the task fields. An empty ID is rejected since every such
// task would hash to the same ring position.
//
// Returns:
//   - error: ErrInvalidTask or ErrUnknownCategory (wrapped), nil if valid
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTask)
	}
	if t.Weight < 0 {
		return fmt.Errorf("%w: negative weight %d", ErrInvalidTask, t.Weight)
	}
	if !t.Category.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, t.Category)
	}

	return nil
}
