// internal/domain/cart/entity.go
package cart

import (
	"github.com/shopspring/decimal"
)

// DefaultStorageKey is the well-known key the cart is persisted under
const DefaultStorageKey = "elearning_cart"

// CartItem is one course in a shopper's cart. ID is the course identifier.
type CartItem struct {
	ID         int64           `json:"id" binding:"required,min=1"`
	Title      string          `json:"title" binding:"required"`
	Price      decimal.Decimal `json:"price"`
	Instructor string          `json:"instructor"`
	Thumbnail  string          `json:"thumbnail"`
	Level      string          `json:"level"`
	Duration   string          `json:"duration"`
}

// Snapshot is an immutable view of the cart handed to readers and observers
type Snapshot struct {
	Items []CartItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// CourseIDs returns the ids of the snapshot items in display order
func (s Snapshot) CourseIDs() []int64 {
	ids := make([]int64, len(s.Items))
	for i, item := range s.Items {
		ids[i] = item.ID
	}
	return ids
}

func newSnapshot(items []CartItem) Snapshot {
	copied := make([]CartItem, len(items))
	copy(copied, items)
	return Snapshot{
		Items: copied,
		Total: sum(items),
		Count: len(items),
	}
}

func sum(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price)
	}
	return total
}
