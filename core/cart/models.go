package cart

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shulehub/shule/core/content"
)

// Line is one (user, content) pairing in the cart. At most one line exists
// per pairing; a stored quantity is always > 0.
type Line struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ContentID string    `json:"content_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`   // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Item is a line resolved against its content. Content is nil when the row
// was deleted; Unavailable also covers content that fell out of approval.
// Unavailable items are kept in listings but excluded from totals.
type Item struct {
	Line
	Content     *content.Content `json:"content,omitempty"`
	Unavailable bool             `json:"unavailable"`
}

// NewItem contains information needed to add content to the cart.
type NewItem struct {
	ContentID string `json:"content_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"min=1"`
}

func (ni *NewItem) Validate(validate *validator.Validate) error {
	if ni.Quantity == 0 {
		ni.Quantity = 1
	}
	return validate.Struct(ni)
}
