package models

// ReviewTargetType says whether a review rates a product or a shop.
type ReviewTargetType string

const (
	TargetProduct ReviewTargetType = "product"
	TargetShop    ReviewTargetType = "shop"
)

func (t ReviewTargetType) Valid() bool {
	return t == TargetProduct || t == TargetShop
}

// Review is unique per (author, order, target type, target id).
type Review struct {
	Base
	AuthorID   string           `gorm:"size:36;not null;uniqueIndex:idx_reviews_once,priority:1" json:"author_id"`
	OrderID    string           `gorm:"size:36;not null;uniqueIndex:idx_reviews_once,priority:2" json:"order_id"`
	TargetType ReviewTargetType `gorm:"size:16;not null;uniqueIndex:idx_reviews_once,priority:3;index:idx_reviews_target,priority:1" json:"target_type"`
	TargetID   string           `gorm:"size:36;not null;uniqueIndex:idx_reviews_once,priority:4;index:idx_reviews_target,priority:2" json:"target_id"`
	ShopID     string           `gorm:"size:36;not null;index" json:"shop_id"`
	Rating     int              `gorm:"not null" json:"rating"`
	Title      string           `gorm:"size:255" json:"title,omitempty"`
	Comment    string           `gorm:"type:text" json:"comment,omitempty"`
	IsVerified bool             `gorm:"not null" json:"is_verified"`
	IsApproved bool             `gorm:"not null" json:"is_approved"`
}
