package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Categories is the fixed set of product categories.
var Categories = []string{
	"Electronics",
	"Clothing",
	"Shoes",
	"Home & Kitchen",
	"Sports",
	"Beauty",
	"Books",
	"Toys",
	"Groceries",
	"Jewelry",
}

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	for _, cat := range Categories {
		if cat == c {
			return true
		}
	}
	return false
}

// ProductImage identifies an uploaded product image by URL and storage key.
type ProductImage struct {
	URL string `bson:"url" json:"url"`
	ID  string `bson:"id" json:"id"`
}

// Product represents a product listing document.
type Product struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Owner          primitive.ObjectID `bson:"owner"`
	Name           string             `bson:"name"`
	Price          float64            `bson:"price"`
	PurchasingDate time.Time          `bson:"purchasing_date"`
	Category       string             `bson:"category"`
	Description    string             `bson:"description"`
	Images         []ProductImage     `bson:"images,omitempty"`
	Thumbnail      string             `bson:"thumbnail,omitempty"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

// ProductInput holds the scalar fields of a create/update request.
type ProductInput struct {
	Name           string
	Price          float64
	PurchasingDate time.Time
	Category       string
	Description    string
	Thumbnail      string
}

// ProductView is a product in API responses, with the seller resolved.
type ProductView struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Price          float64        `json:"price"`
	PurchasingDate time.Time      `json:"purchasingDate"`
	Category       string         `json:"category"`
	Description    string         `json:"description"`
	Images         []ProductImage `json:"images,omitempty"`
	Thumbnail      string         `json:"thumbnail"`
	Seller         PublicProfile  `json:"seller"`
}

// ToView converts a Product to its response shape.
func (p *Product) ToView(seller PublicProfile) ProductView {
	return ProductView{
		ID:             p.ID.Hex(),
		Name:           p.Name,
		Price:          p.Price,
		PurchasingDate: p.PurchasingDate,
		Category:       p.Category,
		Description:    p.Description,
		Images:         p.Images,
		Thumbnail:      p.Thumbnail,
		Seller:         seller,
	}
}
