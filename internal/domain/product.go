package domain

import "time"

type Category string

const (
	CategoryMen         Category = "men"
	CategoryWomen       Category = "women"
	CategoryJewellery   Category = "jewellery"
	CategoryAccessories Category = "accessories"
)

// Product is a denormalized catalog snapshot. Cart and wishlist items hold the
// copy taken at the time of add; it is not kept in sync with the live catalog.
type Product struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Price          float64           `json:"price"`
	OriginalPrice  float64           `json:"originalPrice,omitempty"`
	DiscountPct    float64           `json:"discount,omitempty"`
	Images         []string          `json:"images"`
	Category       Category          `json:"category"`
	Subcategory    string            `json:"subcategory,omitempty"`
	Brand          string            `json:"brand"`
	Rating         float64           `json:"rating"`
	ReviewCount    int               `json:"reviewCount"`
	InStock        bool              `json:"inStock"`
	Variants       []ProductVariant  `json:"variants,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

type ProductVariant struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"` // size, color, weight
	Name          string  `json:"name"`
	Value         string  `json:"value"`
	InStock       bool    `json:"inStock"`
	PriceModifier float64 `json:"priceModifier,omitempty"`
}

type SortOption string

const (
	SortPopularity   SortOption = "popularity"
	SortPriceLowHigh SortOption = "price-low-high"
	SortPriceHighLow SortOption = "price-high-low"
	SortNewest       SortOption = "newest"
	SortRating       SortOption = "rating"
)

// ProductFilter narrows catalog listings and searches.
type ProductFilter struct {
	Category    Category `json:"category,omitempty"`
	Subcategory []string `json:"subcategory,omitempty"`
	Brands      []string `json:"brands,omitempty"`
	MinPrice    float64  `json:"minPrice,omitempty"`
	MaxPrice    float64  `json:"maxPrice,omitempty"`
	MinRating   float64  `json:"rating,omitempty"`
	InStock     bool     `json:"inStock,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	ProductID string    `json:"productId"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title,omitempty"`
	Comment   string    `json:"comment"`
	Helpful   int       `json:"helpful"`
	CreatedAt time.Time `json:"createdAt"`
}

// Pagination describes the paging envelope returned by list endpoints.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}
