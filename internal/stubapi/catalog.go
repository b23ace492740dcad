package stubapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ecomapp/storefront/internal/domain"
)

func (s *Server) productByIDLocked(id string) *domain.Product {
	for i := range s.catalog {
		if s.catalog[i].ID == id {
			return &s.catalog[i]
		}
	}
	return nil
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	matched := filterProducts(s.catalog, r)
	s.mu.Unlock()

	sortProducts(matched, domain.SortOption(r.URL.Query().Get("sort")))
	page, limit := queryInt(r, "page", 1), queryInt(r, "limit", 20)
	items, pagination := paginate(matched, page, limit)
	writePage(w, items, pagination)
}

func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))

	s.mu.Lock()
	matched := filterProducts(s.catalog, r)
	s.mu.Unlock()

	if q != "" {
		hits := matched[:0]
		for _, p := range matched {
			if strings.Contains(strings.ToLower(p.Name), q) ||
				strings.Contains(strings.ToLower(p.Description), q) ||
				strings.Contains(strings.ToLower(p.Brand), q) {
				hits = append(hits, p)
			}
		}
		matched = hits
	}

	page, limit := queryInt(r, "page", 1), queryInt(r, "limit", 20)
	items, pagination := paginate(matched, page, limit)
	writePage(w, items, pagination)
}

func (s *Server) handleProductByID(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	product := s.productByIDLocked(chi.URLParam(r, "id"))
	s.mu.Unlock()
	if product == nil {
		writeError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found.", nil)
		return
	}
	writeData(w, product)
}

// handleCollection serves trending, best-sellers, and new-arrivals. The stub
// distinguishes them only by ordering.
func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	products := make([]domain.Product, len(s.catalog))
	copy(products, s.catalog)
	s.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/trending"):
		sortProducts(products, domain.SortPopularity)
	case strings.HasSuffix(r.URL.Path, "/best-sellers"):
		sortProducts(products, domain.SortRating)
	default:
		sortProducts(products, domain.SortNewest)
	}

	limit := queryInt(r, "limit", 10)
	if limit > len(products) {
		limit = len(products)
	}
	writeData(w, products[:limit])
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product := s.productByIDLocked(chi.URLParam(r, "id"))
	if product == nil {
		writeError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found.", nil)
		return
	}

	limit := queryInt(r, "limit", 10)
	similar := make([]domain.Product, 0, limit)
	for _, p := range s.catalog {
		if p.ID != product.ID && p.Category == product.Category {
			similar = append(similar, p)
		}
		if len(similar) == limit {
			break
		}
	}
	writeData(w, similar)
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	s.mu.Lock()
	reviews := make([]domain.Review, len(s.reviews[productID]))
	copy(reviews, s.reviews[productID])
	s.mu.Unlock()

	page, limit := queryInt(r, "page", 1), queryInt(r, "limit", 10)
	items, pagination := paginate(reviews, page, limit)
	writePage(w, items, pagination)
}

func (s *Server) handleAddReview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rating  int    `json:"rating"`
		Title   string `json:"title"`
		Comment string `json:"comment"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Rating < 1 || body.Rating > 5 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Rating must be between 1 and 5.",
			map[string]string{"rating": "Rating must be between 1 and 5."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	productID := chi.URLParam(r, "id")
	product := s.productByIDLocked(productID)
	if product == nil {
		writeError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found.", nil)
		return
	}
	acc := s.accounts[emailFrom(r.Context())]
	review := domain.Review{
		ID:        uuid.NewString(),
		UserID:    acc.user.ID,
		UserName:  acc.user.Name,
		ProductID: productID,
		Rating:    body.Rating,
		Title:     body.Title,
		Comment:   body.Comment,
		CreatedAt: now(),
	}
	s.reviews[productID] = append(s.reviews[productID], review)

	product.ReviewCount++
	total := 0
	for _, rv := range s.reviews[productID] {
		total += rv.Rating
	}
	product.Rating = float64(total) / float64(len(s.reviews[productID]))

	writeData(w, review)
}

func filterProducts(catalog []domain.Product, r *http.Request) []domain.Product {
	q := r.URL.Query()
	category := q.Get("category")
	brands := splitList(q.Get("brands"))
	tags := splitList(q.Get("tags"))
	minPrice, _ := strconv.ParseFloat(q.Get("minPrice"), 64)
	maxPrice, _ := strconv.ParseFloat(q.Get("maxPrice"), 64)
	minRating, _ := strconv.ParseFloat(q.Get("rating"), 64)
	inStock := q.Get("inStock") == "true"

	matched := make([]domain.Product, 0, len(catalog))
	for _, p := range catalog {
		if category != "" && string(p.Category) != category {
			continue
		}
		if len(brands) > 0 && !contains(brands, p.Brand) {
			continue
		}
		if len(tags) > 0 && !anyOverlap(tags, p.Tags) {
			continue
		}
		if minPrice > 0 && p.Price < minPrice {
			continue
		}
		if maxPrice > 0 && p.Price > maxPrice {
			continue
		}
		if minRating > 0 && p.Rating < minRating {
			continue
		}
		if inStock && !p.InStock {
			continue
		}
		matched = append(matched, p)
	}
	return matched
}

func sortProducts(products []domain.Product, by domain.SortOption) {
	switch by {
	case domain.SortPriceLowHigh:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price < products[j].Price })
	case domain.SortPriceHighLow:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price > products[j].Price })
	case domain.SortNewest:
		sort.SliceStable(products, func(i, j int) bool { return products[i].CreatedAt.After(products[j].CreatedAt) })
	case domain.SortRating:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Rating > products[j].Rating })
	case domain.SortPopularity:
		sort.SliceStable(products, func(i, j int) bool { return products[i].ReviewCount > products[j].ReviewCount })
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func anyOverlap(want, have []string) bool {
	for _, w := range want {
		if contains(have, w) {
			return true
		}
	}
	return false
}

func seedCatalog() []domain.Product {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Product{
		{
			ID:          "prod-tshirt-classic",
			Name:        "Classic Cotton T-Shirt",
			Description: "Heavyweight crew neck in combed cotton.",
			Price:       899,
			Images:      []string{"https://img.ecomapp.com/tshirt-classic.jpg"},
			Category:    domain.CategoryMen,
			Brand:       "Northwool",
			Rating:      4.3,
			ReviewCount: 241,
			InStock:     true,
			Variants: []domain.ProductVariant{
				{ID: "var-ts-s", Type: "size", Name: "Size", Value: "S", InStock: true},
				{ID: "var-ts-m", Type: "size", Name: "Size", Value: "M", InStock: true},
				{ID: "var-ts-l", Type: "size", Name: "Size", Value: "L", InStock: false},
			},
			Tags:      []string{"cotton", "basics"},
			CreatedAt: base,
		},
		{
			ID:            "prod-denim-jacket",
			Name:          "Washed Denim Jacket",
			Description:   "Relaxed fit with brass hardware.",
			Price:         3499,
			OriginalPrice: 4299,
			DiscountPct:   18,
			Images:        []string{"https://img.ecomapp.com/denim-jacket.jpg"},
			Category:      domain.CategoryWomen,
			Brand:         "Harbor & Lane",
			Rating:        4.7,
			ReviewCount:   88,
			InStock:       true,
			Tags:          []string{"denim", "outerwear"},
			CreatedAt:     base.AddDate(0, 1, 3),
		},
		{
			ID:          "prod-silver-pendant",
			Name:        "Sterling Silver Pendant",
			Description: "Hand-finished 925 silver on an 18 inch chain.",
			Price:       2199,
			Images:      []string{"https://img.ecomapp.com/silver-pendant.jpg"},
			Category:    domain.CategoryJewellery,
			Brand:       "Luma",
			Rating:      4.9,
			ReviewCount: 412,
			InStock:     true,
			Tags:        []string{"silver", "gift"},
			CreatedAt:   base.AddDate(0, 0, 12),
		},
		{
			ID:          "prod-canvas-belt",
			Name:        "Canvas Webbing Belt",
			Description: "Adjustable belt with matte black buckle.",
			Price:       499,
			Images:      []string{"https://img.ecomapp.com/canvas-belt.jpg"},
			Category:    domain.CategoryAccessories,
			Brand:       "Northwool",
			Rating:      3.9,
			ReviewCount: 35,
			InStock:     false,
			Tags:        []string{"basics"},
			CreatedAt:   base.AddDate(0, 2, 0),
		},
		{
			ID:          "prod-leather-tote",
			Name:        "Full-Grain Leather Tote",
			Description: "Unlined tote that patinas with use.",
			Price:       5999,
			Images:      []string{"https://img.ecomapp.com/leather-tote.jpg"},
			Category:    domain.CategoryAccessories,
			Brand:       "Harbor & Lane",
			Rating:      4.5,
			ReviewCount: 153,
			InStock:     true,
			Tags:        []string{"leather", "gift"},
			CreatedAt:   base.AddDate(0, 2, 20),
		},
	}
}
