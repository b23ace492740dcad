package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ecomapp/storefront/internal/domain"
)

// ProductsAPI wraps the read-only catalog endpoints.
type ProductsAPI struct {
	client *Client
}

func NewProductsAPI(client *Client) *ProductsAPI {
	return &ProductsAPI{client: client}
}

func (p *ProductsAPI) List(ctx context.Context, page, limit int, filter *domain.ProductFilter, sort domain.SortOption) ([]domain.Product, *domain.Pagination, error) {
	query := pageQuery(page, limit)
	applyFilter(query, filter)
	if sort != "" {
		query.Set("sort", string(sort))
	}

	var products []domain.Product
	pagination, err := p.client.GetPage(ctx, "/products", query, &products)
	if err != nil {
		return nil, nil, err
	}
	return products, pagination, nil
}

func (p *ProductsAPI) ByID(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	if err := p.client.Get(ctx, fmt.Sprintf("/products/%s", id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (p *ProductsAPI) Trending(ctx context.Context, limit int) ([]domain.Product, error) {
	return p.collection(ctx, "/products/trending", limit)
}

func (p *ProductsAPI) BestSellers(ctx context.Context, limit int) ([]domain.Product, error) {
	return p.collection(ctx, "/products/best-sellers", limit)
}

func (p *ProductsAPI) NewArrivals(ctx context.Context, limit int) ([]domain.Product, error) {
	return p.collection(ctx, "/products/new-arrivals", limit)
}

func (p *ProductsAPI) Similar(ctx context.Context, productID string, limit int) ([]domain.Product, error) {
	return p.collection(ctx, fmt.Sprintf("/products/%s/similar", productID), limit)
}

func (p *ProductsAPI) Search(ctx context.Context, q string, page, limit int, filter *domain.ProductFilter) ([]domain.Product, *domain.Pagination, error) {
	query := pageQuery(page, limit)
	query.Set("q", q)
	applyFilter(query, filter)

	var products []domain.Product
	pagination, err := p.client.GetPage(ctx, "/products/search", query, &products)
	if err != nil {
		return nil, nil, err
	}
	return products, pagination, nil
}

func (p *ProductsAPI) Reviews(ctx context.Context, productID string, page, limit int) ([]domain.Review, *domain.Pagination, error) {
	var reviews []domain.Review
	pagination, err := p.client.GetPage(ctx, fmt.Sprintf("/products/%s/reviews", productID), pageQuery(page, limit), &reviews)
	if err != nil {
		return nil, nil, err
	}
	return reviews, pagination, nil
}

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Title   string `json:"title,omitempty"`
	Comment string `json:"comment"`
}

func (p *ProductsAPI) AddReview(ctx context.Context, productID string, input ReviewInput) (*domain.Review, error) {
	var review domain.Review
	if err := p.client.Post(ctx, fmt.Sprintf("/products/%s/reviews", productID), input, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

func (p *ProductsAPI) collection(ctx context.Context, path string, limit int) ([]domain.Product, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var products []domain.Product
	if err := p.client.Get(ctx, path, query, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func pageQuery(page, limit int) url.Values {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	return query
}

func applyFilter(query url.Values, filter *domain.ProductFilter) {
	if filter == nil {
		return
	}
	if filter.Category != "" {
		query.Set("category", string(filter.Category))
	}
	if len(filter.Subcategory) > 0 {
		query.Set("subcategory", strings.Join(filter.Subcategory, ","))
	}
	if len(filter.Brands) > 0 {
		query.Set("brands", strings.Join(filter.Brands, ","))
	}
	if filter.MinPrice > 0 {
		query.Set("minPrice", strconv.FormatFloat(filter.MinPrice, 'f', -1, 64))
	}
	if filter.MaxPrice > 0 {
		query.Set("maxPrice", strconv.FormatFloat(filter.MaxPrice, 'f', -1, 64))
	}
	if filter.MinRating > 0 {
		query.Set("rating", strconv.FormatFloat(filter.MinRating, 'f', -1, 64))
	}
	if filter.InStock {
		query.Set("inStock", "true")
	}
	if len(filter.Tags) > 0 {
		query.Set("tags", strings.Join(filter.Tags, ","))
	}
}
