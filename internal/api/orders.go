package api

import (
	"context"
	"fmt"

	"github.com/ecomapp/storefront/internal/domain"
)

// OrdersAPI wraps the /orders endpoints and the address book.
type OrdersAPI struct {
	client *Client
}

func NewOrdersAPI(client *Client) *OrdersAPI {
	return &OrdersAPI{client: client}
}

func (o *OrdersAPI) List(ctx context.Context, page, limit int) ([]domain.Order, *domain.Pagination, error) {
	var orders []domain.Order
	pagination, err := o.client.GetPage(ctx, "/orders", pageQuery(page, limit), &orders)
	if err != nil {
		return nil, nil, err
	}
	return orders, pagination, nil
}

func (o *OrdersAPI) ByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	if err := o.client.Get(ctx, fmt.Sprintf("/orders/%s", id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (o *OrdersAPI) Cancel(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	if err := o.client.Post(ctx, fmt.Sprintf("/orders/%s/cancel", id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (o *OrdersAPI) Addresses(ctx context.Context) ([]domain.Address, error) {
	var addresses []domain.Address
	if err := o.client.Get(ctx, "/addresses", nil, &addresses); err != nil {
		return nil, err
	}
	return addresses, nil
}

func (o *OrdersAPI) AddAddress(ctx context.Context, address domain.Address) (*domain.Address, error) {
	var saved domain.Address
	if err := o.client.Post(ctx, "/addresses", address, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (o *OrdersAPI) UpdateAddress(ctx context.Context, address domain.Address) (*domain.Address, error) {
	var saved domain.Address
	if err := o.client.Put(ctx, fmt.Sprintf("/addresses/%s", address.ID), address, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (o *OrdersAPI) DeleteAddress(ctx context.Context, id string) error {
	return o.client.Delete(ctx, fmt.Sprintf("/addresses/%s", id), nil)
}
