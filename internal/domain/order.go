package domain

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
	OrderReturned  OrderStatus = "returned"
)

type Order struct {
	ID              string      `json:"id"`
	OrderNumber     string      `json:"orderNumber"`
	Items           []OrderItem `json:"items"`
	Subtotal        float64     `json:"subtotal"`
	Discount        float64     `json:"discount"`
	Tax             float64     `json:"tax"`
	ShippingCost    float64     `json:"shippingCost"`
	Total           float64     `json:"total"`
	Status          OrderStatus `json:"status"`
	PaymentMethod   string      `json:"paymentMethod"`
	ShippingAddress Address     `json:"shippingAddress"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

type OrderItem struct {
	ID       string          `json:"id"`
	Product  Product         `json:"product"`
	Variant  *ProductVariant `json:"variant,omitempty"`
	Quantity int             `json:"quantity"`
	Price    float64         `json:"price"`
	Total    float64         `json:"total"`
}

type Address struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	Country      string `json:"country"`
	IsDefault    bool   `json:"isDefault"`
	Type         string `json:"type"` // home, work, other
}
