package httpx

import (
	"time"

	catalogdomain "github.com/ovenworks/bakehouse/internal/catalog/domain"
	"github.com/ovenworks/bakehouse/internal/order"
	"github.com/ovenworks/bakehouse/internal/order/domain"
)

type AddressDTO struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type CreateOrderItemDTO struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

type CreateOrderRequest struct {
	Items                []CreateOrderItemDTO `json:"items"`
	DeliveryAddress      AddressDTO           `json:"deliveryAddress"`
	DeliveryInstructions string               `json:"deliveryInstructions,omitempty"`
	PaymentMethod        string               `json:"paymentMethod"`
	Notes                string               `json:"notes,omitempty"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

type OrderItemResponse struct {
	Product     string  `json:"product"`
	ProductName string  `json:"productName,omitempty"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Subtotal    float64 `json:"subtotal"`
	Notes       string  `json:"notes,omitempty"`
}

type PaymentResponse struct {
	Method        string `json:"method"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId,omitempty"`
}

type DeliveryResponse struct {
	Address        AddressDTO `json:"address"`
	Instructions   string     `json:"instructions,omitempty"`
	TrackingNumber string     `json:"trackingNumber,omitempty"`
	EstimatedTime  *time.Time `json:"estimatedTime,omitempty"`
}

type OrderResponse struct {
	ID          string              `json:"id"`
	OrderNumber string              `json:"orderNumber"`
	User        string              `json:"user"`
	Items       []OrderItemResponse `json:"items"`
	Subtotal    float64             `json:"subtotal"`
	Tax         float64             `json:"tax"`
	Discount    float64             `json:"discount"`
	DeliveryFee float64             `json:"deliveryFee"`
	TotalAmount float64             `json:"totalAmount"`
	Status      string              `json:"status"`
	Payment     PaymentResponse     `json:"payment"`
	Delivery    DeliveryResponse    `json:"delivery"`
	Notes       string              `json:"notes,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

type OrderListResponse struct {
	Data       []OrderResponse  `json:"data"`
	Pagination order.Pagination `json:"pagination"`
}

type CreateProductRequest struct {
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	Price           float64 `json:"price"`
	Category        string  `json:"category,omitempty"`
	Stock           int     `json:"stock"`
	IsAvailable     *bool   `json:"isAvailable,omitempty"`
	PreparationTime int     `json:"preparationTime,omitempty"`
}

type AdjustStockRequest struct {
	Delta int `json:"delta"`
}

type ProductResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	Price           float64 `json:"price"`
	Category        string  `json:"category,omitempty"`
	Stock           int     `json:"stock"`
	IsAvailable     bool    `json:"isAvailable"`
	PreparationTime int     `json:"preparationTime,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Product string `json:"product,omitempty"`
}

func mapOrderToResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			Product:     it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
			Subtotal:    it.Subtotal,
			Notes:       it.Notes,
		}
	}
	return OrderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		User:        o.UserID,
		Items:       items,
		Subtotal:    o.Subtotal,
		Tax:         o.Tax,
		Discount:    o.Discount,
		DeliveryFee: o.DeliveryFee,
		TotalAmount: o.TotalAmount,
		Status:      string(o.Status),
		Payment: PaymentResponse{
			Method:        string(o.Payment.Method),
			Status:        string(o.Payment.Status),
			TransactionID: o.Payment.TransactionID,
		},
		Delivery: DeliveryResponse{
			Address: AddressDTO{
				Street:     o.Delivery.Address.Street,
				City:       o.Delivery.Address.City,
				State:      o.Delivery.Address.State,
				PostalCode: o.Delivery.Address.PostalCode,
				Country:    o.Delivery.Address.Country,
			},
			Instructions:   o.Delivery.Instructions,
			TrackingNumber: o.Delivery.TrackingNumber,
			EstimatedTime:  o.Delivery.EstimatedTime,
		},
		Notes:     o.Notes,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func mapProductToResponse(p *catalogdomain.Product) ProductResponse {
	return ProductResponse{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Price:           p.Price,
		Category:        p.Category,
		Stock:           p.Stock,
		IsAvailable:     p.IsAvailable,
		PreparationTime: p.PreparationTime,
	}
}
