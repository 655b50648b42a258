package orders

import "time"

// POST /orders
type CreateOrderRequest struct {
	ProductID   uint64 `json:"productId" binding:"required"`
	OwnerID     uint64 `json:"ownerId" binding:"required"`
	StartOfRent string `json:"startOfRent" binding:"required,rentdate"`
	EndOfRent   string `json:"endOfRent" binding:"required,rentdate"`
}

type OrderResponse struct {
	OrderID     string     `json:"orderId"`
	ProductID   uint64     `json:"productId"`
	OwnerID     uint64     `json:"ownerId"`
	RenterID    uint64     `json:"renterId"`
	StartOfRent time.Time  `json:"startOfRent"`
	EndOfRent   time.Time  `json:"endOfRent"`
	RentalDays  int64      `json:"rentalDays"`
	UnitPrice   int64      `json:"unitPrice"`
	Total       int64      `json:"total"`
	State       State      `json:"state"`
	CreatedAt   time.Time  `json:"createdAt"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	CancelledBy *uint64    `json:"cancelledBy,omitempty"`
}

type ListOrdersResult struct {
	Items      []OrderResponse `json:"items"`
	Total      int64           `json:"total"`
	NextOffset int             `json:"next_offset"`
}
