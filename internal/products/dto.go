package products

import "time"

// POST /products
type CreateProductRequest struct {
	Name        string  `json:"name" binding:"required,max=200"`
	Price       *int64  `json:"price" binding:"required,gte=0"`
	Description string  `json:"description" binding:"required,min=10,max=2000"`
	Location    string  `json:"location" binding:"required,max=200"`
	PictureID   *string `json:"pictureId,omitempty" binding:"omitempty,max=64"`
}

// PUT /products/:productId rented は受け付けない
type UpdateProductRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	Price       *int64  `json:"price" binding:"omitempty,gte=0"`
	Description *string `json:"description" binding:"omitempty,min=10,max=2000"`
	Location    *string `json:"location" binding:"omitempty,min=1,max=200"`
	PictureID   *string `json:"pictureId" binding:"omitempty,max=64"`
}

type ProductResponse struct {
	ID          uint64    `json:"id"`
	OwnerID     uint64    `json:"ownerId"`
	Name        string    `json:"name"`
	Price       int64     `json:"price"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	PictureID   *string   `json:"pictureId,omitempty"`
	Rented      bool      `json:"rented"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ListProductsResult struct {
	Items      []ProductResponse `json:"items"`
	Total      int64             `json:"total"`
	NextOffset int               `json:"next_offset"`
}
