package users

import "time"

// POST /users
type RegisterRequest struct {
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,min=6,max=72"`
	Address   string `json:"address" binding:"max=255"`
	City      string `json:"city" binding:"max=100"`
	State     string `json:"state" binding:"max=100"`
	CEP       string `json:"cep" binding:"max=20"`
	Phone     string `json:"phone" binding:"max=30"`
}

// PUT /users/me 指定された項目だけ更新
type UpdateUserRequest struct {
	FirstName *string `json:"firstName" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName" binding:"omitempty,min=1,max=100"`
	Email     *string `json:"email" binding:"omitempty,email,max=255"`
	Password  *string `json:"password" binding:"omitempty,min=6,max=72"`
	Address   *string `json:"address" binding:"omitempty,max=255"`
	City      *string `json:"city" binding:"omitempty,max=100"`
	State     *string `json:"state" binding:"omitempty,max=100"`
	CEP       *string `json:"cep" binding:"omitempty,max=20"`
	Phone     *string `json:"phone" binding:"omitempty,max=30"`
}

type UserResponse struct {
	ID        uint64    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	CEP       string    `json:"cep"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

type ListUsersResult struct {
	Items      []UserResponse `json:"items"`
	Total      int64          `json:"total"`
	NextOffset int            `json:"next_offset"`
}
