package users

import "time"

type User struct {
	UserID       uint64
	FirstName    string
	LastName     string
	Email        string // 正規化済み（textnorm.Email）
	PasswordHash string
	Address      string
	City         string
	State        string
	CEP          string
	Phone        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
