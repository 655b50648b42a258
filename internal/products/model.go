package products

import (
	"database/sql"
	"time"
)

type Product struct {
	ProductID   uint64
	OwnerID     uint64
	Name        string
	Price       int64 // 1日あたりの単価
	Description string
	Location    string
	PictureID   sql.NullString
	Rented      bool // 注文の作成・キャンセルでのみ変わる
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Filter struct {
	NameContains string
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
