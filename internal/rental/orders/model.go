package orders

import (
	"database/sql"
	"time"
)

type State string

const (
	StateActive    State = "active"
	StateCancelled State = "cancelled"
)

// DBモデル
type Order struct {
	OrderID     string // ULID
	ProductID   uint64
	OwnerID     uint64 // 注文時点の商品オーナー
	RenterID    uint64
	StartOfRent time.Time
	EndOfRent   time.Time
	UnitPrice   int64 // 1日あたり
	Total       int64
	State       State
	CreatedAt   time.Time
	CancelledAt sql.NullTime
	CancelledBy sql.NullInt64
}

// Involves reports whether principal is the renter or the product owner of o.
func (o Order) Involves(principal uint64) bool {
	return principal == o.RenterID || principal == o.OwnerID
}

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" | "desc"
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

func (p Page) normalize() Page {
	if p.Limit <= 0 || p.Limit > maxLimit {
		p.Limit = defaultLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Order != "asc" {
		p.Order = "desc"
	}
	return p
}
