package products

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"rental-backend/internal/platform/apierr"
	"rental-backend/internal/platform/db"
)

type Store interface {
	// Insert sets p.ProductID.
	Insert(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id uint64) (Product, error)
	// ListAvailable returns products with rented = false.
	ListAvailable(ctx context.Context, f Filter, p Page) ([]Product, int64, error)
	ListByOwner(ctx context.Context, ownerID uint64, p Page) ([]Product, int64, error)
	// UpdateDetails writes everything except owner and rented.
	UpdateDetails(ctx context.Context, p *Product) error
	// DeleteIfAvailable fails with CONFLICT while the product is rented.
	DeleteIfAvailable(ctx context.Context, id uint64) error
}

type MySQLStore struct{ conn *sql.DB }

func NewStore(conn *sql.DB) *MySQLStore { return &MySQLStore{conn: conn} }

var (
	errNotFound = apierr.NotFound("product not found")
	errRented   = apierr.Conflict("product is rented; cancel its order first")
)

const selectProduct = `
	SELECT product_id, owner_id, name, price, description, location, picture_id, rented, created_at, updated_at
	FROM products`

func scanProduct(r interface{ Scan(...any) error }) (Product, error) {
	var p Product
	err := r.Scan(&p.ProductID, &p.OwnerID, &p.Name, &p.Price, &p.Description, &p.Location,
		&p.PictureID, &p.Rented, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, errNotFound
	}
	return p, db.Classify(err)
}

func (s *MySQLStore) Insert(ctx context.Context, p *Product) error {
	const q = `
	INSERT INTO products
	(owner_id, name, price, description, location, picture_id, rented, created_at, updated_at)
	VALUES
	(?, ?, ?, ?, ?, ?, 0, ?, ?)`
	res, err := s.conn.ExecContext(ctx, q, p.OwnerID, p.Name, p.Price, p.Description, p.Location,
		p.PictureID, p.CreatedAt, p.UpdatedAt)
	if db.IsMissingParent(err) {
		return apierr.NotFound("owner not found")
	}
	if err != nil {
		return db.Classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ProductID = uint64(id)
	return nil
}

func (s *MySQLStore) GetByID(ctx context.Context, id uint64) (Product, error) {
	return scanProduct(s.conn.QueryRowContext(ctx, selectProduct+` WHERE product_id = ?`, id))
}

// LIKE のワイルドカードをエスケープ
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *MySQLStore) ListAvailable(ctx context.Context, f Filter, p Page) ([]Product, int64, error) {
	where := ` WHERE rented = 0`
	var args []any
	if f.NameContains != "" {
		where += ` AND name LIKE ?`
		args = append(args, "%"+likeEscaper.Replace(f.NameContains)+"%")
	}
	return s.list(ctx, where, args, p)
}

func (s *MySQLStore) ListByOwner(ctx context.Context, ownerID uint64, p Page) ([]Product, int64, error) {
	return s.list(ctx, ` WHERE owner_id = ?`, []any{ownerID}, p)
}

func (s *MySQLStore) list(ctx context.Context, where string, args []any, p Page) (out []Product, total int64, err error) {
	p = p.normalize()

	err = db.ReadOnly(ctx, s.conn, func(ctx context.Context, q db.DBTX) error {
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
			return err
		}

		query := selectProduct + where + ` ORDER BY created_at DESC, product_id DESC LIMIT ? OFFSET ?`
		rows, err := q.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			pr, err := scanProduct(rows)
			if err != nil {
				return err
			}
			out = append(out, pr)
		}
		return rows.Err()
	})
	return out, total, err
}

func (s *MySQLStore) UpdateDetails(ctx context.Context, p *Product) error {
	const q = `
		UPDATE products
		SET name = ?, price = ?, description = ?, location = ?, picture_id = ?, updated_at = ?
		WHERE product_id = ?`
	res, err := s.conn.ExecContext(ctx, q, p.Name, p.Price, p.Description, p.Location, p.PictureID,
		p.UpdatedAt, p.ProductID)
	if err != nil {
		return db.Classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := s.GetByID(ctx, p.ProductID)
		return err
	}
	return nil
}

func (s *MySQLStore) DeleteIfAvailable(ctx context.Context, id uint64) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM products WHERE product_id = ? AND rented = 0`, id)
	if err != nil {
		return db.Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	// 消えなかった理由を判定
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return errRented
}
