package users

import (
	"context"
	"database/sql"
	"errors"

	"rental-backend/internal/platform/apierr"
	"rental-backend/internal/platform/db"
)

type Store interface {
	// Create sets u.UserID. A taken email yields CONFLICT.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uint64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, p Page) ([]User, int64, error)
	Update(ctx context.Context, u *User) error
	// DeleteUnlessActive removes the user with their products and orders,
	// or fails with CONFLICT while the user is party to an active order.
	DeleteUnlessActive(ctx context.Context, id uint64) error
}

type MySQLStore struct{ conn *sql.DB }

func NewStore(conn *sql.DB) *MySQLStore { return &MySQLStore{conn: conn} }

var (
	errEmailTaken = apierr.Conflict("email is already registered")
	errNotFound   = apierr.NotFound("user not found")
)

const selectUser = `
	SELECT user_id, first_name, last_name, email, password_hash,
	       address, city, state, cep, phone, created_at, updated_at
	FROM users`

func scanUser(r interface{ Scan(...any) error }) (User, error) {
	var u User
	err := r.Scan(&u.UserID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&u.Address, &u.City, &u.State, &u.CEP, &u.Phone, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, errNotFound
	}
	return u, db.Classify(err)
}

func (s *MySQLStore) Create(ctx context.Context, u *User) error {
	const q = `
	INSERT INTO users
	(first_name, last_name, email, password_hash, address, city, state, cep, phone, created_at, updated_at)
	VALUES
	(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.conn.ExecContext(ctx, q, u.FirstName, u.LastName, u.Email, u.PasswordHash,
		u.Address, u.City, u.State, u.CEP, u.Phone, u.CreatedAt, u.UpdatedAt)
	if db.IsDuplicate(err) {
		return errEmailTaken
	}
	if err != nil {
		return db.Classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.UserID = uint64(id)
	return nil
}

func (s *MySQLStore) GetByID(ctx context.Context, id uint64) (User, error) {
	return scanUser(s.conn.QueryRowContext(ctx, selectUser+` WHERE user_id = ?`, id))
}

func (s *MySQLStore) GetByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.conn.QueryRowContext(ctx, selectUser+` WHERE email = ?`, email))
}

func (s *MySQLStore) List(ctx context.Context, p Page) ([]User, int64, error) {
	p = p.normalize()
	var total int64
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, db.Classify(err)
	}
	rows, err := s.conn.QueryContext(ctx, selectUser+` ORDER BY user_id LIMIT ? OFFSET ?`, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, db.Classify(err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, db.Classify(rows.Err())
}

func (s *MySQLStore) Update(ctx context.Context, u *User) error {
	const q = `
		UPDATE users
		SET first_name = ?, last_name = ?, email = ?, password_hash = ?,
		    address = ?, city = ?, state = ?, cep = ?, phone = ?, updated_at = ?
		WHERE user_id = ?`
	res, err := s.conn.ExecContext(ctx, q, u.FirstName, u.LastName, u.Email, u.PasswordHash,
		u.Address, u.City, u.State, u.CEP, u.Phone, u.UpdatedAt, u.UserID)
	if db.IsDuplicate(err) {
		return errEmailTaken
	}
	if err != nil {
		return db.Classify(err)
	}
	// 値が同じだと RowsAffected=0 になるので存在確認は別に行う
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := s.GetByID(ctx, u.UserID)
		return err
	}
	return nil
}

func (s *MySQLStore) DeleteUnlessActive(ctx context.Context, id uint64) error {
	return db.RunInTx(ctx, s.conn, nil, func(ctx context.Context, tx db.DBTX) error {
		var locked uint64
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM users WHERE user_id = ? FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return errNotFound
		}
		if err != nil {
			return err
		}

		const active = `
			SELECT COUNT(*) FROM orders
			WHERE state = 'active' AND (renter_id = ? OR owner_id = ?)`
		var n int
		if err := tx.QueryRowContext(ctx, active, id, id).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return apierr.Conflict("cancel your active orders before deleting the account")
		}

		// products / orders は ON DELETE CASCADE
		_, err = tx.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, id)
		return err
	})
}
