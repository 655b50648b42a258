package memdb

import (
	"context"
	"sort"

	"rental-backend/internal/platform/apierr"
	"rental-backend/internal/rental/orders"
	"rental-backend/internal/users"
)

type userStore struct{ d *DB }

var (
	errUserNotFound = apierr.NotFound("user not found")
	errEmailTaken   = apierr.Conflict("email is already registered")
)

func (s userStore) emailTakenLocked(email string, except uint64) bool {
	for id, u := range s.d.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (s userStore) Create(_ context.Context, u *users.User) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if s.emailTakenLocked(u.Email, 0) {
		return errEmailTaken
	}
	s.d.nextUserID++
	u.UserID = s.d.nextUserID
	s.d.users[u.UserID] = *u
	return nil
}

func (s userStore) GetByID(_ context.Context, id uint64) (users.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	u, ok := s.d.users[id]
	if !ok {
		return users.User{}, errUserNotFound
	}
	return u, nil
}

func (s userStore) GetByEmail(_ context.Context, email string) (users.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, u := range s.d.users {
		if u.Email == email {
			return u, nil
		}
	}
	return users.User{}, errUserNotFound
}

func (s userStore) List(_ context.Context, p users.Page) ([]users.User, int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	rows := make([]users.User, 0, len(s.d.users))
	for _, u := range s.d.users {
		rows = append(rows, u)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })
	return window(rows, p.Limit, p.Offset), int64(len(rows)), nil
}

func (s userStore) Update(_ context.Context, u *users.User) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.users[u.UserID]; !ok {
		return errUserNotFound
	}
	if s.emailTakenLocked(u.Email, u.UserID) {
		return errEmailTaken
	}
	s.d.users[u.UserID] = *u
	return nil
}

func (s userStore) DeleteUnlessActive(_ context.Context, id uint64) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.users[id]; !ok {
		return errUserNotFound
	}
	for _, o := range s.d.orders {
		if o.State == orders.StateActive && (o.RenterID == id || o.OwnerID == id) {
			return apierr.Conflict("cancel your active orders before deleting the account")
		}
	}

	// ON DELETE CASCADE 相当
	for pid, p := range s.d.products {
		if p.OwnerID == id {
			s.d.deleteProductLocked(pid)
		}
	}
	for oid, o := range s.d.orders {
		if o.RenterID == id || o.OwnerID == id {
			delete(s.d.orders, oid)
		}
	}
	delete(s.d.users, id)
	return nil
}
