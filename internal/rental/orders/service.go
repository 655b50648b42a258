package orders

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	ulid "github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"rental-backend/internal/platform/apierr"
	"rental-backend/internal/platform/db"
	"rental-backend/internal/platform/logging"
	"rental-backend/internal/platform/metrics"
	"rental-backend/internal/rental/availability"
	"rental-backend/internal/rental/pricing"
)

// -------------- Clock & ID --------------

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ NewULID(t time.Time) string }
type ulidGen struct{}

func (ulidGen) NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// -------------- Service --------------

// transient 失敗時の再実行回数
const txRetries = 1

type Service struct {
	store   Store
	metrics *metrics.Metrics
	tracer  trace.Tracer
	clock   Clock
	id      IDGen
}

type Option func(*Service)

func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }
func WithIDGen(g IDGen) Option { return func(s *Service) { s.id = g } }

func NewService(store Store, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		store:   store,
		metrics: m,
		tracer:  otel.Tracer("rental-backend/orders"),
		clock:   realClock{},
		id:      ulidGen{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// POST /orders
func (s *Service) Create(ctx context.Context, renterID uint64, in CreateOrderRequest) (res OrderResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.Create", trace.WithAttributes(
		attribute.Int64("product.id", int64(in.ProductID)),
		attribute.Int64("renter.id", int64(renterID)),
	))
	defer func() { s.finish(span, "create", err) }()

	// 1. 自分の商品は借りられない
	if renterID == in.OwnerID {
		return OrderResponse{}, apierr.SelfRental("cannot rent your own product")
	}

	// 2. 書き込み前に期間を検証
	start, err := pricing.ParseRentDate(in.StartOfRent)
	if err != nil {
		return OrderResponse{}, err
	}
	end, err := pricing.ParseRentDate(in.EndOfRent)
	if err != nil {
		return OrderResponse{}, err
	}
	if _, err := pricing.Days(start, end); err != nil {
		return OrderResponse{}, err
	}

	now := s.clock.Now()
	o := Order{
		OrderID:     s.id.NewULID(now),
		ProductID:   in.ProductID,
		OwnerID:     in.OwnerID,
		RenterID:    renterID,
		StartOfRent: start,
		EndOfRent:   end,
		State:       StateActive,
		CreatedAt:   now,
	}

	// 3-6. 行ロックを保持したまま 在庫確認 → 価格計算 → 注文INSERT + rented=true
	err = s.atomic(ctx, "create", func(ctx context.Context, tx Tx) error {
		p, err := availability.CheckAvailable(ctx, tx, in.ProductID)
		if err != nil {
			return err
		}
		if p.OwnerID != in.OwnerID {
			return apierr.OwnerMismatch(fmt.Sprintf("product %d is not owned by user %d", in.ProductID, in.OwnerID))
		}
		total, err := pricing.ComputeTotal(p.UnitPrice, start, end)
		if err != nil {
			return err
		}

		row := o
		row.UnitPrice, row.Total = p.UnitPrice, total
		if err := tx.InsertOrder(ctx, &row); err != nil {
			return err
		}
		if err := availability.Reserve(ctx, tx, in.ProductID); err != nil {
			return err
		}
		o = row
		return nil
	})
	if err != nil {
		return OrderResponse{}, err
	}

	logging.FromContext(ctx).Info("order created",
		zap.String("order_id", o.OrderID),
		zap.Uint64("product_id", o.ProductID),
		zap.Int64("total", o.Total),
	)
	return toResponse(o), nil
}

// DELETE /orders/:orderId
func (s *Service) Cancel(ctx context.Context, requesterID uint64, orderID string) (res OrderResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.Cancel", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.Int64("requester.id", int64(requesterID)),
	))
	defer func() { s.finish(span, "cancel", err) }()

	var o Order
	err = s.atomic(ctx, "cancel", func(ctx context.Context, tx Tx) error {
		cur, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !cur.Involves(requesterID) {
			return apierr.Forbidden("only the renter or the product owner can cancel this order")
		}
		if cur.State == StateCancelled {
			return apierr.AlreadyCancelled("order is already cancelled")
		}

		now := s.clock.Now()
		changed, err := tx.UpdateOrderState(ctx, orderID, StateActive, StateCancelled, now, requesterID)
		if err != nil {
			return err
		}
		if !changed {
			return apierr.AlreadyCancelled("order is already cancelled")
		}
		if err := availability.Release(ctx, tx, cur.ProductID); err != nil {
			return err
		}

		cur.State = StateCancelled
		cur.CancelledAt.Time, cur.CancelledAt.Valid = now, true
		cur.CancelledBy.Int64, cur.CancelledBy.Valid = int64(requesterID), true
		o = cur
		return nil
	})
	if err != nil {
		return OrderResponse{}, err
	}

	logging.FromContext(ctx).Info("order cancelled",
		zap.String("order_id", o.OrderID),
		zap.Uint64("product_id", o.ProductID),
		zap.Uint64("cancelled_by", requesterID),
	)
	return toResponse(o), nil
}

// GET /orders/:orderId  当事者以外には存在自体を見せない
func (s *Service) Get(ctx context.Context, requesterID uint64, orderID string) (OrderResponse, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return OrderResponse{}, err
	}
	if !o.Involves(requesterID) {
		return OrderResponse{}, apierr.NotFound("order not found")
	}
	return toResponse(o), nil
}

// GET /orders
func (s *Service) ListForRenter(ctx context.Context, renterID uint64, p Page) (ListOrdersResult, error) {
	p = p.normalize()
	rows, total, err := s.store.ListOrdersByRenter(ctx, renterID, p)
	if err != nil {
		return ListOrdersResult{}, err
	}
	return toList(rows, total, p)
}

// GET /users/me/orders/received
func (s *Service) ListForOwner(ctx context.Context, ownerID uint64, p Page) (ListOrdersResult, error) {
	p = p.normalize()
	rows, total, err := s.store.ListOrdersByOwner(ctx, ownerID, p)
	if err != nil {
		return ListOrdersResult{}, err
	}
	return toList(rows, total, p)
}

// atomic runs fn in one transaction and re-runs it once on a transient store failure.
func (s *Service) atomic(ctx context.Context, op string, fn func(ctx context.Context, tx Tx) error) error {
	onRetry := func(attempt int, err error) {
		s.metrics.TxRetry()
		logging.FromContext(ctx).Warn("retrying transaction",
			zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
	}
	return db.RetryTransient(ctx, txRetries, onRetry, func() error {
		return s.store.RunInTx(ctx, fn)
	})
}

func (s *Service) finish(span trace.Span, op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, db.ErrTransient):
		outcome = string(apierr.CodeTransient)
	default:
		outcome = string(apierr.CodeOf(err))
	}
	s.metrics.ObserveOrder(op, outcome)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.End()
}

// helpers

func toResponse(o Order) OrderResponse {
	days, _ := pricing.Days(o.StartOfRent, o.EndOfRent)
	r := OrderResponse{
		OrderID:     o.OrderID,
		ProductID:   o.ProductID,
		OwnerID:     o.OwnerID,
		RenterID:    o.RenterID,
		StartOfRent: o.StartOfRent,
		EndOfRent:   o.EndOfRent,
		RentalDays:  days,
		UnitPrice:   o.UnitPrice,
		Total:       o.Total,
		State:       o.State,
		CreatedAt:   o.CreatedAt,
	}
	if o.CancelledAt.Valid {
		t := o.CancelledAt.Time
		r.CancelledAt = &t
	}
	if o.CancelledBy.Valid {
		by := uint64(o.CancelledBy.Int64)
		r.CancelledBy = &by
	}
	return r
}

func toList(rows []Order, total int64, p Page) (ListOrdersResult, error) {
	if len(rows) == 0 {
		return ListOrdersResult{}, apierr.NotFound("no orders found")
	}
	items := make([]OrderResponse, 0, len(rows))
	for _, o := range rows {
		items = append(items, toResponse(o))
	}
	next := p.Offset + p.Limit
	if next >= int(total) {
		next = 0
	} // 0=終端
	return ListOrdersResult{Items: items, Total: total, NextOffset: next}, nil
}
