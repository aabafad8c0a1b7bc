package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront/internal/model"
	"storefront/internal/notify"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const notifyTimeout = 30 * time.Second

// orderService implements OrderService.
type orderService struct {
	orderRepo  repository.OrderRepository
	couponRepo repository.CouponRepository
	notifier   notify.Notifier
	now        func() time.Time
	pending    sync.WaitGroup
	logger     zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	couponRepo repository.CouponRepository,
	notifier notify.Notifier,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:  orderRepo,
		couponRepo: couponRepo,
		notifier:   notifier,
		now:        time.Now,
		logger:     logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder persists the order with its first timeline entry. A voucher
// is redeemed in the same transaction, so an exhausted coupon leaves no
// unpaid order. An order whose payment was already captured is written
// anyway with VoucherOverLimit set.
func (s *orderService) CreateOrder(ctx context.Context, req *model.OrderCreateRequest) (*model.Order, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, model.ErrEmptyCart
	}

	now := s.now().UTC()
	order := &model.Order{
		ID:               uuid.New(),
		UserID:           req.UserID,
		ContactEmail:     req.ContactEmail,
		Items:            req.Items,
		Shipping:         req.Shipping,
		PaymentMethod:    req.PaymentMethod,
		PaymentStatus:    req.PaymentStatus,
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Summary:          req.Summary,
		Status:           model.OrderStatusPending,
		VoucherCode:      req.VoucherCode,
		Timeline:         []model.TimelineEntry{{Status: model.OrderStatusPending, Note: "Order placed", At: now}},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if order.VoucherCode != nil && strings.TrimSpace(*order.VoucherCode) != "" {
		if err = s.couponRepo.Redeem(ctx, tx, *order.VoucherCode); err != nil {
			if req.PaymentStatus != model.PaymentStatusPaid || !errors.Is(err, model.ErrLimitReached) {
				s.logger.Warn().
					Err(err).
					Str("coupon_code", *order.VoucherCode).
					Msg("coupon could not be redeemed")
				return nil, err
			}

			s.logger.Error().
				Str("coupon_code", *order.VoucherCode).
				Str("order_id", order.ID.String()).
				Msg("voucher no longer redeemable for paid order, honouring discount")
			order.VoucherOverLimit = true
			order.Timeline[0].Note = "Order placed; voucher " + *order.VoucherCode + " honoured past its usage limit"
			err = nil
		}
	}

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", order.UserID).
		Str("payment_method", string(order.PaymentMethod)).
		Str("total", order.Summary.Total.String()).
		Int("item_count", len(order.Items)).
		Msg("order created successfully")

	s.notify(order, s.notifier.OrderPlaced)

	return order, nil
}

func (s *orderService) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*model.Order, error) {
	order, err := s.orderRepo.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// GetByID retrieves an order. Customers only see their own orders.
func (s *orderService) GetByID(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	if !actor.Owns(order) {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("user_id", actor.UserID).
			Msg("order access denied")
		return nil, model.ErrForbidden
	}

	return order, nil
}

func (s *orderService) List(ctx context.Context, actor model.Actor, limit, offset int) ([]model.Order, int, error) {
	if actor.UserID == "" {
		return nil, 0, model.ErrUnauthorised
	}

	limit, offset = clampPage(limit, offset)
	return s.orderRepo.List(ctx, model.OrderFilter{UserID: actor.UserID, Limit: limit, Offset: offset})
}

func (s *orderService) ListAll(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)
	return s.orderRepo.List(ctx, filter)
}

// Cancel cancels an order that has not shipped yet.
func (s *orderService) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Order, error) {
	order, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if !order.Status.Cancellable() {
		return nil, model.ErrNotCancellable
	}

	ok, err := s.transition(ctx, order, model.OrderStatusCancelled, "Cancelled by customer")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrNotCancellable
	}
	return order, nil
}

// UpdateStatus applies an admin status change allowed by the lifecycle table.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, req model.StatusUpdateRequest) (*model.Order, error) {
	to, ok := model.ParseOrderStatus(req.Status)
	if !ok {
		return nil, model.ErrInvalidStatus.WithFields("status")
	}

	order, err := s.GetByID(ctx, model.Actor{Role: model.RoleAdmin}, id)
	if err != nil {
		return nil, err
	}

	if !model.CanTransition(order.Status, to) {
		return nil, model.ErrInvalidTransition.WithMessage("Cannot change order status from %s to %s", order.Status, to)
	}

	note := req.Note
	if note == "" {
		note = fmt.Sprintf("Status changed to %s", to)
	}

	ok, err = s.transition(ctx, order, to, note)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrInvalidTransition.WithMessage("Order status changed concurrently, please retry")
	}
	return order, nil
}

// RequestReturn records a return on a delivered order. Only one return per
// order is accepted.
func (s *orderService) RequestReturn(ctx context.Context, actor model.Actor, id uuid.UUID, in model.ReturnRequestInput) (*model.Order, error) {
	reason, ok := model.ParseReturnReason(in.Reason)
	if !ok {
		return nil, model.ErrInvalidReturnReason.WithFields("reason")
	}

	order, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if order.Status != model.OrderStatusDelivered || order.Return != nil {
		return nil, model.ErrNotReturnable
	}

	req := model.ReturnRequest{
		Reason:      reason,
		Comments:    strings.TrimSpace(in.Comments),
		RequestedAt: s.now().UTC(),
	}

	ok, err = s.orderRepo.RequestReturn(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to request return: %w", err)
	}
	if !ok {
		return nil, model.ErrNotReturnable
	}

	order.Return = &req
	order.UpdatedAt = req.RequestedAt

	s.logger.Info().
		Str("order_id", id.String()).
		Str("reason", string(reason)).
		Msg("return requested")

	return order, nil
}

// transition moves order to status to if nobody changed it in between,
// recording the change on the timeline. False means the order moved first.
func (s *orderService) transition(ctx context.Context, order *model.Order, to model.OrderStatus, note string) (bool, error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	from := order.Status
	ok, err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, from, to)
	if err != nil {
		return false, err
	}
	if !ok {
		s.logger.Info().
			Str("order_id", order.ID.String()).
			Str("from", string(from)).
			Str("to", string(to)).
			Msg("order status changed concurrently")
		return false, nil
	}

	now := s.now().UTC()
	entry := model.TimelineEntry{Status: to, Note: note, At: now}
	if err := s.orderRepo.AppendTimeline(ctx, tx, order.ID, entry); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}
	committed = true

	order.Status = to
	order.UpdatedAt = now
	order.Timeline = append(order.Timeline, entry)

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("order status updated")

	s.notify(order, s.notifier.OrderStatusChanged)
	return true, nil
}

// notify sends a customer email in the background on a copy of order.
func (s *orderService) notify(order *model.Order, send func(context.Context, *model.Order) error) {
	snapshot := *order

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := send(ctx, &snapshot); err != nil {
			s.logger.Warn().Err(err).Str("order_id", snapshot.ID.String()).Msg("failed to notify customer")
		}
	}()
}

func (s *orderService) Close() {
	s.pending.Wait()
}
