package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

const orderColumns = `id, user_id, contact_email,
	ship_name, ship_address, ship_city, ship_state, ship_postal_code, ship_phone,
	payment_method, payment_status, gateway_order_id, gateway_payment_id,
	subtotal, shipping_fee, discount, total, status, voucher_code, voucher_over_limit,
	return_reason, return_comments, return_requested_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o                 model.Order
		paymentMethod     string
		paymentStatus     string
		status            string
		returnReason      *string
		returnComments    *string
		returnRequestedAt *time.Time
	)

	err := row.Scan(
		&o.ID, &o.UserID, &o.ContactEmail,
		&o.Shipping.Name, &o.Shipping.Address, &o.Shipping.City, &o.Shipping.State, &o.Shipping.PostalCode, &o.Shipping.Phone,
		&paymentMethod, &paymentStatus, &o.GatewayOrderID, &o.GatewayPaymentID,
		&o.Summary.Subtotal, &o.Summary.Shipping, &o.Summary.Discount, &o.Summary.Total, &status, &o.VoucherCode, &o.VoucherOverLimit,
		&returnReason, &returnComments, &returnRequestedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.PaymentMethod = model.PaymentMethodType(paymentMethod)
	o.PaymentStatus = model.PaymentStatus(paymentStatus)
	o.Status = model.OrderStatus(status)

	if returnReason != nil && returnRequestedAt != nil {
		o.Return = &model.ReturnRequest{
			Reason:      model.ReturnReason(*returnReason),
			RequestedAt: *returnRequestedAt,
		}
		if returnComments != nil {
			o.Return.Comments = *returnComments
		}
	}

	return &o, nil
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (id, user_id, contact_email,
			ship_name, ship_address, ship_city, ship_state, ship_postal_code, ship_phone,
			payment_method, payment_status, gateway_order_id, gateway_payment_id,
			subtotal, shipping_fee, discount, total, status, voucher_code, voucher_over_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	s := order.Shipping
	_, err := tx.Exec(ctx, query,
		order.ID, order.UserID, order.ContactEmail,
		s.Name, s.Address, s.City, s.State, s.PostalCode, s.Phone,
		string(order.PaymentMethod), string(order.PaymentStatus), order.GatewayOrderID, order.GatewayPaymentID,
		order.Summary.Subtotal, order.Summary.Shipping, order.Summary.Discount, order.Summary.Total,
		string(order.Status), order.VoucherCode, order.VoucherOverLimit, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	if err := r.createItems(ctx, tx, order.ID, order.Items); err != nil {
		return err
	}

	for _, entry := range order.Timeline {
		if err := r.AppendTimeline(ctx, tx, order.ID, entry); err != nil {
			return err
		}
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Int("items", len(order.Items)).
		Msg("order created successfully")

	return nil
}

// createItems inserts the order's line snapshots in a single batch.
func (r *orderRepository) createItems(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, items []model.OrderLineSnapshot) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (order_id, position, product_id, name, price, quantity, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for i, item := range items {
		batch.Queue(query, orderID, i, item.ProductID, item.Name, item.Price, item.Quantity, item.Image)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", orderID.String()).
				Str("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return nil
}

// GetByID retrieves an order by its ID along with its items and timeline.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetByGatewayOrderID retrieves the order created for a gateway order.
func (r *orderRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE gateway_order_id = $1`, gatewayOrderID)
}

func (r *orderRepository) getOne(ctx context.Context, query string, arg any) (*model.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Interface("key", arg).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Interface("key", arg).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.loadItems(ctx, []uuid.UUID{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	timeline, err := r.loadTimeline(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Timeline = timeline

	return order, nil
}

// loadItems fetches the line snapshots of several orders, keyed by order.
func (r *orderRepository) loadItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]model.OrderLineSnapshot, error) {
	query := `
		SELECT order_id, product_id, name, price, quantity, image
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("orders", len(ids)).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]model.OrderLineSnapshot, len(ids))
	for rows.Next() {
		var (
			orderID uuid.UUID
			item    model.OrderLineSnapshot
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.Price, &item.Quantity, &item.Image); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items[orderID] = append(items[orderID], item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

func (r *orderRepository) loadTimeline(ctx context.Context, id uuid.UUID) ([]model.TimelineEntry, error) {
	query := `
		SELECT status, note, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order timeline")
		return nil, fmt.Errorf("failed to query order timeline: %w", err)
	}
	defer rows.Close()

	var timeline []model.TimelineEntry
	for rows.Next() {
		var (
			entry  model.TimelineEntry
			status string
		)
		if err := rows.Scan(&status, &entry.Note, &entry.At); err != nil {
			return nil, fmt.Errorf("failed to scan timeline entry: %w", err)
		}
		entry.Status = model.OrderStatus(status)
		timeline = append(timeline, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order timeline: %w", err)
	}

	return timeline, nil
}

// List returns orders matching filter, newest first, with their items.
func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	where := `WHERE ($1::text IS NULL OR status = $1) AND ($2 = '' OR user_id = $2)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders `+where, status, filter.UserID).Scan(&total); err != nil {
		r.logger.Error().Err(err).Msg("failed to count orders")
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM orders ` + where + `
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, status, filter.UserID, filter.Limit, filter.Offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", filter.Limit).
			Int("offset", filter.Offset).
			Msg("failed to query orders")
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	ids := []uuid.UUID{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return orders, total, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return orders, total, nil
}

// UpdateStatus moves an order from one status to another if it is still in from.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	query := `
		UPDATE orders
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	tag, err := tx.Exec(ctx, query, id, string(from), string(to))
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("to", string(to)).
			Msg("failed to update order status")
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// AppendTimeline records a status change.
func (r *orderRepository) AppendTimeline(ctx context.Context, tx pgx.Tx, id uuid.UUID, entry model.TimelineEntry) error {
	query := `
		INSERT INTO order_status_history (order_id, status, note, created_at)
		VALUES ($1, $2, $3, $4)
	`

	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	if _, err := tx.Exec(ctx, query, id, string(entry.Status), entry.Note, at); err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to append order timeline")
		return fmt.Errorf("failed to append order timeline: %w", err)
	}
	return nil
}

// RequestReturn stores a return request on a delivered order without one.
func (r *orderRepository) RequestReturn(ctx context.Context, id uuid.UUID, req model.ReturnRequest) (bool, error) {
	query := `
		UPDATE orders
		SET return_reason = $2, return_comments = $3, return_requested_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'delivered' AND return_reason IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, id, string(req.Reason), req.Comments, req.RequestedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to store return request")
		return false, fmt.Errorf("failed to store return request: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
