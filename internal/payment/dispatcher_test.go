package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"storefront/internal/cart"
	"storefront/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMethodCatalogue is a mock implementation of MethodCatalogue.
type MockMethodCatalogue struct {
	mock.Mock
}

func (m *MockMethodCatalogue) GetByType(ctx context.Context, methodType model.PaymentMethodType) (*model.PaymentMethod, error) {
	args := m.Called(ctx, methodType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentMethod), args.Error(1)
}

// MockOrderWriter is a mock implementation of OrderWriter.
type MockOrderWriter struct {
	mock.Mock
}

func (m *MockOrderWriter) CreateOrder(ctx context.Context, req *model.OrderCreateRequest) (*model.Order, error) {
	args := m.Called(ctx, req)
	if fn, ok := args.Get(0).(func(context.Context, *model.OrderCreateRequest) *model.Order); ok {
		return fn(ctx, req), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderWriter) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*model.Order, error) {
	args := m.Called(ctx, gatewayOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// fakeGateway records calls and returns canned results.
type fakeGateway struct {
	createErr  error
	verifyErr  error
	webhookErr error
	refundErr  error
	event      *WebhookEvent
	amount     int64
	created    int
	metadata   map[string]string
	cancelled  []string
	refunded   []string
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency string, metadata map[string]string) (*model.GatewayHandle, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created++
	g.amount = amount
	g.metadata = metadata
	return &model.GatewayHandle{GatewayOrderID: "pi_123", ClientSecret: "pi_123_secret", Amount: amount, Currency: currency}, nil
}

func (g *fakeGateway) Verify(_ context.Context, payload model.VerificationPayload) (*Confirmation, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return &Confirmation{GatewayOrderID: payload.GatewayOrderID, GatewayPaymentID: "ch_1", Amount: g.amount, Currency: "inr"}, nil
}

func (g *fakeGateway) ParseWebhook(_ []byte, _ string) (*WebhookEvent, error) {
	if g.webhookErr != nil {
		return nil, g.webhookErr
	}
	return g.event, nil
}

func (g *fakeGateway) Cancel(_ context.Context, gatewayOrderID string) error {
	g.cancelled = append(g.cancelled, gatewayOrderID)
	return nil
}

func (g *fakeGateway) Refund(_ context.Context, gatewayOrderID string) error {
	if g.refundErr != nil {
		return g.refundErr
	}
	g.refunded = append(g.refunded, gatewayOrderID)
	return nil
}

type dispatcherFixture struct {
	dispatcher *Dispatcher
	methods    *MockMethodCatalogue
	orders     *MockOrderWriter
	carts      cart.Store
	sessions   SessionStore
	gateway    *fakeGateway
	redis      *miniredis.Miniredis
}

const owner = "user:u1"

func newFixture(t *testing.T, withGateway bool) *dispatcherFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &dispatcherFixture{
		methods:  new(MockMethodCatalogue),
		orders:   new(MockOrderWriter),
		carts:    cart.NewRedisStore(client, time.Hour, zerolog.Nop()),
		sessions: NewRedisSessionStore(client, 30*time.Minute),
		redis:    mr,
	}

	var gw Gateway
	if withGateway {
		f.gateway = &fakeGateway{}
		gw = f.gateway
	}
	f.dispatcher = NewDispatcher(f.methods, f.orders, f.carts, f.sessions, gw, "inr", zerolog.Nop())

	c := cart.New(owner)
	require.NoError(t, c.Add(cart.Line{ProductID: "p1", Name: "Lamp", UnitPrice: decimal.NewFromInt(1000), Quantity: 2}))
	require.NoError(t, f.carts.Save(context.Background(), c))

	return f
}

func (f *dispatcherFixture) enable(methodType model.PaymentMethodType, enabled bool) {
	f.methods.On("GetByType", mock.Anything, methodType).
		Return(&model.PaymentMethod{ID: uuid.New(), Type: methodType, Enabled: enabled}, nil)
}

func (f *dispatcherFixture) succeeded(paymentID string) {
	f.gateway.event = &WebhookEvent{
		ID:   "evt_" + paymentID,
		Type: "payment_intent.succeeded",
		Kind: EventSucceeded,
		Confirmation: Confirmation{
			GatewayOrderID:   "pi_123",
			GatewayPaymentID: paymentID,
			Amount:           180000,
			FromCheckout:     true,
		},
	}
}

func (f *dispatcherFixture) cartLines(t *testing.T) int {
	c, err := f.carts.Get(context.Background(), owner)
	require.NoError(t, err)
	return len(c.Lines)
}

func orderRequest(method model.PaymentMethodType) *model.OrderCreateRequest {
	return &model.OrderCreateRequest{
		UserID:        "u1",
		Items:         []model.OrderLineSnapshot{{ProductID: "p1", Name: "Lamp", Price: decimal.NewFromInt(1000), Quantity: 2}},
		PaymentMethod: method,
		PaymentStatus: model.PaymentStatusPending,
		Summary: model.OrderSummary{
			Subtotal: decimal.NewFromInt(2000),
			Shipping: decimal.Zero,
			Discount: decimal.NewFromInt(200),
			Total:    decimal.NewFromInt(1800),
		},
	}
}

func orderFrom(req *model.OrderCreateRequest) *model.Order {
	return &model.Order{
		ID:               uuid.New(),
		UserID:           req.UserID,
		Items:            req.Items,
		PaymentMethod:    req.PaymentMethod,
		PaymentStatus:    req.PaymentStatus,
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Summary:          req.Summary,
		Status:           model.OrderStatusPending,
	}
}

func TestDispatcher_Dispatch_COD(t *testing.T) {
	f := newFixture(t, true)
	f.enable(model.PaymentCOD, true)

	f.orders.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req *model.OrderCreateRequest) bool {
		return req.PaymentStatus == model.PaymentStatusPending
	})).Return(func(_ context.Context, req *model.OrderCreateRequest) *model.Order {
		return orderFrom(req)
	}, nil)

	outcome, err := f.dispatcher.Dispatch(context.Background(), orderRequest(model.PaymentCOD), owner)

	require.NoError(t, err)
	require.NotNil(t, outcome.Order)
	assert.Nil(t, outcome.Redirect)
	assert.Equal(t, model.PaymentStatusPending, outcome.Order.PaymentStatus)
	assert.Equal(t, 0, f.cartLines(t), "cart is cleared after a COD order")
	assert.Equal(t, 0, f.gateway.created)
	f.orders.AssertExpectations(t)
}

func TestDispatcher_Dispatch_MethodUnavailable(t *testing.T) {
	f := newFixture(t, true)
	f.enable(model.PaymentUPI, false)
	f.methods.On("GetByType", mock.Anything, model.PaymentEMI).Return(nil, nil)

	_, err := f.dispatcher.Dispatch(context.Background(), orderRequest(model.PaymentUPI), owner)
	assert.ErrorIs(t, err, model.ErrPaymentMethodUnavailable)

	_, err = f.dispatcher.Dispatch(context.Background(), orderRequest(model.PaymentEMI), owner)
	assert.ErrorIs(t, err, model.ErrPaymentMethodUnavailable)

	f.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestDispatcher_Dispatch_GatewayDisabled(t *testing.T) {
	f := newFixture(t, false)
	f.enable(model.PaymentCard, true)

	_, err := f.dispatcher.Dispatch(context.Background(), orderRequest(model.PaymentCard), owner)

	assert.ErrorIs(t, err, model.ErrPaymentMethodUnavailable)
	assert.False(t, f.dispatcher.GatewayEnabled())
}

func TestDispatcher_Dispatch_Gateway(t *testing.T) {
	f := newFixture(t, true)
	f.enable(model.PaymentCard, true)

	outcome, err := f.dispatcher.Dispatch(context.Background(), orderRequest(model.PaymentCard), owner)

	require.NoError(t, err)
	assert.Nil(t, outcome.Order)
	require.NotNil(t, outcome.Redirect)
	assert.Equal(t, "pi_123", outcome.Redirect.GatewayOrderID)
	assert.Equal(t, int64(180000), f.gateway.amount)
	assert.Equal(t, "true", f.gateway.metadata[checkoutMetadata])

	sess, err := f.sessions.Get(context.Background(), "pi_123")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, model.CheckoutInitiated, sess.State)
	assert.Equal(t, owner, sess.CartOwner)
	assert.Equal(t, 30*time.Minute, f.redis.TTL("checkout:pi_123"))

	assert.Equal(t, 1, f.cartLines(t), "cart is kept until payment is verified")
	f.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestDispatcher_Dispatch_GatewayError(t *testing.T) {
	f := newFixture(t, true)
	f.enable(model.PaymentUPI, true)
	f.gateway.createErr = errors.New("connection reset")

	_, err := f.dispatcher.Dispatch(context.Background(), orderRequest(model.PaymentUPI), owner)

	assert.ErrorIs(t, err, model.ErrGatewayUnavailable)
	assert.False(t, f.redis.Exists("checkout:pi_123"))
}

func TestDispatcher_Verify_Success(t *testing.T) {
	f := newFixture(t, true)
	f.enable(model.PaymentCard, true)
	ctx := context.Background()

	_, err := f.dispatcher.Dispatch(ctx, orderRequest(model.PaymentCard), owner)
	require.NoError(t, err)

	f.orders.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req *model.OrderCreateRequest) bool {
		return req.PaymentStatus == model.PaymentStatusPaid &&
			req.GatewayOrderID != nil && *req.GatewayOrderID == "pi_123" &&
			req.GatewayPaymentID != nil && *req.GatewayPaymentID == "ch_1"
	})).Return(func(_ context.Context, req *model.OrderCreateRequest) *model.Order {
		return orderFrom(req)
	}, nil).Once()

	result, err := f.dispatcher.Verify(ctx, "u1", model.VerificationPayload{GatewayOrderID: "pi_123", GatewayPaymentID: "ch_1", Signature: "pi_123_secret"})

	require.NoError(t, err)
	assert.True(t, result.Verified)
	require.NotNil(t, result.Order)
	assert.Equal(t, model.PaymentStatusPaid, result.Order.PaymentStatus)
	assert.Equal(t, 0, f.cartLines(t))
	assert.False(t, f.redis.Exists("checkout:pi_123"))
	f.orders.AssertExpectations(t)
}

func TestDispatcher_Verify_Failure(t *testing.T) {
	f := newFixture(t, true)
	f.enable(model.PaymentCard, true)
	ctx := context.Background()

	_, err := f.dispatcher.Dispatch(ctx, orderRequest(model.PaymentCard), owner)
	require.NoError(t, err)

	f.gateway.verifyErr = ErrSignature

	_, err = f.dispatcher.Verify(ctx, "u1", model.VerificationPayload{GatewayOrderID: "pi_123", Signature: "forged"})

	assert.ErrorIs(t, err, model.ErrPaymentFailed)
	assert.Equal(t, 1, f.cartLines(t), "cart survives a failed payment")
	assert.False(t, f.redis.Exists("checkout:pi_123"), "failed session is discarded")
	assert.Equal(t, []string{"pi_123"}, f.gateway.cancelled, "abandoned intent can no longer be paid")
	f.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestDispatcher_Verify_NotSettled(t *testing.T) {
	f := newFixture(t, true)
	f.enable(model.PaymentUPI, true)
	ctx := context.Background()

	_, err := f.dispatcher.Dispatch(ctx, orderRequest(model.PaymentUPI), owner)
	require.NoError(t, err)

	f.gateway.verifyErr = fmt.Errorf("payment intent pi_123 has status processing: %w", ErrNotSettled)

	result, err := f.dispatcher.Verify(ctx, "u1", model.VerificationPayload{GatewayOrderID: "pi_123", Signature: "pi_123_secret"})

	require.NoError(t, err)
	assert.True(t, result.Pending)
	assert.False(t, result.Verified)
	assert.Nil(t, result.Order)
	assert.True(t, f.redis.Exists("checkout:pi_123"), "checkout stays open until the payment settles")
	assert.Equal(t, 30*time.Minute, f.redis.TTL("checkout:pi_123"))
	assert.Empty(t, f.gateway.cancelled)
	assert.Equal(t, 1, f.cartLines(t))

	// The settlement arrives later through the webhook.
	f.orders.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req *model.OrderCreateRequest) bool {
		return req.PaymentStatus == model.PaymentStatusPaid && *req.GatewayPaymentID == "ch_7"
	})).Return(func(_ context.Context, req *model.OrderCreateRequest) *model.Order {
		return orderFrom(req)
	}, nil).Once()
	f.succeeded("ch_7")

	require.NoError(t, f.dispatcher.HandleWebhook(ctx, []byte("{}"), "sig"))
	assert.False(t, f.redis.Exists("checkout:pi_123"))
	assert.Equal(t, 0, f.cartLines(t))
	assert.Empty(t, f.gateway.refunded)
	f.orders.AssertExpectations(t)
}

func TestDispatcher_Verify_PaymentClosed(t *testing.T) {
	f := newFixture(t, true)
	f.enable(model.PaymentCard, true)
	ctx := context.Background()

	_, err := f.dispatcher.Dispatch(ctx, orderRequest(model.PaymentCard), owner)
	require.NoError(t, err)

	f.gateway.verifyErr = fmt.Errorf("payment intent pi_123: %w", ErrPaymentClosed)

	_, err = f.dispatcher.Verify(ctx, "u1", model.VerificationPayload{GatewayOrderID: "pi_123", Signature: "pi_123_secret"})

	assert.ErrorIs(t, err, model.ErrPaymentFailed)
	assert.False(t, f.redis.Exists("checkout:pi_123"))
	assert.Empty(t, f.gateway.cancelled, "a closed intent needs no cancel")
}

func TestDispatcher_Verify_GatewayUnreachable(t *testing.T) {
	f := newFixture(t, true)
	f.enable(model.PaymentCard, true)
	ctx := context.Background()

	_, err := f.dispatcher.Dispatch(ctx, orderRequest(model.PaymentCard), owner)
	require.NoError(t, err)

	f.gateway.verifyErr = errors.New("i/o timeout")

	_, err = f.dispatcher.Verify(ctx, "u1", model.VerificationPayload{GatewayOrderID: "pi_123", Signature: "pi_123_secret"})

	assert.ErrorIs(t, err, model.ErrGatewayUnavailable)
	assert.True(t, f.redis.Exists("checkout:pi_123"))
	assert.Empty(t, f.gateway.cancelled)
}

func TestDispatcher_Verify_OrderWriteFailsAfterPayment(t *testing.T) {
	f := newFixture(t, true)
	f.enable(model.PaymentCard, true)
	ctx := context.Background()

	_, err := f.dispatcher.Dispatch(ctx, orderRequest(model.PaymentCard), owner)
	require.NoError(t, err)

	f.orders.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Once()
	f.orders.On("GetByGatewayOrderID", mock.Anything, "pi_123").Return(nil, nil).Once()

	_, err = f.dispatcher.Verify(ctx, "u1", model.VerificationPayload{GatewayOrderID: "pi_123", Signature: "pi_123_secret"})
	require.Error(t, err)

	sess, err := f.sessions.Get(ctx, "pi_123")
	require.NoError(t, err)
	require.NotNil(t, sess, "verified payment keeps its checkout")
	assert.Equal(t, model.CheckoutVerified, sess.State)
	assert.Equal(t, 1, f.cartLines(t))

	// A redelivered webhook writes the order.
	f.orders.On("CreateOrder", mock.Anything, mock.Anything).Return(func(_ context.Context, req *model.OrderCreateRequest) *model.Order {
		return orderFrom(req)
	}, nil).Once()
	f.succeeded("ch_1")

	require.NoError(t, f.dispatcher.HandleWebhook(ctx, []byte("{}"), "sig"))
	assert.False(t, f.redis.Exists("checkout:pi_123"))
	assert.Equal(t, 0, f.cartLines(t))
	assert.Empty(t, f.gateway.cancelled)
	assert.Empty(t, f.gateway.refunded)
	f.orders.AssertNumberOfCalls(t, "CreateOrder", 2)
}

func TestDispatcher_Verify_KeepsLinesAddedDuringPayment(t *testing.T) {
	f := newFixture(t, true)
	f.enable(model.PaymentCard, true)
	ctx := context.Background()

	_, err := f.dispatcher.Dispatch(ctx, orderRequest(model.PaymentCard), owner)
	require.NoError(t, err)

	c, err := f.carts.Get(ctx, owner)
	require.NoError(t, err)
	require.NoError(t, c.Add(cart.Line{ProductID: "p1", Name: "Lamp", UnitPrice: decimal.NewFromInt(1000), Quantity: 1}))
	require.NoError(t, c.Add(cart.Line{ProductID: "p2", Name: "Shade", UnitPrice: decimal.NewFromInt(300), Quantity: 1}))
	require.NoError(t, f.carts.Save(ctx, c))

	f.orders.On("CreateOrder", mock.Anything, mock.Anything).Return(func(_ context.Context, req *model.OrderCreateRequest) *model.Order {
		return orderFrom(req)
	}, nil).Once()

	_, err = f.dispatcher.Verify(ctx, "u1", model.VerificationPayload{GatewayOrderID: "pi_123", Signature: "pi_123_secret"})
	require.NoError(t, err)

	left, err := f.carts.Get(ctx, owner)
	require.NoError(t, err)
	require.Len(t, left.Lines, 2)
	assert.Equal(t, "p1", left.Lines[0].ProductID)
	assert.Equal(t, 1, left.Lines[0].Quantity)
	assert.Equal(t, "p2", left.Lines[1].ProductID)
}

func TestDispatcher_Verify_AlreadyCompleted(t *testing.T) {
	f := newFixture(t, true)
	gatewayID := "pi_123"
	paymentID := "ch_1"
	existing := &model.Order{ID: uuid.New(), UserID: "u1", GatewayOrderID: &gatewayID, GatewayPaymentID: &paymentID}
	f.orders.On("GetByGatewayOrderID", mock.Anything, "pi_123").Return(existing, nil)

	result, err := f.dispatcher.Verify(context.Background(), "u1", model.VerificationPayload{GatewayOrderID: "pi_123"})

	require.NoError(t, err)
	assert.Equal(t, existing, result.Order)
	assert.Equal(t, "ch_1", result.GatewayPaymentID)
	f.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)

	_, err = f.dispatcher.Verify(context.Background(), "someone-else", model.VerificationPayload{GatewayOrderID: "pi_123"})
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestDispatcher_Verify_StandalonePayment(t *testing.T) {
	f := newFixture(t, true)
	f.orders.On("GetByGatewayOrderID", mock.Anything, "pi_999").Return(nil, nil)

	result, err := f.dispatcher.Verify(context.Background(), "u1", model.VerificationPayload{GatewayOrderID: "pi_999", Signature: "s"})

	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Nil(t, result.Order)
}

func TestDispatcher_Verify_OtherUsersSession(t *testing.T) {
	f := newFixture(t, true)
	f.enable(model.PaymentCard, true)

	_, err := f.dispatcher.Dispatch(context.Background(), orderRequest(model.PaymentCard), owner)
	require.NoError(t, err)

	_, err = f.dispatcher.Verify(context.Background(), "u2", model.VerificationPayload{GatewayOrderID: "pi_123"})

	assert.ErrorIs(t, err, model.ErrForbidden)
	assert.True(t, f.redis.Exists("checkout:pi_123"))
}

func TestDispatcher_Verify_AmountMismatch(t *testing.T) {
	f := newFixture(t, true)
	f.enable(model.PaymentCard, true)
	ctx := context.Background()

	_, err := f.dispatcher.Dispatch(ctx, orderRequest(model.PaymentCard), owner)
	require.NoError(t, err)
	f.gateway.amount = 100

	_, err = f.dispatcher.Verify(ctx, "u1", model.VerificationPayload{GatewayOrderID: "pi_123"})

	assert.ErrorIs(t, err, model.ErrPaymentFailed)
	assert.Equal(t, 1, f.cartLines(t))
	assert.Equal(t, []string{"pi_123"}, f.gateway.refunded, "mismatched capture is returned")
	f.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestDispatcher_HandleWebhook(t *testing.T) {
	f := newFixture(t, true)
	f.enable(model.PaymentNetBanking, true)
	ctx := context.Background()

	_, err := f.dispatcher.Dispatch(ctx, orderRequest(model.PaymentNetBanking), owner)
	require.NoError(t, err)

	f.orders.On("CreateOrder", mock.Anything, mock.Anything).Return(func(_ context.Context, req *model.OrderCreateRequest) *model.Order {
		return orderFrom(req)
	}, nil).Once()

	f.succeeded("ch_9")

	require.NoError(t, f.dispatcher.HandleWebhook(ctx, []byte("{}"), "sig"))
	assert.Equal(t, 0, f.cartLines(t))
	assert.False(t, f.redis.Exists("checkout:pi_123"))

	// A redelivered event finds the order and is acknowledged.
	f.orders.On("GetByGatewayOrderID", mock.Anything, "pi_123").Return(&model.Order{ID: uuid.New(), UserID: "u1"}, nil)
	require.NoError(t, f.dispatcher.HandleWebhook(ctx, []byte("{}"), "sig"))
	f.orders.AssertNumberOfCalls(t, "CreateOrder", 1)
	assert.Empty(t, f.gateway.refunded)
}

func TestDispatcher_HandleWebhook_ExpiredCheckout(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.orders.On("GetByGatewayOrderID", mock.Anything, "pi_123").Return(nil, nil)
	f.succeeded("ch_3")

	f.gateway.refundErr = errors.New("rate limited")
	assert.Error(t, f.dispatcher.HandleWebhook(ctx, []byte("{}"), "sig"), "event is redelivered until refunded")

	f.gateway.refundErr = nil
	require.NoError(t, f.dispatcher.HandleWebhook(ctx, []byte("{}"), "sig"))
	assert.Equal(t, []string{"pi_123"}, f.gateway.refunded)
	f.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestDispatcher_HandleWebhook_StandalonePayment(t *testing.T) {
	f := newFixture(t, true)
	f.succeeded("ch_4")
	f.gateway.event.Confirmation.FromCheckout = false

	require.NoError(t, f.dispatcher.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	assert.Empty(t, f.gateway.refunded)
	f.orders.AssertNotCalled(t, "GetByGatewayOrderID", mock.Anything, mock.Anything)
}

func TestDispatcher_HandleWebhook_Failed(t *testing.T) {
	f := newFixture(t, true)
	f.enable(model.PaymentCard, true)
	ctx := context.Background()

	_, err := f.dispatcher.Dispatch(ctx, orderRequest(model.PaymentCard), owner)
	require.NoError(t, err)

	f.gateway.event = &WebhookEvent{Kind: EventFailed, Confirmation: Confirmation{GatewayOrderID: "pi_123"}}

	require.NoError(t, f.dispatcher.HandleWebhook(ctx, []byte("{}"), "sig"))
	assert.False(t, f.redis.Exists("checkout:pi_123"))
	assert.Equal(t, 1, f.cartLines(t))
	assert.Equal(t, []string{"pi_123"}, f.gateway.cancelled)
}

func TestDispatcher_HandleWebhook_Canceled(t *testing.T) {
	f := newFixture(t, true)
	f.enable(model.PaymentCard, true)
	ctx := context.Background()

	_, err := f.dispatcher.Dispatch(ctx, orderRequest(model.PaymentCard), owner)
	require.NoError(t, err)

	f.gateway.event = &WebhookEvent{Kind: EventCanceled, Confirmation: Confirmation{GatewayOrderID: "pi_123"}}

	require.NoError(t, f.dispatcher.HandleWebhook(ctx, []byte("{}"), "sig"))
	assert.False(t, f.redis.Exists("checkout:pi_123"))
	assert.Empty(t, f.gateway.cancelled)
}

func TestDispatcher_HandleWebhook_InvalidSignature(t *testing.T) {
	f := newFixture(t, true)
	f.gateway.webhookErr = ErrSignature

	err := f.dispatcher.HandleWebhook(context.Background(), []byte("{}"), "bad")

	assert.ErrorIs(t, err, model.ErrInvalidSignature)
}

func TestDispatcher_HandleWebhook_Ignored(t *testing.T) {
	f := newFixture(t, true)
	f.gateway.event = &WebhookEvent{Type: "charge.refunded", Kind: EventIgnored}

	assert.NoError(t, f.dispatcher.HandleWebhook(context.Background(), []byte("{}"), "sig"))
}

func TestDispatcher_CreateGatewayOrder(t *testing.T) {
	f := newFixture(t, true)

	handle, err := f.dispatcher.CreateGatewayOrder(context.Background(), "u1", decimal.RequireFromString("499.50"))
	require.NoError(t, err)
	assert.Equal(t, int64(49950), handle.Amount)
	assert.False(t, f.redis.Exists("checkout:pi_123"))

	_, err = f.dispatcher.CreateGatewayOrder(context.Background(), "u1", decimal.Zero)
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	disabled := newFixture(t, false)
	_, err = disabled.dispatcher.CreateGatewayOrder(context.Background(), "u1", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, model.ErrGatewayUnavailable)
}

func TestSession_Advance(t *testing.T) {
	s := &Session{GatewayOrderID: "pi_1", State: model.CheckoutInitiated}

	require.NoError(t, s.Advance(model.CheckoutAuthorized))
	require.NoError(t, s.Advance(model.CheckoutVerified))
	assert.Error(t, s.Advance(model.CheckoutFailed))
	require.NoError(t, s.Advance(model.CheckoutOrderCreated))
	assert.Error(t, s.Advance(model.CheckoutVerified))

	failed := &Session{State: model.CheckoutInitiated}
	require.NoError(t, failed.Advance(model.CheckoutFailed))
	assert.Error(t, failed.Advance(model.CheckoutAuthorized))
}
