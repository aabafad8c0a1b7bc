package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/cart"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/payment"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductService is a mock implementation of ProductService.
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) Lines(ctx context.Context, items []model.OrderItemRequest) ([]cart.Line, error) {
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.Line), args.Error(1)
}

// MockCartService is a mock implementation of CartService.
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) cartResult(args mock.Arguments) (*cart.Cart, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) Get(ctx context.Context, owner string) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, owner))
}

func (m *MockCartService) AddItem(ctx context.Context, owner, productID string, quantity int) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, owner, productID, quantity))
}

func (m *MockCartService) UpdateItem(ctx context.Context, owner, productID string, quantity int) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, owner, productID, quantity))
}

func (m *MockCartService) RemoveItem(ctx context.Context, owner, productID string) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, owner, productID))
}

func (m *MockCartService) Clear(ctx context.Context, owner string) error {
	return m.Called(ctx, owner).Error(0)
}

func (m *MockCartService) Merge(ctx context.Context, guestOwner, userOwner string) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, guestOwner, userOwner))
}

func (m *MockCartService) Wishlist(ctx context.Context, owner string) ([]model.Product, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockCartService) AddToWishlist(ctx context.Context, owner, productID string) error {
	return m.Called(ctx, owner, productID).Error(0)
}

func (m *MockCartService) RemoveFromWishlist(ctx context.Context, owner, productID string) error {
	return m.Called(ctx, owner, productID).Error(0)
}

// MockCouponService is a mock implementation of CouponService.
type MockCouponService struct {
	mock.Mock
}

func (m *MockCouponService) Validate(ctx context.Context, code string, cartTotal decimal.Decimal) (*model.CouponValidationResponse, error) {
	args := m.Called(ctx, code, cartTotal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CouponValidationResponse), args.Error(1)
}

func (m *MockCouponService) List(ctx context.Context) ([]model.Coupon, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Coupon), args.Error(1)
}

func (m *MockCouponService) Create(ctx context.Context, in model.CouponInput) (*model.Coupon, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Coupon), args.Error(1)
}

func (m *MockCouponService) Update(ctx context.Context, id uuid.UUID, in model.CouponInput) (*model.Coupon, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Coupon), args.Error(1)
}

func (m *MockCouponService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockPaymentMethodService is a mock implementation of PaymentMethodService.
type MockPaymentMethodService struct {
	mock.Mock
}

func (m *MockPaymentMethodService) List(ctx context.Context, enabledOnly bool) ([]model.PaymentMethod, error) {
	args := m.Called(ctx, enabledOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodService) Create(ctx context.Context, in model.PaymentMethodInput) (*model.PaymentMethod, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodService) Update(ctx context.Context, id uuid.UUID, in model.PaymentMethodInput) (*model.PaymentMethod, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) orderResult(args mock.Arguments) (*model.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) CreateOrder(ctx context.Context, req *model.OrderCreateRequest) (*model.Order, error) {
	return m.orderResult(m.Called(ctx, req))
}

func (m *MockOrderService) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*model.Order, error) {
	return m.orderResult(m.Called(ctx, gatewayOrderID))
}

func (m *MockOrderService) GetByID(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Order, error) {
	return m.orderResult(m.Called(ctx, actor, id))
}

func (m *MockOrderService) List(ctx context.Context, actor model.Actor, limit, offset int) ([]model.Order, int, error) {
	args := m.Called(ctx, actor, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.Order), args.Int(1), args.Error(2)
}

func (m *MockOrderService) ListAll(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.Order), args.Int(1), args.Error(2)
}

func (m *MockOrderService) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Order, error) {
	return m.orderResult(m.Called(ctx, actor, id))
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, req model.StatusUpdateRequest) (*model.Order, error) {
	return m.orderResult(m.Called(ctx, id, req))
}

func (m *MockOrderService) RequestReturn(ctx context.Context, actor model.Actor, id uuid.UUID, in model.ReturnRequestInput) (*model.Order, error) {
	return m.orderResult(m.Called(ctx, actor, id, in))
}

func (m *MockOrderService) Close() {}

// MockCheckoutService is a mock implementation of CheckoutService.
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) PlaceOrder(ctx context.Context, actor model.Actor, cartOwner string, req *model.OrderRequest) (*payment.Outcome, error) {
	args := m.Called(ctx, actor, cartOwner, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Outcome), args.Error(1)
}

// MockPaymentService is a mock implementation of PaymentService.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) CreateGatewayOrder(ctx context.Context, userID string, amount decimal.Decimal) (*model.GatewayHandle, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GatewayHandle), args.Error(1)
}

func (m *MockPaymentService) Verify(ctx context.Context, userID string, payload model.VerificationPayload) (*payment.VerifyResult, error) {
	args := m.Called(ctx, userID, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.VerifyResult), args.Error(1)
}

func (m *MockPaymentService) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	return m.Called(ctx, payload, signatureHeader).Error(0)
}

var (
	customer = model.Actor{UserID: "user-1", Email: "user-1@example.com", Role: model.RoleCustomer}
	admin    = model.Actor{UserID: "admin-1", Email: "admin@example.com", Role: model.RoleAdmin}
)

// testRequest describes one call routed through a chi pattern.
type testRequest struct {
	method  string
	pattern string
	target  string
	body    any
	actor   *model.Actor
	headers map[string]string
}

// serve mounts h at the request's pattern and runs the request through it.
func serve(t *testing.T, h http.HandlerFunc, tr testRequest) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	switch b := tr.body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	case []byte:
		body = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(tr.method, tr.target, body)
	for k, v := range tr.headers {
		req.Header.Set(k, v)
	}
	if tr.actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *tr.actor))
	}

	r := chi.NewRouter()
	r.MethodFunc(tr.method, tr.pattern, h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decodeEnvelope parses a response envelope, decoding data into dst when
// dst is not nil.
func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, dst any) Response {
	t.Helper()

	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *ErrorBody      `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))

	if dst != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, dst))
	}
	return Response{Success: raw.Success, Error: raw.Error}
}
