package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/service"
)

// stubCheckout lets the handler tests dictate coordinator outcomes
// without a database.
type stubCheckout struct {
	cart      *service.CartView
	order     *service.OrderView
	addErr    error
	buyErr    error
	cancelErr error
	openErr   error
}

func (s *stubCheckout) AddToCart(ctx context.Context, userID, eventID, ticketTypeID uint64, qty uint32) (*service.CartView, error) {
	return s.cart, s.addErr
}
func (s *stubCheckout) BuyCart(ctx context.Context, userID uint64) (*service.OrderView, error) {
	return s.order, s.buyErr
}
func (s *stubCheckout) CancelCart(ctx context.Context, userID, cartID uint64) error {
	return s.cancelErr
}
func (s *stubCheckout) OpenCart(ctx context.Context, userID uint64) (*service.CartView, error) {
	return s.cart, s.openErr
}

func newCheckoutTestCtx(t *testing.T, method, path string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	// Mimic the JWT middleware: numeric claims arrive as float64.
	c.Set("user_id", float64(1))
	c.Set("role", model.RoleCustomer)
	return c, rec
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func newTestCheckoutHandler(stub *stubCheckout) *CheckoutHandler {
	return NewCheckoutHandler(stub, repository.NewEventRepo(nil))
}

func TestGetCartNoOpenCart(t *testing.T) {
	h := newTestCheckoutHandler(&stubCheckout{openErr: service.ErrNoOpenCart})
	c, rec := newCheckoutTestCtx(t, http.MethodGet, "/v1/cart")

	require.NoError(t, h.GetCart(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_OPEN_CART", errCode(t, rec))
}

func TestGetCartReturnsView(t *testing.T) {
	cart := &service.CartView{
		ID: 7, Status: model.CartOpen, TotalCents: 1500,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
		LineItems: []service.LineItemView{{TicketTypeID: 3, Qty: 1, UnitPriceCents: 1500}},
	}
	h := newTestCheckoutHandler(&stubCheckout{cart: cart})
	c, rec := newCheckoutTestCtx(t, http.MethodGet, "/v1/cart")

	require.NoError(t, h.GetCart(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var got service.CartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(7), got.ID)
	assert.Equal(t, uint64(1500), got.TotalCents)
	require.Len(t, got.LineItems, 1)
}

func TestBuyCartErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"empty cart", service.ErrEmptyCart, http.StatusBadRequest, "EMPTY_CART"},
		{"no open cart", service.ErrNoOpenCart, http.StatusNotFound, "NO_OPEN_CART"},
		{"out of stock", service.ErrOutOfStock, http.StatusConflict, "OUT_OF_STOCK"},
		{"storage failure", assert.AnError, http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestCheckoutHandler(&stubCheckout{buyErr: tc.err})
			c, rec := newCheckoutTestCtx(t, http.MethodPost, "/v1/cart/checkout")

			require.NoError(t, h.BuyCart(c))
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.body, errCode(t, rec))
		})
	}
}

func TestBuyCartSuccess(t *testing.T) {
	order := &service.OrderView{UUID: "abc", Status: model.OrderClosed, TotalCents: 4200}
	h := newTestCheckoutHandler(&stubCheckout{order: order})
	c, rec := newCheckoutTestCtx(t, http.MethodPost, "/v1/cart/checkout")

	require.NoError(t, h.BuyCart(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var got service.OrderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "abc", got.UUID)
	assert.Equal(t, uint64(4200), got.TotalCents)
}

func TestCancelCartIdempotentResponse(t *testing.T) {
	h := newTestCheckoutHandler(&stubCheckout{cancelErr: service.ErrAlreadyCancelled})
	c, rec := newCheckoutTestCtx(t, http.MethodDelete, "/v1/cart/9")
	c.SetParamNames("id")
	c.SetParamValues("9")

	require.NoError(t, h.CancelCart(c))
	// A repeated cancel is a no-op, not an error.
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCancelCartErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"foreign cart", service.ErrNotCartOwner, http.StatusForbidden, "FORBIDDEN"},
		{"closed cart", service.ErrCartClosed, http.StatusConflict, "CART_CLOSED"},
		{"unknown cart", service.ErrCartNotFound, http.StatusNotFound, "CART_NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestCheckoutHandler(&stubCheckout{cancelErr: tc.err})
			c, rec := newCheckoutTestCtx(t, http.MethodDelete, "/v1/cart/9")
			c.SetParamNames("id")
			c.SetParamValues("9")

			require.NoError(t, h.CancelCart(c))
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.body, errCode(t, rec))
		})
	}
}

func TestCancelCartBadID(t *testing.T) {
	h := newTestCheckoutHandler(&stubCheckout{})
	c, rec := newCheckoutTestCtx(t, http.MethodDelete, "/v1/cart/nope")
	c.SetParamNames("id")
	c.SetParamValues("nope")

	require.NoError(t, h.CancelCart(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddToCartConflictMapping(t *testing.T) {
	c, rec := newCheckoutTestCtx(t, http.MethodPost, "/v1/cart/items")

	// The residual create-race is retryable and must surface as CONFLICT,
	// never as NO_OPEN_CART.
	require.NoError(t, checkoutError(c, service.ErrCartConflict))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", errCode(t, rec))
}

func TestCheckoutRequiresUser(t *testing.T) {
	h := newTestCheckoutHandler(&stubCheckout{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/cart", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec) // no user_id in context

	require.NoError(t, h.GetCart(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
