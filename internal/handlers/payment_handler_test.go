package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/doubtsolve/backend/internal/middleware"
	"github.com/doubtsolve/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEscrow struct {
	mock.Mock
}

func (m *MockEscrow) CreateOrder(ctx context.Context, callerID string, req services.CreateOrderRequest) (*services.OrderResult, error) {
	args := m.Called(ctx, callerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.OrderResult), args.Error(1)
}

func (m *MockEscrow) VerifyAndHold(ctx context.Context, callerID string, req services.VerifyRequest) (*services.HoldResult, error) {
	args := m.Called(ctx, callerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.HoldResult), args.Error(1)
}

func (m *MockEscrow) ReleaseEscrow(ctx context.Context, callerID, doubtID string) (*services.ReleaseResult, error) {
	args := m.Called(ctx, callerID, doubtID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ReleaseResult), args.Error(1)
}

type MockCheckout struct {
	mock.Mock
}

func (m *MockCheckout) CheckoutQR(ctx context.Context, callerID, orderID string) (*services.CheckoutQR, error) {
	args := m.Called(ctx, callerID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CheckoutQR), args.Error(1)
}

func authed(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.WithUserID(r.Context(), userID))
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func TestPaymentHandler_CreateOrder(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		escrow := &MockEscrow{}
		h := NewPaymentHandler(escrow, &MockCheckout{})

		escrow.On("CreateOrder", mock.Anything, "s1", services.CreateOrderRequest{DoubtID: "d1"}).
			Return(&services.OrderResult{OrderID: "order_1", KeyID: "rzp_test", Amount: 100, AmountMinor: 10000, Currency: "INR"}, nil)

		r := authed(httptest.NewRequest("POST", "/payments/create-order", jsonBody(t, map[string]any{"doubtId": "d1"})), "s1")
		w := httptest.NewRecorder()

		h.CreateOrder(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "order_1", response["orderId"])
		assert.Equal(t, "rzp_test", response["key"])
		assert.EqualValues(t, 10000, response["amountMinor"])
		escrow.AssertExpectations(t)
	})

	t.Run("missing token", func(t *testing.T) {
		escrow := &MockEscrow{}
		h := NewPaymentHandler(escrow, &MockCheckout{})

		w := httptest.NewRecorder()
		h.CreateOrder(w, httptest.NewRequest("POST", "/payments/create-order", jsonBody(t, map[string]any{"doubtId": "d1"})))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		escrow.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing doubt id", func(t *testing.T) {
		h := NewPaymentHandler(&MockEscrow{}, &MockCheckout{})

		w := httptest.NewRecorder()
		h.CreateOrder(w, authed(httptest.NewRequest("POST", "/payments/create-order", jsonBody(t, map[string]any{})), "s1"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response services.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, services.KindInvalidArgument, response.Kind)
		assert.Contains(t, response.Details, "DoubtID")
	})

	t.Run("gateway outage is a retryable 502", func(t *testing.T) {
		escrow := &MockEscrow{}
		h := NewPaymentHandler(escrow, &MockCheckout{})

		escrow.On("CreateOrder", mock.Anything, "s1", mock.Anything).
			Return(nil, &services.Error{Kind: services.KindGateway, Message: "payment gateway unavailable"})

		w := httptest.NewRecorder()
		h.CreateOrder(w, authed(httptest.NewRequest("POST", "/payments/create-order", jsonBody(t, map[string]any{"doubtId": "d1"})), "s1"))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		var response services.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.Retryable)
	})
}

func TestPaymentHandler_Verify(t *testing.T) {
	t.Run("bad signature", func(t *testing.T) {
		escrow := &MockEscrow{}
		h := NewPaymentHandler(escrow, &MockCheckout{})

		req := services.VerifyRequest{OrderID: "order_1", PaymentID: "pay_1", Signature: "deadbeef"}
		escrow.On("VerifyAndHold", mock.Anything, "s1", req).
			Return(nil, &services.Error{Kind: services.KindSignatureInvalid, Message: "payment signature verification failed"})

		w := httptest.NewRecorder()
		h.Verify(w, authed(httptest.NewRequest("POST", "/payments/verify", jsonBody(t, req)), "s1"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response services.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, services.KindSignatureInvalid, response.Kind)
	})

	t.Run("non-hex signature reaches the verifier", func(t *testing.T) {
		escrow := &MockEscrow{}
		h := NewPaymentHandler(escrow, &MockCheckout{})

		req := services.VerifyRequest{OrderID: "order_1", PaymentID: "pay_1", Signature: "not-a-valid-signature!!"}
		escrow.On("VerifyAndHold", mock.Anything, "s1", req).
			Return(nil, &services.Error{Kind: services.KindSignatureInvalid, Message: "payment signature verification failed"})

		w := httptest.NewRecorder()
		h.Verify(w, authed(httptest.NewRequest("POST", "/payments/verify", jsonBody(t, req)), "s1"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response services.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, services.KindSignatureInvalid, response.Kind)
		escrow.AssertNumberOfCalls(t, "VerifyAndHold", 1)
	})

	t.Run("held", func(t *testing.T) {
		escrow := &MockEscrow{}
		h := NewPaymentHandler(escrow, &MockCheckout{})

		req := services.VerifyRequest{OrderID: "order_1", PaymentID: "pay_1", Signature: "deadbeef"}
		escrow.On("VerifyAndHold", mock.Anything, "s1", req).
			Return(&services.HoldResult{PaymentID: "p1", DoubtID: "d1", Status: "held"}, nil)

		w := httptest.NewRecorder()
		h.Verify(w, authed(httptest.NewRequest("POST", "/payments/verify", jsonBody(t, req)), "s1"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"held"`)
	})
}

func TestPaymentHandler_Release(t *testing.T) {
	t.Run("released", func(t *testing.T) {
		escrow := &MockEscrow{}
		h := NewPaymentHandler(escrow, &MockCheckout{})

		escrow.On("ReleaseEscrow", mock.Anything, "s1", "d1").
			Return(&services.ReleaseResult{DoubtID: "d1", PaymentID: "p1", TutorID: "t1", Amount: 100, PlatformFee: 15, TutorAmount: 85}, nil)

		w := httptest.NewRecorder()
		h.Release(w, authed(httptest.NewRequest("POST", "/payments/release", jsonBody(t, ReleaseRequest{DoubtID: "d1"})), "s1"))

		assert.Equal(t, http.StatusOK, w.Code)
		var response services.ReleaseResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, int64(85), response.TutorAmount)
	})

	t.Run("second release conflicts", func(t *testing.T) {
		escrow := &MockEscrow{}
		h := NewPaymentHandler(escrow, &MockCheckout{})

		escrow.On("ReleaseEscrow", mock.Anything, "s1", "d1").
			Return(nil, &services.Error{Kind: services.KindPreconditionFailed, Message: "doubt is already solved"})

		w := httptest.NewRecorder()
		h.Release(w, authed(httptest.NewRequest("POST", "/payments/release", jsonBody(t, ReleaseRequest{DoubtID: "d1"})), "s1"))

		assert.Equal(t, http.StatusConflict, w.Code)
		var response services.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.False(t, response.Retryable)
	})
}

func TestPaymentHandler_CheckoutQR(t *testing.T) {
	checkout := &MockCheckout{}
	h := NewPaymentHandler(&MockEscrow{}, checkout)

	checkout.On("CheckoutQR", mock.Anything, "s1", "order_1").
		Return(&services.CheckoutQR{OrderID: "order_1", URL: "https://pay.example/x", QRImage: "iVBOR"}, nil)

	router := chi.NewRouter()
	router.Get("/payments/{orderId}/qr", h.CheckoutQR)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authed(httptest.NewRequest("GET", "/payments/order_1/qr", nil), "s1"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"qrImage":"iVBOR"`)
	checkout.AssertExpectations(t)
}
