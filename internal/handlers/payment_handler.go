package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/doubtsolve/backend/internal/services"
	"github.com/go-chi/chi/v5"
)

type EscrowManager interface {
	CreateOrder(ctx context.Context, callerID string, req services.CreateOrderRequest) (*services.OrderResult, error)
	VerifyAndHold(ctx context.Context, callerID string, req services.VerifyRequest) (*services.HoldResult, error)
	ReleaseEscrow(ctx context.Context, callerID, doubtID string) (*services.ReleaseResult, error)
}

type CheckoutRenderer interface {
	CheckoutQR(ctx context.Context, callerID, orderID string) (*services.CheckoutQR, error)
}

type PaymentHandler struct {
	escrow    EscrowManager
	qr        CheckoutRenderer
	validator *services.ValidationHelper
}

func NewPaymentHandler(escrow EscrowManager, qr CheckoutRenderer) *PaymentHandler {
	return &PaymentHandler{
		escrow:    escrow,
		qr:        qr,
		validator: services.NewValidationHelper(),
	}
}

// ReleaseRequest names the doubt whose escrow should be paid out
type ReleaseRequest struct {
	DoubtID string `json:"doubtId" validate:"required" example:"6f1c2b8e-9d1a-4b53-9b0e-2f8f4f7f2c11"`
}

// CreateOrder opens a gateway order for a doubt
// @Summary Create payment order
// @Description Create a gateway order for the doubt's stored price. A pending order is reused.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateOrderRequest true "Order request"
// @Success 200 {object} services.OrderResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 502 {object} services.ErrorResponse
// @Router /payments/create-order [post]
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := services.CurrentUser(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	var req services.CreateOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.escrow.CreateOrder(r.Context(), userID, req)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusOK, result)
}

// Verify checks the checkout signature and holds the payment in escrow
// @Summary Verify payment
// @Description Verify the gateway signature for a completed checkout and move the payment to held
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.VerifyRequest true "Checkout result"
// @Success 200 {object} services.HoldResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /payments/verify [post]
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, err := services.CurrentUser(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	var req services.VerifyRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.escrow.VerifyAndHold(r.Context(), userID, req)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusOK, result)
}

// Release pays the held amount, minus the platform fee, to the accepted tutor
// @Summary Release escrow
// @Description Mark the doubt solved and credit the accepted tutor. Safe to retry; a second release is rejected.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ReleaseRequest true "Release request"
// @Success 200 {object} services.ReleaseResult
// @Failure 401 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /payments/release [post]
func (h *PaymentHandler) Release(w http.ResponseWriter, r *http.Request) {
	userID, err := services.CurrentUser(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	var req ReleaseRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.escrow.ReleaseEscrow(r.Context(), userID, req.DoubtID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	log.Printf("[HTTP] Escrow released for doubt %s", req.DoubtID)
	services.SendJSON(w, http.StatusOK, result)
}

// CheckoutQR returns a QR code of the hosted checkout page
// @Summary Checkout QR code
// @Description PNG QR code (base64) of the hosted checkout link for a pending order
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param orderId path string true "Gateway order ID"
// @Success 200 {object} services.CheckoutQR
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /payments/{orderId}/qr [get]
func (h *PaymentHandler) CheckoutQR(w http.ResponseWriter, r *http.Request) {
	userID, err := services.CurrentUser(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	result, err := h.qr.CheckoutQR(r.Context(), userID, chi.URLParam(r, "orderId"))
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusOK, result)
}

func (h *PaymentHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeAndValidate(w, r, h.validator, dst)
}

// decodeAndValidate writes the 400 itself and reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *services.ValidationHelper, dst any) bool {
	if err := services.DecodeJSON(w, r, dst); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return false
	}

	if err := v.ValidateStruct(dst); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}
