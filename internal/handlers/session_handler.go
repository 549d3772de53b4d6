package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/doubtsolve/backend/internal/models"
	"github.com/doubtsolve/backend/internal/services"
	"github.com/go-chi/chi/v5"
)

type WalletReader interface {
	GetWallet(ctx context.Context, callerID string) (*services.Wallet, error)
}

type ChatLog interface {
	PostMessage(ctx context.Context, callerID, doubtID string, req services.PostMessageRequest) (*models.Message, error)
	ListMessages(ctx context.Context, callerID, doubtID string, limit int) ([]models.Message, error)
}

type RoomTokenIssuer interface {
	IssueRoomToken(ctx context.Context, callerID, doubtID string) (*services.RoomToken, error)
}

// SessionHandler serves what a student and tutor use once a doubt is accepted:
// chat, live call tokens and the wallet.
type SessionHandler struct {
	wallet    WalletReader
	chat      ChatLog
	calls     RoomTokenIssuer
	validator *services.ValidationHelper
}

func NewSessionHandler(wallet WalletReader, chat ChatLog, calls RoomTokenIssuer) *SessionHandler {
	return &SessionHandler{
		wallet:    wallet,
		chat:      chat,
		calls:     calls,
		validator: services.NewValidationHelper(),
	}
}

// GetWallet returns the caller's wallet
// @Summary Wallet
// @Description Balance, payment history and ledger entries of the caller
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.Wallet
// @Failure 401 {object} services.ErrorResponse
// @Router /wallet [get]
func (h *SessionHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := services.CurrentUser(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	wallet, err := h.wallet.GetWallet(r.Context(), userID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusOK, wallet)
}

// PostMessage adds a chat message to a doubt
// @Summary Post message
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param doubtId path string true "Doubt ID"
// @Param request body services.PostMessageRequest true "Message"
// @Success 201 {object} models.Message
// @Failure 403 {object} services.ErrorResponse
// @Router /doubts/{doubtId}/messages [post]
func (h *SessionHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := services.CurrentUser(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	var req services.PostMessageRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	msg, err := h.chat.PostMessage(r.Context(), userID, chi.URLParam(r, "doubtId"), req)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusCreated, msg)
}

// ListMessages returns the newest page of a doubt's chat in chronological order
// @Summary List messages
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param doubtId path string true "Doubt ID"
// @Param limit query int false "Max messages (default 100)"
// @Success 200 {array} models.Message
// @Failure 403 {object} services.ErrorResponse
// @Router /doubts/{doubtId}/messages [get]
func (h *SessionHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, err := services.CurrentUser(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	messages, err := h.chat.ListMessages(r.Context(), userID, chi.URLParam(r, "doubtId"), limit)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusOK, messages)
}

// RoomToken issues a live call token
// @Summary Call room token
// @Description Token for the doubt's call room, for its student or accepted tutor
// @Tags calls
// @Produce json
// @Security BearerAuth
// @Param room query string true "Doubt ID"
// @Success 200 {object} services.RoomToken
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /calls/token [get]
func (h *SessionHandler) RoomToken(w http.ResponseWriter, r *http.Request) {
	userID, err := services.CurrentUser(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	room := r.URL.Query().Get("room")
	if room == "" {
		services.SendErrorResponse(w, "room is required", http.StatusBadRequest, nil)
		return
	}

	token, err := h.calls.IssueRoomToken(r.Context(), userID, room)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusOK, token)
}
