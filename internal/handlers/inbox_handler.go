package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/doubtsolve/backend/internal/models"
	"github.com/doubtsolve/backend/internal/services"
	"github.com/go-chi/chi/v5"
)

type AnswerBook interface {
	SubmitAnswer(ctx context.Context, callerID, doubtID string, req services.SubmitAnswerRequest) (*models.Answer, error)
	ListAnswers(ctx context.Context, callerID, doubtID string) ([]models.Answer, error)
}

type Inbox interface {
	ListNotifications(ctx context.Context, callerID string, limit int) (*services.NotificationList, error)
	MarkRead(ctx context.Context, callerID, notificationID string) error
	MarkAllRead(ctx context.Context, callerID string) (int64, error)
}

// InboxHandler serves doubt answers and the caller's notifications.
type InboxHandler struct {
	answers   AnswerBook
	inbox     Inbox
	validator *services.ValidationHelper
}

func NewInboxHandler(answers AnswerBook, inbox Inbox) *InboxHandler {
	return &InboxHandler{
		answers:   answers,
		inbox:     inbox,
		validator: services.NewValidationHelper(),
	}
}

// SubmitAnswer stores the accepted tutor's answer
// @Summary Submit answer
// @Description Text or call recording answer, by the doubt's accepted tutor while the doubt is accepted
// @Tags answers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param doubtId path string true "Doubt ID"
// @Param request body services.SubmitAnswerRequest true "Answer"
// @Success 201 {object} models.Answer
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /doubts/{doubtId}/answers [post]
func (h *InboxHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, err := services.CurrentUser(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	var req services.SubmitAnswerRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	answer, err := h.answers.SubmitAnswer(r.Context(), userID, chi.URLParam(r, "doubtId"), req)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusCreated, answer)
}

// ListAnswers returns a doubt's answers
// @Summary List answers
// @Tags answers
// @Produce json
// @Security BearerAuth
// @Param doubtId path string true "Doubt ID"
// @Success 200 {array} models.Answer
// @Failure 403 {object} services.ErrorResponse
// @Router /doubts/{doubtId}/answers [get]
func (h *InboxHandler) ListAnswers(w http.ResponseWriter, r *http.Request) {
	userID, err := services.CurrentUser(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	answers, err := h.answers.ListAnswers(r.Context(), userID, chi.URLParam(r, "doubtId"))
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusOK, answers)
}

// ListNotifications returns the caller's inbox
// @Summary Notifications
// @Description Newest notifications first, with the unread count
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max notifications (default 20)"
// @Success 200 {object} services.NotificationList
// @Failure 401 {object} services.ErrorResponse
// @Router /notifications [get]
func (h *InboxHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := services.CurrentUser(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.inbox.ListNotifications(r.Context(), userID, limit)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusOK, list)
}

// MarkRead marks one notification read
// @Summary Mark notification read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param notificationId path string true "Notification ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} services.ErrorResponse
// @Router /notifications/{notificationId}/read [post]
func (h *InboxHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, err := services.CurrentUser(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	if err := h.inbox.MarkRead(r.Context(), userID, chi.URLParam(r, "notificationId")); err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusOK, map[string]string{"message": "Notification marked read"})
}

// MarkAllRead marks every notification of the caller read
// @Summary Mark all notifications read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int64
// @Failure 401 {object} services.ErrorResponse
// @Router /notifications/read-all [post]
func (h *InboxHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, err := services.CurrentUser(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	n, err := h.inbox.MarkAllRead(r.Context(), userID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusOK, map[string]int64{"updated": n})
}
