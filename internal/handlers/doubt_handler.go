package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/doubtsolve/backend/internal/models"
	"github.com/doubtsolve/backend/internal/services"
	"github.com/go-chi/chi/v5"
)

type Marketplace interface {
	CreateDoubt(ctx context.Context, callerID string, req services.CreateDoubtRequest) (*models.Doubt, error)
	ListDoubts(ctx context.Context, filter services.DoubtFilter) ([]models.Doubt, error)
	GetDoubt(ctx context.Context, doubtID string) (*models.Doubt, error)
	ApplyToDoubt(ctx context.Context, callerID, doubtID string, req services.ApplyRequest) (*models.DoubtApplication, error)
	AcceptApplication(ctx context.Context, callerID, doubtID, applicationID string) (*models.Doubt, error)
	ListMyApplications(ctx context.Context, callerID string) ([]models.DoubtApplication, error)
}

type DoubtHandler struct {
	doubts    Marketplace
	validator *services.ValidationHelper
}

func NewDoubtHandler(doubts Marketplace) *DoubtHandler {
	return &DoubtHandler{doubts: doubts, validator: services.NewValidationHelper()}
}

// CreateDoubt posts a new doubt
// @Summary Post a doubt
// @Description Students post a priced doubt for tutors to apply to
// @Tags doubts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateDoubtRequest true "Doubt"
// @Success 201 {object} models.Doubt
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /doubts [post]
func (h *DoubtHandler) CreateDoubt(w http.ResponseWriter, r *http.Request) {
	userID, err := services.CurrentUser(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	var req services.CreateDoubtRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	doubt, err := h.doubts.CreateDoubt(r.Context(), userID, req)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusCreated, doubt)
}

// ListDoubts lists the marketplace
// @Summary List doubts
// @Tags doubts
// @Produce json
// @Security BearerAuth
// @Param subject query string false "Subject filter"
// @Param status query string false "Status filter (default open)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {array} models.Doubt
// @Router /doubts [get]
func (h *DoubtHandler) ListDoubts(w http.ResponseWriter, r *http.Request) {
	filter := services.DoubtFilter{
		Subject: r.URL.Query().Get("subject"),
		Status:  models.DoubtStatus(r.URL.Query().Get("status")),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			services.SendErrorResponse(w, "limit must be a number", http.StatusBadRequest, nil)
			return
		}
		filter.Limit = n
	}

	doubts, err := h.doubts.ListDoubts(r.Context(), filter)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusOK, doubts)
}

// GetDoubt returns one doubt with its applications
// @Summary Get doubt
// @Tags doubts
// @Produce json
// @Security BearerAuth
// @Param doubtId path string true "Doubt ID"
// @Success 200 {object} models.Doubt
// @Failure 404 {object} services.ErrorResponse
// @Router /doubts/{doubtId} [get]
func (h *DoubtHandler) GetDoubt(w http.ResponseWriter, r *http.Request) {
	doubt, err := h.doubts.GetDoubt(r.Context(), chi.URLParam(r, "doubtId"))
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusOK, doubt)
}

// Apply submits a tutor application
// @Summary Apply to a doubt
// @Tags doubts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param doubtId path string true "Doubt ID"
// @Param request body services.ApplyRequest true "Application"
// @Success 201 {object} models.DoubtApplication
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /doubts/{doubtId}/applications [post]
func (h *DoubtHandler) Apply(w http.ResponseWriter, r *http.Request) {
	userID, err := services.CurrentUser(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	var req services.ApplyRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	app, err := h.doubts.ApplyToDoubt(r.Context(), userID, chi.URLParam(r, "doubtId"), req)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusCreated, app)
}

// Accept picks the tutor for a doubt
// @Summary Accept an application
// @Description The owning student accepts one application; all others are rejected
// @Tags doubts
// @Produce json
// @Security BearerAuth
// @Param doubtId path string true "Doubt ID"
// @Param applicationId path string true "Application ID"
// @Success 200 {object} models.Doubt
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /doubts/{doubtId}/applications/{applicationId}/accept [post]
func (h *DoubtHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, err := services.CurrentUser(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	doubt, err := h.doubts.AcceptApplication(r.Context(), userID, chi.URLParam(r, "doubtId"), chi.URLParam(r, "applicationId"))
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusOK, doubt)
}

// MyApplications lists the caller's applications
// @Summary My applications
// @Tags doubts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.DoubtApplication
// @Router /applications [get]
func (h *DoubtHandler) MyApplications(w http.ResponseWriter, r *http.Request) {
	userID, err := services.CurrentUser(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	apps, err := h.doubts.ListMyApplications(r.Context(), userID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusOK, apps)
}
