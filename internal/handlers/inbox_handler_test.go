package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/doubtsolve/backend/internal/models"
	"github.com/doubtsolve/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockInbox struct {
	mock.Mock
}

func (m *MockInbox) SubmitAnswer(ctx context.Context, callerID, doubtID string, req services.SubmitAnswerRequest) (*models.Answer, error) {
	args := m.Called(ctx, callerID, doubtID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Answer), args.Error(1)
}

func (m *MockInbox) ListAnswers(ctx context.Context, callerID, doubtID string) ([]models.Answer, error) {
	args := m.Called(ctx, callerID, doubtID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Answer), args.Error(1)
}

func (m *MockInbox) ListNotifications(ctx context.Context, callerID string, limit int) (*services.NotificationList, error) {
	args := m.Called(ctx, callerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.NotificationList), args.Error(1)
}

func (m *MockInbox) MarkRead(ctx context.Context, callerID, notificationID string) error {
	return m.Called(ctx, callerID, notificationID).Error(0)
}

func (m *MockInbox) MarkAllRead(ctx context.Context, callerID string) (int64, error) {
	args := m.Called(ctx, callerID)
	return args.Get(0).(int64), args.Error(1)
}

func inboxRouter(h *InboxHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/doubts/{doubtId}/answers", h.SubmitAnswer)
	r.Get("/doubts/{doubtId}/answers", h.ListAnswers)
	r.Get("/notifications", h.ListNotifications)
	r.Post("/notifications/read-all", h.MarkAllRead)
	r.Post("/notifications/{notificationId}/read", h.MarkRead)
	return r
}

func TestInboxHandler_Answers(t *testing.T) {
	inbox := &MockInbox{}
	router := inboxRouter(NewInboxHandler(inbox, inbox))

	t.Run("tutor submits", func(t *testing.T) {
		req := services.SubmitAnswerRequest{Content: "Use the chain rule twice."}
		inbox.On("SubmitAnswer", mock.Anything, "t1", "d1", req).
			Return(&models.Answer{ID: "a1", DoubtID: "d1", TutorID: "t1", Type: models.AnswerTypeText, Content: req.Content}, nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authed(httptest.NewRequest("POST", "/doubts/d1/answers", jsonBody(t, req)), "t1"))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"id":"a1"`)
	})

	t.Run("student cannot submit", func(t *testing.T) {
		req := services.SubmitAnswerRequest{Content: "mine"}
		inbox.On("SubmitAnswer", mock.Anything, "s1", "d1", req).
			Return(nil, &services.Error{Kind: services.KindForbidden, Message: "only the accepted tutor can answer this doubt"}).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authed(httptest.NewRequest("POST", "/doubts/d1/answers", jsonBody(t, req)), "s1"))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown answer type", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authed(httptest.NewRequest("POST", "/doubts/d1/answers",
			jsonBody(t, map[string]string{"type": "video", "content": "x"})), "t1"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list", func(t *testing.T) {
		inbox.On("ListAnswers", mock.Anything, "s1", "d1").
			Return([]models.Answer{{ID: "a1", DoubtID: "d1"}}, nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authed(httptest.NewRequest("GET", "/doubts/d1/answers", nil), "s1"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"doubt_id":"d1"`)
	})

	inbox.AssertExpectations(t)
}

func TestInboxHandler_Notifications(t *testing.T) {
	inbox := &MockInbox{}
	router := inboxRouter(NewInboxHandler(inbox, inbox))

	inbox.On("ListNotifications", mock.Anything, "s1", 5).
		Return(&services.NotificationList{
			Notifications: []models.Notification{{ID: "n1", UserID: "s1", Type: models.NotificationPayment}},
			Unread:        1,
		}, nil)
	inbox.On("MarkRead", mock.Anything, "s1", "n1").Return(nil)
	inbox.On("MarkRead", mock.Anything, "s1", "n9").
		Return(&services.Error{Kind: services.KindNotFound, Message: "notification not found"})
	inbox.On("MarkAllRead", mock.Anything, "s1").Return(int64(3), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authed(httptest.NewRequest("GET", "/notifications?limit=5", nil), "s1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unread":1`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authed(httptest.NewRequest("POST", "/notifications/n1/read", nil), "s1"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authed(httptest.NewRequest("POST", "/notifications/n9/read", nil), "s1"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authed(httptest.NewRequest("POST", "/notifications/read-all", nil), "s1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"updated":3`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/notifications", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	inbox.AssertExpectations(t)
}
