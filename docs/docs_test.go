package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwaggerDocCoversRoutes(t *testing.T) {
	raw := SwaggerInfo.ReadDoc()

	var doc struct {
		Paths       map[string]map[string]json.RawMessage `json:"paths"`
		Definitions map[string]json.RawMessage            `json:"definitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	routes := []struct{ path, method string }{
		{"/auth/register", "post"},
		{"/auth/login", "post"},
		{"/auth/logout", "post"},
		{"/auth/me", "get"},
		{"/auth/me", "put"},
		{"/payments/create-order", "post"},
		{"/payments/verify", "post"},
		{"/payments/release", "post"},
		{"/payments/{orderId}/qr", "get"},
		{"/wallet", "get"},
		{"/doubts", "get"},
		{"/doubts", "post"},
		{"/doubts/{doubtId}", "get"},
		{"/doubts/{doubtId}/applications", "post"},
		{"/doubts/{doubtId}/applications/{applicationId}/accept", "post"},
		{"/applications", "get"},
		{"/doubts/{doubtId}/messages", "get"},
		{"/doubts/{doubtId}/messages", "post"},
		{"/doubts/{doubtId}/answers", "get"},
		{"/doubts/{doubtId}/answers", "post"},
		{"/calls/token", "get"},
		{"/notifications", "get"},
		{"/notifications/read-all", "post"},
		{"/notifications/{notificationId}/read", "post"},
	}
	operations := 0
	for _, route := range routes {
		assert.Contains(t, doc.Paths[route.path], route.method, "missing %s %s", route.method, route.path)
	}
	for _, ops := range doc.Paths {
		operations += len(ops)
	}
	assert.Equal(t, len(routes), operations)

	for _, def := range []string{"services.VerifyRequest", "services.SubmitAnswerRequest", "services.NotificationList", "services.UpdateProfileRequest", "models.Answer"} {
		assert.Contains(t, doc.Definitions, def)
	}
}
