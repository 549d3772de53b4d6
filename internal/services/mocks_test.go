package services

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/doubtsolve/backend/internal/audit"
	"github.com/doubtsolve/backend/internal/gateway"
	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Order), args.Error(1)
}

func (m *MockGateway) KeyID() string {
	return "rzp_test_key"
}

var fixedNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

func silentAudit() *audit.Logger {
	return audit.NewLoggerTo(log.New(io.Discard, "", 0), func() time.Time { return fixedNow })
}
