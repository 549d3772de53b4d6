package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/doubtsolve/backend/internal/audit"
	"github.com/doubtsolve/backend/internal/gateway"
	"github.com/doubtsolve/backend/internal/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EscrowService moves a doubt's price from the student into gateway custody and,
// on the student's release, into the accepted tutor's wallet exactly once.
type EscrowService struct {
	db       *sql.DB
	gateway  gateway.Gateway
	verifier *gateway.SignatureVerifier
	ledger   *WalletLedgerService
	audit    *audit.Logger
	events   *EventPublisher
	notices  *NotificationService
	metrics  *escrowMetrics
	tracer   trace.Tracer
	currency string
	now      func() time.Time
}

func NewEscrowService(db *sql.DB, gw gateway.Gateway, verifier *gateway.SignatureVerifier, events *EventPublisher, notices *NotificationService, currency string) *EscrowService {
	if currency == "" {
		currency = "INR"
	}
	return &EscrowService{
		db:       db,
		gateway:  gw,
		verifier: verifier,
		ledger:   NewWalletLedgerService(db),
		audit:    audit.NewLogger(),
		events:   events,
		notices:  notices,
		metrics:  newEscrowMetrics(),
		tracer:   otel.Tracer(instrumentationName),
		currency: currency,
		now:      time.Now,
	}
}

type CreateOrderRequest struct {
	DoubtID string `json:"doubtId" validate:"required"`
	Amount  int64  `json:"amount" validate:"omitempty,gt=0"`
}

type OrderResult struct {
	OrderID     string `json:"orderId"`
	KeyID       string `json:"key"`
	PaymentID   string `json:"paymentId"`
	Amount      int64  `json:"amount"`
	AmountMinor int64  `json:"amountMinor"`
	Currency    string `json:"currency"`
	Reused      bool   `json:"reused,omitempty"`
}

type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
	DoubtID   string `json:"doubtId,omitempty"`
}

type HoldResult struct {
	PaymentID   string               `json:"paymentId"`
	DoubtID     string               `json:"doubtId"`
	Status      models.PaymentStatus `json:"status"`
	AlreadyHeld bool                 `json:"alreadyHeld,omitempty"`
}

type ReleaseResult struct {
	DoubtID     string `json:"doubtId"`
	PaymentID   string `json:"paymentId"`
	TutorID     string `json:"tutorId"`
	Amount      int64  `json:"amount"`
	PlatformFee int64  `json:"platformFee"`
	TutorAmount int64  `json:"tutorAmount"`
}

// MinorUnits converts a whole-unit price to the gateway's minor units (paise).
func MinorUnits(amount int64) int64 {
	return amount * 100
}

// CreateOrder opens a gateway order for the doubt's stored price. The gateway is
// called before anything is written, so a gateway failure leaves no payment row.
func (s *EscrowService) CreateOrder(ctx context.Context, callerID string, req CreateOrderRequest) (result *OrderResult, err error) {
	ctx, span := s.tracer.Start(ctx, "escrow.create_order", trace.WithAttributes(attribute.String("doubt.id", req.DoubtID)))
	defer func() { s.finish(ctx, span, "create_order", req.DoubtID, callerID, err) }()

	if callerID == "" {
		return nil, unauthenticated()
	}

	var studentID string
	var price int64
	var status models.DoubtStatus
	err = s.db.QueryRowContext(ctx, `SELECT student_id, price, status FROM doubts WHERE id = $1`, req.DoubtID).
		Scan(&studentID, &price, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("doubt not found")
	}
	if err != nil {
		return nil, storeError("failed to load doubt", err)
	}

	if studentID != callerID {
		return nil, forbidden("only the student who posted this doubt can pay for it")
	}
	if status != models.DoubtStatusOpen && status != models.DoubtStatusAccepted {
		return nil, preconditionFailed(fmt.Sprintf("doubt is %s and cannot be paid for", status))
	}
	if req.Amount != 0 && req.Amount != price {
		return nil, preconditionFailed("amount does not match the doubt's price")
	}

	existing, err := s.findOpenPayment(ctx, req.DoubtID)
	if err != nil {
		return nil, storeError("failed to load payments", err)
	}
	if existing != nil {
		if existing.Status != models.PaymentPending {
			return nil, preconditionFailed("doubt has already been paid for")
		}
		log.Printf("[ESCROW] Reusing pending order %s for doubt %s", existing.GatewayOrderID, req.DoubtID)
		return &OrderResult{
			OrderID:     existing.GatewayOrderID,
			KeyID:       s.gateway.KeyID(),
			PaymentID:   existing.ID,
			Amount:      existing.Amount,
			AmountMinor: MinorUnits(existing.Amount),
			Currency:    existing.Currency,
			Reused:      true,
		}, nil
	}

	order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		AmountMinor: MinorUnits(price),
		Currency:    s.currency,
		Receipt:     "rcpt_" + req.DoubtID,
		Notes: map[string]string{
			"doubtId":   req.DoubtID,
			"studentId": callerID,
		},
	})
	if err != nil {
		if errors.Is(err, gateway.ErrUnavailable) {
			return nil, newError(KindGateway, "payment gateway unavailable", err)
		}
		return nil, newError(KindGateway, "payment gateway rejected the order", err)
	}

	paymentID := uuid.NewString()
	if err := s.insertPendingPayment(ctx, paymentID, req.DoubtID, callerID, price, order.ID); err != nil {
		return nil, storeError("failed to record payment", err)
	}

	s.audit.LogOrderCreated(paymentID, req.DoubtID, callerID, order.ID, price)
	s.metrics.ordersCreated.Add(ctx, 1)
	log.Printf("[ESCROW] Order %s created for doubt %s (payment %s)", order.ID, req.DoubtID, paymentID)

	return &OrderResult{
		OrderID:     order.ID,
		KeyID:       s.gateway.KeyID(),
		PaymentID:   paymentID,
		Amount:      price,
		AmountMinor: MinorUnits(price),
		Currency:    s.currency,
	}, nil
}

// VerifyAndHold moves a pending payment to held once the gateway signature checks
// out. Replaying the same verified payment is a successful no-op. callerID may be
// empty when the gateway itself is the caller.
func (s *EscrowService) VerifyAndHold(ctx context.Context, callerID string, req VerifyRequest) (result *HoldResult, err error) {
	ctx, span := s.tracer.Start(ctx, "escrow.verify_and_hold", trace.WithAttributes(attribute.String("gateway.order_id", req.OrderID)))
	defer func() { s.finish(ctx, span, "verify_and_hold", req.DoubtID, callerID, err) }()

	if !s.verifier.Verify(req.OrderID, req.PaymentID, req.Signature) {
		return nil, newError(KindSignatureInvalid, "payment signature verification failed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var payment models.Payment
	err = tx.QueryRowContext(ctx, `
		SELECT id, doubt_id, student_id, amount, status, COALESCE(gateway_payment_id, '')
		FROM payments WHERE gateway_order_id = $1 FOR UPDATE`, req.OrderID).
		Scan(&payment.ID, &payment.DoubtID, &payment.StudentID, &payment.Amount, &payment.Status, &payment.GatewayPaymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("no payment for this order")
	}
	if err != nil {
		return nil, storeError("failed to load payment", err)
	}

	if callerID != "" && callerID != payment.StudentID {
		return nil, forbidden("payment belongs to another student")
	}
	if req.DoubtID != "" && req.DoubtID != payment.DoubtID {
		return nil, preconditionFailed("order does not belong to this doubt")
	}

	switch payment.Status {
	case models.PaymentPending:
	case models.PaymentHeld, models.PaymentReleased:
		if payment.GatewayPaymentID == req.PaymentID {
			return &HoldResult{PaymentID: payment.ID, DoubtID: payment.DoubtID, Status: payment.Status, AlreadyHeld: true}, nil
		}
		return nil, preconditionFailed("order was settled by a different payment")
	default:
		return nil, preconditionFailed(fmt.Sprintf("payment is %s", payment.Status))
	}

	var funded bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM payments
			WHERE doubt_id = $1 AND id <> $2 AND status IN ('held', 'released')
		)`, payment.DoubtID, payment.ID).Scan(&funded)
	if err != nil {
		return nil, storeError("failed to check doubt funding", err)
	}
	if funded {
		return nil, preconditionFailed("doubt has already been paid for")
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET status = 'held', gateway_payment_id = $1, gateway_signature = $2, updated_at = $3
		WHERE id = $4 AND status = 'pending'`,
		req.PaymentID, req.Signature, s.now(), payment.ID)
	if err != nil {
		return nil, storeError("failed to hold payment", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, preconditionFailed("payment is no longer pending")
	}

	if err := appendPaymentState(ctx, tx, payment.ID, models.PaymentHeld); err != nil {
		return nil, storeError("failed to journal payment state", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError("failed to commit hold", err)
	}

	s.audit.LogHold(payment.ID, payment.DoubtID, req.PaymentID, payment.Amount)
	s.metrics.holds.Add(ctx, 1)
	s.events.Publish(ctx, EventPaymentHeld, payment.DoubtID, callerID,
		map[string]any{"paymentId": payment.ID, "amount": payment.Amount}, payment.StudentID)
	s.notices.Notify(ctx, Notice{
		UserID:  payment.StudentID,
		Type:    models.NotificationPayment,
		Title:   "Payment secured",
		Message: fmt.Sprintf("₹%d is held in escrow until you release it", payment.Amount),
		Link:    doubtLink(payment.DoubtID),
	})
	log.Printf("[ESCROW] Payment %s held for doubt %s", payment.ID, payment.DoubtID)

	return &HoldResult{PaymentID: payment.ID, DoubtID: payment.DoubtID, Status: models.PaymentHeld}, nil
}

// ReleaseEscrow marks the doubt solved and credits the accepted tutor, all in one
// transaction. The held->released compare-and-set on the payment row is the fence:
// a second or concurrent release matches zero rows and credits nothing.
func (s *EscrowService) ReleaseEscrow(ctx context.Context, callerID, doubtID string) (result *ReleaseResult, err error) {
	ctx, span := s.tracer.Start(ctx, "escrow.release", trace.WithAttributes(attribute.String("doubt.id", doubtID)))
	defer func() { s.finish(ctx, span, "release", doubtID, callerID, err) }()

	if callerID == "" {
		return nil, unauthenticated()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var studentID string
	var tutorID sql.NullString
	var price int64
	var status models.DoubtStatus
	err = tx.QueryRowContext(ctx, `
		SELECT student_id, accepted_tutor_id, price, status
		FROM doubts WHERE id = $1 FOR UPDATE`, doubtID).
		Scan(&studentID, &tutorID, &price, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("doubt not found")
	}
	if err != nil {
		return nil, storeError("failed to load doubt", err)
	}

	if studentID != callerID {
		return nil, forbidden("only the student who posted this doubt can release payment")
	}
	if !tutorID.Valid || tutorID.String == "" {
		return nil, preconditionFailed("no tutor accepted for this doubt")
	}
	if status == models.DoubtStatusSolved {
		return nil, preconditionFailed("doubt is already solved")
	}

	fee := PlatformFee(price)
	tutorAmount := price - fee

	var paymentID string
	err = tx.QueryRowContext(ctx, `
		UPDATE payments
		SET status = 'released', tutor_id = $1, platform_fee = $2, updated_at = $3
		WHERE doubt_id = $4 AND status = 'held'
		RETURNING id`,
		tutorID.String, fee, s.now(), doubtID).Scan(&paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, preconditionFailed("no held payment for this doubt")
	}
	if err != nil {
		return nil, storeError("failed to release payment", err)
	}

	if _, err := s.ledger.CreditTx(ctx, tx, tutorID.String, paymentID, tutorAmount); err != nil {
		return nil, storeError("failed to credit tutor wallet", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE doubts SET status = 'solved', updated_at = $1
		WHERE id = $2 AND status = 'accepted'`, s.now(), doubtID)
	if err != nil {
		return nil, storeError("failed to mark doubt solved", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, preconditionFailed(fmt.Sprintf("doubt is %s, expected accepted", status))
	}

	if err := appendPaymentState(ctx, tx, paymentID, models.PaymentReleased); err != nil {
		return nil, storeError("failed to journal payment state", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError("failed to commit release", err)
	}

	s.audit.LogRelease(paymentID, doubtID, callerID, tutorID.String, tutorAmount, fee)
	s.metrics.releases.Add(ctx, 1)
	s.metrics.releasedValue.Add(ctx, tutorAmount)
	s.events.Publish(ctx, EventPaymentReleased, doubtID, callerID,
		map[string]any{"paymentId": paymentID, "tutorAmount": tutorAmount}, callerID, tutorID.String)
	s.notices.Notify(ctx, Notice{
		UserID:  tutorID.String,
		Type:    models.NotificationPayment,
		Title:   "Payment released",
		Message: fmt.Sprintf("₹%d was credited to your wallet", tutorAmount),
		Link:    "/wallet",
	})
	log.Printf("[ESCROW] Released %d to tutor %s for doubt %s (fee %d)", tutorAmount, tutorID.String, doubtID, fee)

	return &ReleaseResult{
		DoubtID:     doubtID,
		PaymentID:   paymentID,
		TutorID:     tutorID.String,
		Amount:      price,
		PlatformFee: fee,
		TutorAmount: tutorAmount,
	}, nil
}

// PaymentForOrder returns the payment behind a gateway order, for its payer only.
func (s *EscrowService) PaymentForOrder(ctx context.Context, callerID, orderID string) (*models.Payment, error) {
	if callerID == "" {
		return nil, unauthenticated()
	}

	var p models.Payment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, doubt_id, student_id, amount, currency, gateway_order_id, status
		FROM payments WHERE gateway_order_id = $1`, orderID).
		Scan(&p.ID, &p.DoubtID, &p.StudentID, &p.Amount, &p.Currency, &p.GatewayOrderID, &p.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("no payment for this order")
	}
	if err != nil {
		return nil, storeError("failed to load payment", err)
	}
	if p.StudentID != callerID {
		return nil, forbidden("payment belongs to another student")
	}
	return &p, nil
}

func (s *EscrowService) findOpenPayment(ctx context.Context, doubtID string) (*models.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, gateway_order_id, amount, currency, status
		FROM payments
		WHERE doubt_id = $1 AND status IN ('pending', 'held', 'released')
		ORDER BY created_at DESC`, doubtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending *models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.GatewayOrderID, &p.Amount, &p.Currency, &p.Status); err != nil {
			return nil, err
		}
		if p.Status != models.PaymentPending {
			return &p, nil
		}
		if pending == nil {
			pending = &p
		}
	}
	return pending, rows.Err()
}

func (s *EscrowService) insertPendingPayment(ctx context.Context, paymentID, doubtID, studentID string, amount int64, orderID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := s.now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, doubt_id, student_id, amount, currency, gateway_order_id, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8, $8)`,
		paymentID, doubtID, studentID, amount, s.currency, orderID,
		models.Metadata{"receipt": "rcpt_" + doubtID}, now)
	if err != nil {
		return err
	}

	if err := appendPaymentState(ctx, tx, paymentID, models.PaymentPending); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *EscrowService) finish(ctx context.Context, span trace.Span, operation, doubtID, callerID string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.reject(ctx, operation, err)
		s.audit.LogError("ESCROW_"+operation, doubtID, callerID, err)
		log.Printf("[ESCROW] %s rejected for doubt %s: %v", operation, doubtID, err)
	}
	span.End()
}
