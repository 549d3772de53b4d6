package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"log"
	"net/url"
	"time"

	"github.com/doubtsolve/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
)

const checkoutQRTTL = 5 * time.Minute

type paymentLookup interface {
	PaymentForOrder(ctx context.Context, callerID, orderID string) (*models.Payment, error)
}

// QRService renders the hosted checkout page of a pending order as a QR code so a
// student can finish paying on a phone.
type QRService struct {
	payments    paymentLookup
	redis       *redis.Client
	checkoutURL string
	keyID       string
}

type CheckoutQR struct {
	OrderID  string `json:"orderId"`
	URL      string `json:"url"`
	QRImage  string `json:"qrImage"` // base64 PNG
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func NewQRService(payments paymentLookup, redis *redis.Client, checkoutURL, keyID string) *QRService {
	return &QRService{
		payments:    payments,
		redis:       redis,
		checkoutURL: checkoutURL,
		keyID:       keyID,
	}
}

func (s *QRService) CheckoutQR(ctx context.Context, callerID, orderID string) (*CheckoutQR, error) {
	payment, err := s.payments.PaymentForOrder(ctx, callerID, orderID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentPending {
		return nil, preconditionFailed(fmt.Sprintf("payment is %s, nothing left to pay", payment.Status))
	}

	checkout := s.checkoutLink(orderID)
	result := &CheckoutQR{
		OrderID:  orderID,
		URL:      checkout,
		Amount:   payment.Amount,
		Currency: payment.Currency,
	}

	key := fmt.Sprintf("qr:checkout:%s", orderID)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Result(); err == nil {
			result.QRImage = cached
			return result, nil
		} else if err != redis.Nil {
			log.Printf("[QR] Cache read failed for %s: %v", orderID, err)
		}
	}

	qr, err := qrcode.New(checkout, qrcode.Medium)
	if err != nil {
		return nil, internalError("checkout link cannot be encoded", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return nil, internalError("checkout link cannot be encoded", err)
	}
	result.QRImage = base64.StdEncoding.EncodeToString(buf.Bytes())

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, result.QRImage, checkoutQRTTL).Err(); err != nil {
			log.Printf("[QR] Cache write failed for %s: %v", orderID, err)
		}
	}

	return result, nil
}

func (s *QRService) checkoutLink(orderID string) string {
	q := url.Values{}
	q.Set("key_id", s.keyID)
	q.Set("order_id", orderID)
	return s.checkoutURL + "?" + q.Encode()
}
