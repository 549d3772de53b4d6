package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doubtsolve/backend/internal/models"
)

type WalletService struct {
	db     *sql.DB
	ledger *WalletLedgerService
}

func NewWalletService(db *sql.DB) *WalletService {
	return &WalletService{db: db, ledger: NewWalletLedgerService(db)}
}

// WalletTransaction is one payment seen from the caller's side.
type WalletTransaction struct {
	PaymentID   string               `json:"paymentId"`
	DoubtID     string               `json:"doubtId"`
	Direction   string               `json:"direction"` // earning or spend
	Amount      int64                `json:"amount"`
	PlatformFee int64                `json:"platformFee"`
	Net         int64                `json:"net"`
	Status      models.PaymentStatus `json:"status"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

type Wallet struct {
	ProfileID    string               `json:"profileId"`
	Balance      int64                `json:"balance"`
	Currency     string               `json:"currency"`
	Transactions []WalletTransaction  `json:"transactions"`
	Entries      []models.LedgerEntry `json:"entries"`
}

const walletHistoryLimit = 50

// GetWallet returns the caller's balance with released earnings as tutor and
// held or released spend as student.
func (s *WalletService) GetWallet(ctx context.Context, callerID string) (*Wallet, error) {
	if callerID == "" {
		return nil, unauthenticated()
	}

	balance, err := s.ledger.Balance(ctx, callerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("profile not found")
	}
	if err != nil {
		return nil, storeError("failed to load wallet", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doubt_id, amount, platform_fee, status, updated_at,
		       CASE WHEN tutor_id = $1 THEN 'earning' ELSE 'spend' END
		FROM payments
		WHERE (tutor_id = $1 AND status = 'released')
		   OR (student_id = $1 AND status IN ('held', 'released', 'refunded'))
		ORDER BY updated_at DESC
		LIMIT $2`, callerID, walletHistoryLimit)
	if err != nil {
		return nil, storeError("failed to load wallet history", err)
	}
	defer rows.Close()

	wallet := &Wallet{ProfileID: callerID, Balance: balance, Currency: "INR", Transactions: []WalletTransaction{}}
	for rows.Next() {
		var t WalletTransaction
		if err := rows.Scan(&t.PaymentID, &t.DoubtID, &t.Amount, &t.PlatformFee, &t.Status, &t.UpdatedAt, &t.Direction); err != nil {
			return nil, storeError("failed to read wallet history", err)
		}
		t.Net = t.Amount
		if t.Direction == "earning" {
			t.Net = t.Amount - t.PlatformFee
		}
		wallet.Transactions = append(wallet.Transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("failed to load wallet history", err)
	}

	wallet.Entries, err = s.ledger.Entries(ctx, callerID, walletHistoryLimit)
	if err != nil {
		return nil, storeError("failed to load ledger entries", err)
	}
	return wallet, nil
}
