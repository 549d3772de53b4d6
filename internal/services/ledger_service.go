package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doubtsolve/backend/internal/models"
)

// WalletLedgerService is the only writer of profiles.wallet_balance. Credits are
// only ever applied inside the caller's escrow release transaction.
type WalletLedgerService struct {
	db *sql.DB
}

func NewWalletLedgerService(db *sql.DB) *WalletLedgerService {
	return &WalletLedgerService{db: db}
}

// CreditTx credits profileID by amount for paymentID and returns the new balance.
func (s *WalletLedgerService) CreditTx(ctx context.Context, tx *sql.Tx, profileID, paymentID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	account, err := s.lockAccount(ctx, tx, profileID)
	if err != nil {
		return 0, err
	}

	newBalance := account.Balance + amount

	if err := s.createLedgerEntry(ctx, tx, paymentID, account.ProfileID, amount, models.EntryTypeCredit, newBalance); err != nil {
		return 0, err
	}

	if err := s.updateAccountBalance(ctx, tx, account.ProfileID, newBalance, account.Version); err != nil {
		return 0, err
	}

	return newBalance, nil
}

// Balance is a snapshot read; never use it as the base of a write.
func (s *WalletLedgerService) Balance(ctx context.Context, profileID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `SELECT wallet_balance FROM profiles WHERE id = $1`, profileID).Scan(&balance)
	return balance, err
}

func (s *WalletLedgerService) Entries(ctx context.Context, profileID string, limit int) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payment_id, profile_id, amount, entry_type, balance_after, created_at
		FROM wallet_ledger_entries WHERE profile_id = $1
		ORDER BY created_at DESC LIMIT $2`, profileID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.PaymentID, &e.ProfileID, &e.Amount, &e.EntryType, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func appendPaymentState(ctx context.Context, tx *sql.Tx, paymentID string, state models.PaymentStatus) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payment_states (payment_id, state, created_at)
		VALUES ($1, $2, $3)`,
		paymentID, string(state), time.Now())
	return err
}

func (s *WalletLedgerService) lockAccount(ctx context.Context, tx *sql.Tx, profileID string) (*models.WalletAccount, error) {
	var account models.WalletAccount
	err := tx.QueryRowContext(ctx, `
		SELECT id, wallet_balance, version, updated_at
		FROM profiles WHERE id = $1 FOR UPDATE`, profileID).
		Scan(&account.ProfileID, &account.Balance, &account.Version, &account.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("lock wallet %s: %w", profileID, err)
	}
	return &account, nil
}

func (s *WalletLedgerService) createLedgerEntry(ctx context.Context, tx *sql.Tx, paymentID, profileID string, amount int64, entryType string, balance int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_ledger_entries (payment_id, profile_id, amount, entry_type, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		paymentID, profileID, amount, entryType, balance, time.Now())
	return err
}

func (s *WalletLedgerService) updateAccountBalance(ctx context.Context, tx *sql.Tx, profileID string, newBalance int64, version int) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE profiles
		SET wallet_balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		newBalance, time.Now(), profileID, version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("optimistic lock failed for wallet %s", profileID)
	}

	return nil
}
