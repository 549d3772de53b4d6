package models

import (
	"time"
)

type LedgerEntry struct {
	ID           int       `json:"id" db:"id"`
	PaymentID    string    `json:"payment_id" db:"payment_id"`
	ProfileID    string    `json:"profile_id" db:"profile_id"`
	Amount       int64     `json:"amount" db:"amount"`         // whole currency units
	EntryType    string    `json:"entry_type" db:"entry_type"` // CREDIT
	BalanceAfter int64     `json:"balance_after" db:"balance_after"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// WalletAccount is the lockable view of a profile's wallet.
type WalletAccount struct {
	ProfileID string    `json:"profile_id" db:"id"`
	Balance   int64     `json:"balance" db:"wallet_balance"`
	Version   int       `json:"version" db:"version"` // for optimistic locking
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

const (
	EntryTypeCredit = "CREDIT"
)
