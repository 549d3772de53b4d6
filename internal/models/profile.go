package models

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

// Profile is a marketplace identity. WalletBalance is only written by escrow release.
type Profile struct {
	ID            string    `json:"id" example:"6f1c2b8e-9d1a-4b53-9b0e-2f8f4f7f2c11"`
	Name          string    `json:"name" example:"Asha Rao"`
	Email         string    `json:"email" example:"asha@example.com"`
	Role          Role      `json:"role" example:"student"`
	Bio           string    `json:"bio,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	Subjects      []string  `json:"subjects"`
	WalletBalance int64     `json:"wallet_balance" example:"0"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
