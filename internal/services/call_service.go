package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/doubtsolve/backend/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// VideoGrant is the room permission block a LiveKit server expects in the token.
type VideoGrant struct {
	Room         string `json:"room"`
	RoomJoin     bool   `json:"roomJoin"`
	CanPublish   bool   `json:"canPublish"`
	CanSubscribe bool   `json:"canSubscribe"`
}

type roomClaims struct {
	Name  string     `json:"name,omitempty"`
	Video VideoGrant `json:"video"`
	jwt.RegisteredClaims
}

type RoomToken struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	Room      string    `json:"room"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CallService mints room tokens for live calls on a doubt. Media never passes
// through this service.
type CallService struct {
	db  *sql.DB
	cfg *config.CallConfig
	now func() time.Time
}

func NewCallService(db *sql.DB, cfg *config.CallConfig) *CallService {
	return &CallService{db: db, cfg: cfg, now: time.Now}
}

// IssueRoomToken grants callerID access to the room named after doubtID.
func (s *CallService) IssueRoomToken(ctx context.Context, callerID, doubtID string) (*RoomToken, error) {
	if s.cfg.APIKey == "" || s.cfg.APISecret == "" {
		return nil, preconditionFailed("calls are not configured")
	}

	if _, err := participantDoubt(ctx, s.db, callerID, doubtID); err != nil {
		return nil, err
	}

	var name string
	if err := s.db.QueryRowContext(ctx, `SELECT name FROM profiles WHERE id = $1`, callerID).Scan(&name); err != nil {
		return nil, storeError("failed to load profile", err)
	}

	ttl := s.cfg.TokenTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	now := s.now()
	expires := now.Add(ttl)

	claims := roomClaims{
		Name: name,
		Video: VideoGrant{
			Room:         doubtID,
			RoomJoin:     true,
			CanPublish:   true,
			CanSubscribe: true,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.APIKey,
			Subject:   callerID,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.APISecret))
	if err != nil {
		return nil, internalError("failed to sign room token", err)
	}

	log.Printf("[CALLS] Room token issued for doubt %s to %s", doubtID, callerID)
	return &RoomToken{Token: token, URL: s.cfg.URL, Room: doubtID, ExpiresAt: expires}, nil
}
