package services

import (
	cryptorand "crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/doubtsolve/backend/internal/middleware"
	"github.com/doubtsolve/backend/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *validator.Validate
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"asha@example.com"` // Profile email
	Password string `json:"password" validate:"required,min=6" example:"password123"`   // Profile password
}

// RegisterRequest represents the registration request payload
// @Description Registration request structure
type RegisterRequest struct {
	Name     string      `json:"name" validate:"required,min=2" example:"Asha Rao"`                 // Display name
	Email    string      `json:"email" validate:"required,email" example:"asha@example.com"`        // Profile email
	Password string      `json:"password" validate:"required,min=6" example:"password123"`          // Profile password
	Role     models.Role `json:"role" validate:"required,oneof=student tutor" example:"student"`    // student or tutor
	Bio      string      `json:"bio,omitempty" validate:"max=500" example:"Physics tutor, IIT-JEE"` // Optional bio
}

// UpdateProfileRequest replaces the editable profile fields
// @Description Profile update structure
type UpdateProfileRequest struct {
	Name      string   `json:"name" validate:"required,min=2" example:"Asha Rao"`
	Bio       string   `json:"bio" validate:"max=1000" example:"Physics tutor, IIT-JEE"`
	AvatarURL string   `json:"avatarUrl,omitempty" validate:"omitempty,url" example:"https://cdn.example.com/a.png"`
	Subjects  []string `json:"subjects" validate:"max=20,dive,min=1,max=60" example:"physics,maths"`
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token   string         `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."` // JWT token
	Profile models.Profile `json:"profile"`                                                 // Profile information
}

func NewAuthService(db *sql.DB, redisClient *redis.Client) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		validator: validator.New(),
	}
}

// Register handles profile registration
// @Summary Register a new profile
// @Description Register a student or tutor with name, email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 201 {object} AuthResponse "Registration successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 409 {object} ErrorResponse "Email already exists"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Registration attempt from IP: %s", r.RemoteAddr)

	var req RegisterRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		log.Printf("[AUTH] Registration failed - invalid request: %v", err)
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		log.Printf("[AUTH] Registration validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		log.Printf("[AUTH] Password hashing failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	profile := models.Profile{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Email:    strings.ToLower(req.Email),
		Role:     req.Role,
		Bio:      req.Bio,
		Subjects: []string{},
	}

	err = s.db.QueryRowContext(r.Context(), `
		INSERT INTO profiles (id, name, email, password_hash, role, bio)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		profile.ID, profile.Name, profile.Email, hashedPassword, string(profile.Role), profile.Bio).
		Scan(&profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			log.Printf("[AUTH] Email already registered: %s", profile.Email)
			SendErrorResponse(w, "Email Already Exists", http.StatusConflict, nil)
			return
		}
		log.Printf("[AUTH] Profile creation failed for %s: %v", profile.Email, err)
		SendErrorResponse(w, "Failed to create profile", http.StatusInternalServerError, nil)
		return
	}

	token, err := generateJWT(profile.ID, profile.Role)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for profile %s: %v", profile.ID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Registration successful for profile %s (%s)", profile.ID, profile.Role)
	SendJSON(w, http.StatusCreated, AuthResponse{Token: token, Profile: profile})
}

// Login handles profile authentication
// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	var req LoginRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		log.Printf("[AUTH] Login failed - invalid request: %v", err)
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		log.Printf("[AUTH] Login validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var profile models.Profile
	var hashedPassword string
	err := s.db.QueryRowContext(r.Context(), `
		SELECT id, name, email, role, bio, wallet_balance, created_at, updated_at, password_hash
		FROM profiles WHERE email = $1`, strings.ToLower(req.Email)).
		Scan(&profile.ID, &profile.Name, &profile.Email, &profile.Role, &profile.Bio,
			&profile.WalletBalance, &profile.CreatedAt, &profile.UpdatedAt, &hashedPassword)
	if err != nil {
		log.Printf("[AUTH] Profile not found for email: %s", req.Email)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	if !verifyPassword(req.Password, hashedPassword) {
		log.Printf("[AUTH] Invalid password for profile: %s", profile.ID)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	token, err := generateJWT(profile.ID, profile.Role)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for profile %s: %v", profile.ID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Login successful for profile %s", profile.ID)
	SendJSON(w, http.StatusOK, AuthResponse{Token: token, Profile: profile})
}

// Logout handles logout
// @Summary Logout
// @Description Revoke the bearer token until it expires
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token != "" && s.redis != nil {
		expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
		if err := s.redis.Set(r.Context(), middleware.BlacklistKey(token), "1", expiry).Err(); err != nil {
			log.Printf("[AUTH] Failed to blacklist token: %v", err)
		}
	}

	SendJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// Me returns the authenticated profile
// @Summary Current profile
// @Description Get the authenticated caller's profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Profile "Profile"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Profile not found"
// @Router /auth/me [get]
func (s *AuthService) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := CurrentUser(r.Context())
	if err != nil {
		SendServiceError(w, err)
		return
	}

	var profile models.Profile
	err = s.db.QueryRowContext(r.Context(), `
		SELECT id, name, email, role, bio, avatar_url, subjects, wallet_balance, created_at, updated_at
		FROM profiles WHERE id = $1`, userID).
		Scan(&profile.ID, &profile.Name, &profile.Email, &profile.Role, &profile.Bio, &profile.AvatarURL,
			pq.Array(&profile.Subjects), &profile.WalletBalance, &profile.CreatedAt, &profile.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		SendServiceError(w, notFound("profile not found"))
		return
	}
	if err != nil {
		log.Printf("[AUTH] Failed to fetch profile %s: %v", userID, err)
		SendServiceError(w, storeError("failed to load profile", err))
		return
	}

	SendJSON(w, http.StatusOK, profile)
}

// UpdateMe edits the caller's public profile
// @Summary Update current profile
// @Description Replace the caller's name, bio, avatar and subjects. Email, role and balance are not editable.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} models.Profile "Updated profile"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Profile not found"
// @Router /auth/me [put]
func (s *AuthService) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, err := CurrentUser(r.Context())
	if err != nil {
		SendServiceError(w, err)
		return
	}

	var req UpdateProfileRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		log.Printf("[AUTH] Profile update validation failed for %s: %v", userID, err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	if req.Subjects == nil {
		req.Subjects = []string{}
	}

	var profile models.Profile
	err = s.db.QueryRowContext(r.Context(), `
		UPDATE profiles
		SET name = $2, bio = $3, avatar_url = $4, subjects = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, email, role, bio, avatar_url, subjects, wallet_balance, created_at, updated_at`,
		userID, req.Name, req.Bio, req.AvatarURL, pq.Array(req.Subjects)).
		Scan(&profile.ID, &profile.Name, &profile.Email, &profile.Role, &profile.Bio, &profile.AvatarURL,
			pq.Array(&profile.Subjects), &profile.WalletBalance, &profile.CreatedAt, &profile.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		SendServiceError(w, notFound("profile not found"))
		return
	}
	if err != nil {
		log.Printf("[AUTH] Failed to update profile %s: %v", userID, err)
		SendServiceError(w, storeError("failed to update profile", err))
		return
	}

	log.Printf("[AUTH] Profile %s updated", userID)
	SendJSON(w, http.StatusOK, profile)
}

func generateJWT(userID string, role models.Role) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computedHash) == 1
}
