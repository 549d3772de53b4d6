package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

type contextKey string

const userIDKey contextKey = "userID"

var blacklist *redis.Client

// InitAuthMiddleware wires the Redis client used for revoked tokens. A nil client
// disables the revocation check.
func InitAuthMiddleware(redisClient *redis.Client) {
	blacklist = redisClient
}

func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeUnauthorized(w, "Authorization header required")
			return
		}

		// Extract token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeUnauthorized(w, "Invalid authorization header format")
			return
		}

		token := parts[1]

		if isRevoked(r.Context(), token) {
			writeUnauthorized(w, "Token has been revoked")
			return
		}

		userID, err := validateToken(token)
		if err != nil {
			writeUnauthorized(w, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// WithUserID returns a context carrying the authenticated caller.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated caller, or "" when there is none.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// BlacklistKey is the Redis key marking a logged-out token.
func BlacklistKey(token string) string {
	return fmt.Sprintf("blacklist:%s", token)
}

func isRevoked(ctx context.Context, token string) bool {
	if blacklist == nil {
		return false
	}
	n, err := blacklist.Exists(ctx, BlacklistKey(token)).Result()
	if err != nil {
		log.Printf("[AUTH] Blacklist lookup failed, allowing token: %v", err)
		return false
	}
	return n > 0
}

func validateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(viper.GetString("jwt.secret_key")), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected claims type")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", errors.New("token missing user_id")
	}
	return userID, nil
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":%q,"kind":"Unauthenticated","retryable":false}`, message)
}
