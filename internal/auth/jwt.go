package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrRoomNotAllowed is returned when a token is bound to a different room.
var ErrRoomNotAllowed = errors.New("token not valid for room")

// Claims are the connect-token claims. Subject carries the client id; Room,
// when set, pins the token to a single room.
type Claims struct {
	Room string `json:"room,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// GenerateToken creates a connect token for clientID, optionally pinned to roomID.
func GenerateToken(cfg *JWTConfig, clientID, roomID string) (string, error) {
	now := time.Now()
	claims := Claims{
		Room: roomID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateToken parses and validates a connect token.
func ValidateToken(cfg *JWTConfig, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("invalid issuer")
	}
	if cfg.Audience != "" && !slices.Contains(claims.Audience, cfg.Audience) {
		return nil, fmt.Errorf("invalid audience")
	}

	return claims, nil
}

// Identity resolves the client and room a validated token may connect as.
// requestedRoom is used when the token is not pinned to a room.
func (c *Claims) Identity(requestedRoom string) (clientID, roomID string, err error) {
	roomID = requestedRoom
	if c.Room != "" {
		if requestedRoom != "" && requestedRoom != c.Room {
			return "", "", ErrRoomNotAllowed
		}
		roomID = c.Room
	}
	return c.Subject, roomID, nil
}
