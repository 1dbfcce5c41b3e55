package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/rudra1in/facultyapp-sub000/internal/logger"
	"github.com/rudra1in/facultyapp-sub000/internal/models"
)

const tokenTTL = 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid token")
	// Set through InitJWTKey once configuration is loaded.
	jwtKey []byte
	log    = logger.New("auth")
)

// InitJWTKey sets the secret shared with the session service that issues
// portal tokens
func InitJWTKey(key []byte) {
	jwtKey = key
}

// JWTClaims represents the claims in the JWT
type JWTClaims struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Viewer returns the caller identity carried by the claims
func (c *JWTClaims) Viewer() (models.Viewer, error) {
	if c == nil {
		return models.Viewer{}, errors.New("claims cannot be nil")
	}
	if strings.TrimSpace(c.UserID) == "" {
		return models.Viewer{}, errors.New("token has no user id")
	}
	if !c.Role.Valid() {
		return models.Viewer{}, fmt.Errorf("token has unknown role %q", c.Role)
	}
	return models.Viewer{ID: c.UserID, Role: c.Role}, nil
}

// GenerateToken signs a token for viewer. Portal tokens are normally issued
// by the session service; this is used by tests and local tooling.
func GenerateToken(viewer models.Viewer) (string, time.Time, error) {
	if viewer.ID == "" {
		return "", time.Time{}, errors.New("user ID cannot be empty")
	}
	if !viewer.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("unknown role %q", viewer.Role)
	}

	now := time.Now()
	expirationTime := now.Add(tokenTTL)

	claims := &JWTClaims{
		UserID: viewer.ID,
		Role:   viewer.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expirationTime, nil
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*JWTClaims, error) {
	if tokenString == "" {
		log.Warn("Validating empty token")
		return nil, ErrInvalidToken
	}

	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtKey, nil
	})
	if err != nil {
		log.Debug("Token validation error: %v", err)
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	log.Debug("Token validated for user: %s", claims.UserID)
	return claims, nil
}
