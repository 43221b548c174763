// Package session resolves the agent's identity from its session token. A
// sync run needs to know whose queue to fetch and which relationship the
// device participates in; all of that is carried in the token claims.
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/keepsake-app/keepsake/internal/common"
)

// Claims carries the device identity alongside the standard claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID         string `json:"userId"`
	PartnerID      string `json:"partnerId"`
	RelationshipID string `json:"relationshipId"`
}

// Session is the resolved identity of the device owner.
type Session struct {
	UserID         string
	PartnerID      string
	RelationshipID string
}

// GenerateToken issues a signed session token. Used by provisioning and in
// tests.
func GenerateToken(s Session, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID:         s.UserID,
		PartnerID:      s.PartnerID,
		RelationshipID: s.RelationshipID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Parse validates the token signature and expiry and returns the session.
func Parse(tokenString string, secretKey []byte) (*Session, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return &Session{
		UserID:         claims.UserID,
		PartnerID:      claims.PartnerID,
		RelationshipID: claims.RelationshipID,
	}, nil
}
