package service

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AlibekovAA/session-auth/backend/internal/common/clock"
	commoncrypto "github.com/AlibekovAA/session-auth/backend/internal/common/crypto"
	"github.com/AlibekovAA/session-auth/backend/internal/common/jwtverify"
	userdomain "github.com/AlibekovAA/session-auth/backend/internal/user/domain"
)

type TokenIssuer struct {
	jwtSecret      []byte
	idGenerator    commoncrypto.IDGenerator
	clock          clock.Clock
	accessTokenTTL time.Duration
}

type AccessToken struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

func NewTokenIssuer(
	jwtSecret string,
	idGenerator commoncrypto.IDGenerator,
	accessTokenTTL time.Duration,
	clock clock.Clock,
) *TokenIssuer {
	return &TokenIssuer{
		jwtSecret:      []byte(jwtSecret),
		idGenerator:    idGenerator,
		clock:          clock,
		accessTokenTTL: accessTokenTTL,
	}
}

// IssueAccessToken signs a token bound to the login session sessionID; it
// stops being accepted once that session ends.
func (ti *TokenIssuer) IssueAccessToken(user userdomain.User, sessionID string) (AccessToken, error) {
	jti, err := ti.idGenerator.NewID()
	if err != nil {
		return AccessToken{}, err
	}

	now := ti.clock.Now()
	expiresAt := now.Add(ti.accessTokenTTL)
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(user.ID, 10),
		"usr": user.Username,
		"jti": jti,
		"sid": sessionID,
		"exp": expiresAt.Unix(),
		"iat": now.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := t.SignedString(ti.jwtSecret)
	if err != nil {
		return AccessToken{}, err
	}

	incrementAccessTokensIssued()
	return AccessToken{Token: tokenString, TokenID: jti, ExpiresAt: expiresAt}, nil
}

func (ti *TokenIssuer) ParseToken(tokenString string) (jwtverify.Claims, error) {
	return jwtverify.ParseToken(tokenString, ti.jwtSecret)
}
