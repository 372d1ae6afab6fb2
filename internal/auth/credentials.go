package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/parking/pkg/parking"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenLifetime  = 24 * time.Hour
	refreshTokenLifetime = 7 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	errorOperationAuth = "auth"
	errorSubjectToken  = "token"
	errorCodeSign      = "sign"
	errorCodeRevoke    = "revoke"
	errorCodeLookup    = "lookup"
)

// RevocationStore persists revoked token identifiers past process restarts.
type RevocationStore interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	TokenRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenPair carries a freshly signed access and refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type sessionClaims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Credentials signs and validates client session tokens. Tokens are
// HS256 with a per-token uuid JTI so logout can revoke them one by one.
type Credentials struct {
	signingKey []byte
	revocation RevocationStore
	nowFn      func() time.Time
}

// NewCredentials wires a credential service over a signing key and a
// revocation store.
func NewCredentials(signingKey string, revocation RevocationStore, now func() time.Time) (*Credentials, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("%w: signing key is empty", parking.ErrInvalidServiceConfig)
	}
	if revocation == nil {
		return nil, fmt.Errorf("%w: revocation store is nil", parking.ErrInvalidServiceConfig)
	}
	if now == nil {
		now = time.Now
	}
	return &Credentials{signingKey: []byte(signingKey), revocation: revocation, nowFn: now}, nil
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: password is empty", parking.ErrInvalidField)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword compares a plaintext password against a bcrypt hash.
func VerifyPassword(hash string, plaintext string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)); err != nil {
		return parking.ErrBadCredentials
	}
	return nil
}

// IssuePair signs a fresh access and refresh token for the client.
func (credentials *Credentials) IssuePair(clientID parking.ClientID) (TokenPair, error) {
	access, err := credentials.sign(clientID, tokenTypeAccess, accessTokenLifetime)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := credentials.sign(clientID, tokenTypeRefresh, refreshTokenLifetime)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (credentials *Credentials) sign(clientID parking.ClientID, tokenType string, lifetime time.Duration) (string, error) {
	now := credentials.nowFn().UTC()
	claims := sessionClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(credentials.signingKey)
	if err != nil {
		return "", parking.WrapError(errorOperationAuth, errorSubjectToken, errorCodeSign, err)
	}
	return signed, nil
}

// Validate parses the token and returns the client it belongs to. A
// refresh token never passes as an access token and vice versa.
func (credentials *Credentials) Validate(ctx context.Context, token string, wantRefresh bool) (parking.ClientID, error) {
	claims, err := credentials.parse(token)
	if err != nil {
		return parking.ClientID{}, err
	}
	wantType := tokenTypeAccess
	if wantRefresh {
		wantType = tokenTypeRefresh
	}
	if claims.TokenType != wantType {
		return parking.ClientID{}, fmt.Errorf("%w: token type %q", parking.ErrTokenInvalid, claims.TokenType)
	}
	revoked, err := credentials.revocation.TokenRevoked(ctx, claims.ID)
	if err != nil {
		return parking.ClientID{}, parking.WrapError(errorOperationAuth, errorSubjectToken, errorCodeLookup, err)
	}
	if revoked {
		return parking.ClientID{}, parking.ErrTokenRevoked
	}
	clientID, err := parking.NewClientID(claims.Subject)
	if err != nil {
		return parking.ClientID{}, fmt.Errorf("%w: bad subject", parking.ErrTokenInvalid)
	}
	return clientID, nil
}

// Revoke blacklists the token's JTI until the token would have expired
// on its own.
func (credentials *Credentials) Revoke(ctx context.Context, token string) error {
	claims, err := credentials.parse(token)
	if err != nil {
		return err
	}
	expiresAt := credentials.nowFn().UTC()
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := credentials.revocation.RevokeToken(ctx, claims.ID, expiresAt); err != nil {
		return parking.WrapError(errorOperationAuth, errorSubjectToken, errorCodeRevoke, err)
	}
	return nil
}

func (credentials *Credentials) parse(token string) (sessionClaims, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(parsed *jwt.Token) (interface{}, error) {
		if _, ok := parsed.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", parsed.Header["alg"])
		}
		return credentials.signingKey, nil
	}, jwt.WithTimeFunc(func() time.Time { return credentials.nowFn().UTC() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return sessionClaims{}, fmt.Errorf("%w: expired", parking.ErrTokenInvalid)
		}
		return sessionClaims{}, fmt.Errorf("%w: %v", parking.ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.ID == "" {
		return sessionClaims{}, parking.ErrTokenInvalid
	}
	return claims, nil
}
