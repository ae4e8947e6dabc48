package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const downloadAudience = "report-download"

// DownloadClaims identifies a stored file a bearer may fetch.
type DownloadClaims struct {
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	jwt.RegisteredClaims
}

// SignedURLSigner issues and verifies HS256 download tokens for stored files.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner constructs a signer with the given secret and token lifetime.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// TTL returns the lifetime of issued tokens.
func (s *SignedURLSigner) TTL() time.Duration {
	return s.ttl
}

// Generate returns a token granting access to relPath until it expires.
func (s *SignedURLSigner) Generate(id, relPath, contentType string) (string, time.Time, error) {
	if id == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("id and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := DownloadClaims{
		Path:        relPath,
		ContentType: contentType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Audience:  jwt.ClaimStrings{downloadAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign download token: %w", err)
	}
	return token, claims.ExpiresAt.Time, nil
}

// Parse verifies a token and returns its claims. With allowExpired the
// expiry check is skipped so cleanup can still read old tokens.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (*DownloadClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(downloadAudience),
	}
	claims := &DownloadClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if allowExpired && errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return claims, nil
		}
		return nil, fmt.Errorf("invalid download token: %w", err)
	}
	if claims.Path == "" {
		return nil, fmt.Errorf("invalid download token: missing path")
	}
	return claims, nil
}
