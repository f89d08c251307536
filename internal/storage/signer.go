package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrBadSignature = errors.New("invalid or expired asset signature")

const assetAudience = "assets"

// URLSigner issues short-lived HS256 tokens that bind a link to one blob key,
// so media can be fetched by clients that cannot send an Authorization header.
type URLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewURLSigner(secret string, ttl time.Duration) *URLSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &URLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *URLSigner) Sign(key string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   key,
		Audience:  jwt.ClaimStrings{assetAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks that token was issued for key and has not expired.
func (s *URLSigner) Verify(key, token string) error {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(assetAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if claims.Subject != key {
		return fmt.Errorf("%w: token is for another asset", ErrBadSignature)
	}
	return nil
}
