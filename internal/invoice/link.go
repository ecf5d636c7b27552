package invoice

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const linkAudience = "invoice-pdf"

var ErrInvalidLink = errors.New("invalid or expired invoice link")

// LinkSigner issues tokens that let a client download one invoice PDF without a staff session
type LinkSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewLinkSigner creates a signer; links expire after ttl
func NewLinkSigner(secret string, ttl time.Duration) *LinkSigner {
	return &LinkSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Sign returns a token bound to one invoice number
func (s *LinkSigner) Sign(number string) (string, error) {
	if !ValidNumber(number) {
		return "", ErrInvalidNumber
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   number,
		Audience:  jwt.ClaimStrings{linkAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign invoice link: %w", err)
	}
	return signed, nil
}

// Verify checks that token is live and was issued for number
func (s *LinkSigner) Verify(number, token string) error {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidLink
	}

	if claims.Subject != number || claims.ExpiresAt == nil {
		return ErrInvalidLink
	}
	for _, aud := range claims.Audience {
		if aud == linkAudience {
			return nil
		}
	}
	return ErrInvalidLink
}
