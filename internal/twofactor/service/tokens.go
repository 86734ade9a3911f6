package service

import (
	"fmt"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/aussiebroadwan/twofactor/pkg/jwtx"
)

// DefaultAssertionAudience is the aud of second-factor assertions unless
// configured otherwise. It differs from the session audience so an
// assertion can never be replayed as a bearer token here.
const DefaultAssertionAudience = "twofactor-assertion"

// TokenService mints the two kinds of token this service signs: bearer
// tokens for the local password login, and second-factor assertions.
type TokenService struct {
	Signer            *jwtx.Signer
	Issuer            string
	AssertionAudience []string
	SessionTTL        time.Duration
	AssertionTTL      time.Duration
	Now               func() time.Time
}

// SessionAudience is the aud of locally issued bearer tokens. The bearer
// verifier must accept it.
func (s *TokenService) SessionAudience() []string {
	return []string{s.Issuer}
}

// IssueSession returns a bearer token for u after a password login.
func (s *TokenService) IssueSession(u domain.User) (string, time.Duration, error) {
	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}

	claims := jwtx.NewClaims(u.ID, s.Issuer, s.SessionAudience(), []string{jwtx.AMRPassword}, ttl, nowFunc(s.Now))
	claims.Email = u.Email

	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", 0, fmt.Errorf("sign session: %w", err)
	}
	return token, ttl, nil
}

// IssueAssertion returns a short-lived token proving userID passed the
// second factor with method.
func (s *TokenService) IssueAssertion(userID string, method domain.AttemptMethod) (string, time.Duration, error) {
	ttl := s.AssertionTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAssertionTTL
	}
	aud := s.AssertionAudience
	if len(aud) == 0 {
		aud = []string{DefaultAssertionAudience}
	}

	claims := jwtx.NewClaims(userID, s.Issuer, aud, []string{jwtx.AMROTP}, ttl, nowFunc(s.Now))
	claims.SecondFactor = string(method)

	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", 0, fmt.Errorf("sign assertion: %w", err)
	}
	return token, ttl, nil
}
