package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"weibosim/internal/model"
)

// AuthService mints bearer tokens for presenters calling the HTTP API.
// There are no accounts: the subject only names the caller in logs.
type AuthService struct {
	secret string
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(secret string, ttl time.Duration) *AuthService {
	return &AuthService{secret: secret, ttl: ttl, now: defaultNow}
}

// IssueToken signs an HS256 token for subject.
func (s *AuthService) IssueToken(subject string) (*model.AccessToken, error) {
	if s.secret == "" {
		return nil, model.ErrAuthDisabled
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, model.ErrSubjectRequired
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": now.Add(s.ttl).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &model.AccessToken{
		AccessToken: signed,
		Subject:     subject,
		ExpiresIn:   int64(s.ttl.Seconds()),
	}, nil
}
