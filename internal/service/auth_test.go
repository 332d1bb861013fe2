package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"weibosim/internal/model"
)

func TestAuthService_IssueToken(t *testing.T) {
	svc := NewAuthService("test-secret", time.Hour)

	tok, err := svc.IssueToken(" presenter ")

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if tok.Subject != "presenter" || tok.ExpiresIn != 3600 {
		t.Errorf("token = %+v, want subject presenter valid for 3600s", tok)
	}

	parsed, err := jwt.Parse(tok.AccessToken, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub != "presenter" {
		t.Errorf("sub = %q err=%v, want presenter", sub, err)
	}
}

func TestAuthService_IssueToken_Errors(t *testing.T) {
	if _, err := NewAuthService("", time.Hour).IssueToken("presenter"); !errors.Is(err, model.ErrAuthDisabled) {
		t.Errorf("error = %v, want ErrAuthDisabled", err)
	}
	if _, err := NewAuthService("secret", time.Hour).IssueToken("  "); !errors.Is(err, model.ErrSubjectRequired) {
		t.Errorf("error = %v, want ErrSubjectRequired", err)
	}
}
