package model

import "errors"

// Auth error codes returned in the error body.
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
)

// AccessToken is a signed bearer token for the HTTP API.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	Subject     string `json:"subject"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

// Auth errors
var (
	ErrAuthDisabled    = errors.New("JWT_SECRET is not set")
	ErrSubjectRequired = errors.New("token subject is required")
)
