package service

import "errors"

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username already exists")
	ErrInvalidInput         = errors.New("username and password are required")
	ErrInternalServer       = errors.New("internal server error")
)
