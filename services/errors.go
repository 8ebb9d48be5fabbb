package services

import "errors"

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("discord id already registered")

	// ErrSeedNotFound means the seed source has nothing to read. It is a normal first-run state.
	ErrSeedNotFound  = errors.New("seed source not found")
	ErrMalformedSeed = errors.New("malformed seed content")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMemberInactive     = errors.New("member account is inactive")
	ErrMemberNotFound     = errors.New("member not found")
	ErrDuplicateMember    = errors.New("member id already registered")
)

// ErrInvalidInput wraps request validation failures; handlers map it to 400.
var ErrInvalidInput = errors.New("invalid input")
