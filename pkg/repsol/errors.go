package repsol

import "errors"

var (
	// ErrAuthentication means the login was rejected or didn't return a
	// complete session.
	ErrAuthentication = errors.New("authentication failed")

	// ErrConnectivity means a request failed, timed out or returned a
	// non-200 status.
	ErrConnectivity = errors.New("connectivity error")

	// ErrConfiguration means the configured contract isn't on the account.
	ErrConfiguration = errors.New("configuration error")
)
