// Package auth provides the optional password gate for the ADEI Explorer.
// This file contains the password hasher molecule.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost factor for password hashing.
// Cost 12 takes around 250ms on modern hardware, slow enough to blunt
// offline guessing while keeping interactive login responsive.
const DefaultCost = 12

// Error definitions for password operations
var (
	// ErrEmptyPassword is returned when attempting to hash or verify an empty password.
	ErrEmptyPassword = errors.New("password cannot be empty")

	// ErrPasswordMismatch is returned when password verification fails.
	// This error intentionally does not reveal whether the hash was valid.
	ErrPasswordMismatch = errors.New("password does not match")

	// ErrInvalidHash is returned when the hash format is invalid.
	ErrInvalidHash = errors.New("invalid password hash format")
)

// HashPassword creates a bcrypt hash of the given password.
// The hash embeds a random salt and the cost factor. The gate password
// comes from configuration at startup and the hash lives only in memory,
// so there is no stored-hash upgrade path to worry about.
//
// Returns ErrEmptyPassword if password is empty.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyPassword compares a plaintext password with a bcrypt hash using
// bcrypt's constant-time comparison.
//
// Returns nil if the password matches, ErrPasswordMismatch if not.
// Internal bcrypt errors are normalized to ErrPasswordMismatch so a
// malformed hash is indistinguishable from a wrong password.
func VerifyPassword(password, hash string) error {
	if password == "" {
		return ErrEmptyPassword
	}

	if hash == "" {
		return ErrInvalidHash
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrPasswordMismatch
	}

	return nil
}
