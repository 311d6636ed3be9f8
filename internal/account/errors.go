package account

import "errors"

var (
	// ErrNotFound is returned when no account matches the identifier or contact.
	ErrNotFound = errors.New("account not found")

	// ErrDuplicateProfile indicates an account already uses the contact address.
	ErrDuplicateProfile = errors.New("profile already registered")

	// ErrIdentifierTaken is reported by repositories when a generated identifier collides.
	ErrIdentifierTaken = errors.New("account identifier already in use")

	// ErrIdentifierExhausted is returned once every identifier attempt collided.
	ErrIdentifierExhausted = errors.New("could not allocate a unique account identifier")

	// ErrConflict means the stored version moved since the caller read it; nothing was written.
	ErrConflict = errors.New("account version conflict")

	// ErrNegativeBalance rejects a delta that would take the balance below zero.
	ErrNegativeBalance = errors.New("balance cannot become negative")

	// ErrInvalidBalance rejects a negative initial balance.
	ErrInvalidBalance = errors.New("initial balance must not be negative")

	// ErrInvalidProfile rejects signup data missing a display name or a usable contact address.
	ErrInvalidProfile = errors.New("invalid profile")
)
