package identity

import "errors"

var (
	// ErrAuthenticationFailed covers unknown contacts and wrong passwords alike.
	ErrAuthenticationFailed = errors.New("invalid credentials")

	// ErrTwoFactorInvalid is returned when 2FA is enabled and the token does not verify.
	ErrTwoFactorInvalid = errors.New("invalid two-factor token")

	// ErrWeakPassword rejects passwords shorter than eight characters.
	ErrWeakPassword = errors.New("password must be at least 8 characters")

	// ErrCredentialNotFound means no credential is stored for the account or contact.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrCredentialExists means the account or contact already has a credential.
	ErrCredentialExists = errors.New("credential already exists")
)
