package identity

import "time"

// Credential holds the login secrets attached to an account.
type Credential struct {
	AccountID       string
	Contact         string
	PasswordHash    []byte
	TwoFactorSecret string
	CreatedAt       time.Time
}

// SignupInput is the data collected when a user opens an account.
type SignupInput struct {
	DisplayName string
	Contact     string
	Password    string
}

// LoginInput carries the password and, when enabled, the current TOTP code.
type LoginInput struct {
	Contact        string
	Password       string
	TwoFactorToken string
}
