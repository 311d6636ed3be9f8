package twofactor

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"strings"

	"github.com/pquerna/otp/totp"
)

const (
	defaultIssuer = "FastPay"
	secretSize    = 20
	qrSize        = 200
)

// ErrAccountNameRequired is returned when enrolling without an account label.
var ErrAccountNameRequired = errors.New("account name is required for enrollment")

// Enrollment holds what a user needs to register an authenticator app.
type Enrollment struct {
	Secret     string
	OTPAuthURL string
	QRCode     string
}

// Enroller creates fresh TOTP secrets.
type Enroller struct {
	issuer string
}

// NewEnroller builds an enroller labelling keys with issuer. An empty issuer selects "FastPay".
func NewEnroller(issuer string) *Enroller {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &Enroller{issuer: issuer}
}

// Enroll generates a 20 byte secret, its otpauth:// URL and a QR code PNG encoded as a data URL.
func (e *Enroller) Enroll(accountName string) (Enrollment, error) {
	accountName = strings.TrimSpace(accountName)
	if accountName == "" {
		return Enrollment{}, ErrAccountNameRequired
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: accountName,
		SecretSize:  secretSize,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("generate totp key: %w", err)
	}

	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return Enrollment{}, fmt.Errorf("render qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Enrollment{}, fmt.Errorf("encode qr code: %w", err)
	}

	return Enrollment{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
		QRCode:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}
