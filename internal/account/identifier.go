package account

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

const (
	defaultDomain   = "fastpay"
	identifierBytes = 4
)

// IdentifierGenerator produces candidate account identifiers of the form <hex>@<domain>.
// Uniqueness is checked by the caller.
type IdentifierGenerator struct {
	domain string
	random io.Reader
}

// NewIdentifierGenerator builds a generator reading from crypto/rand.
func NewIdentifierGenerator(domain string) *IdentifierGenerator {
	domain = strings.TrimPrefix(strings.TrimSpace(domain), "@")
	if domain == "" {
		domain = defaultDomain
	}
	return &IdentifierGenerator{domain: domain, random: rand.Reader}
}

// Generate returns a fresh candidate identifier.
func (g *IdentifierGenerator) Generate() (string, error) {
	buf := make([]byte, identifierBytes)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("read random identifier: %w", err)
	}
	return hex.EncodeToString(buf) + "@" + g.domain, nil
}
