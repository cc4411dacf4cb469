package registration

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

const passwordEntropyBytes = 48

// PasswordGenerator produces the placeholder credential handed to the
// identity service when an account is provisioned. The subject replaces it
// during confirmation, so it only has to be unguessable, not memorable.
type PasswordGenerator struct {
	rand io.Reader
}

// NewPasswordGenerator returns a generator reading entropy from crypto/rand.
func NewPasswordGenerator() *PasswordGenerator {
	return &PasswordGenerator{rand: rand.Reader}
}

// NewPasswordGeneratorFrom uses the given entropy source. Tests pass a
// deterministic reader.
func NewPasswordGeneratorFrom(r io.Reader) *PasswordGenerator {
	return &PasswordGenerator{rand: r}
}

// Generate returns a fresh URL-safe random password.
func (g *PasswordGenerator) Generate() (string, error) {
	buf := make([]byte, passwordEntropyBytes)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", fmt.Errorf("registration: generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
