package transport

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Handshake frames, exchanged before any protocol message.
type (
	// AuthChallenge is the first frame the server sends.
	AuthChallenge struct {
		Event     string `json:"event"`
		Challenge string `json:"challenge"`
	}

	// AuthResponse names the connecting peer and signs the challenge.
	AuthResponse struct {
		Method    string `json:"method"`
		Peer      string `json:"peer"`
		Signature string `json:"signature"`
	}

	// AuthResult ends the handshake.
	AuthResult struct {
		Event   string `json:"event"`
		Success bool   `json:"success,omitempty"`
		Message string `json:"message,omitempty"`
	}
)

const (
	eventChallenge = "auth.challenge"
	methodResponse = "auth.response"
	eventSuccess   = "auth.success"
	eventFailure   = "auth.failure"
)

// Authenticator signs and verifies HMAC-SHA256 challenges with a shared secret.
type Authenticator struct {
	sharedSecret string
}

// NewAuthenticator creates an authenticator for sharedSecret
func NewAuthenticator(sharedSecret string) *Authenticator {
	return &Authenticator{sharedSecret: sharedSecret}
}

// GenerateChallenge returns 32 random bytes, hex encoded
func (a *Authenticator) GenerateChallenge() (string, error) {
	challenge := make([]byte, 32)
	if _, err := rand.Read(challenge); err != nil {
		return "", fmt.Errorf("failed to generate challenge: %w", err)
	}
	return hex.EncodeToString(challenge), nil
}

// Sign returns the hex HMAC of challenge
func (a *Authenticator) Sign(challenge string) string {
	h := hmac.New(sha256.New, []byte(a.sharedSecret))
	h.Write([]byte(challenge))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify checks signature in constant time
func (a *Authenticator) Verify(challenge, signature string) bool {
	expected := a.Sign(challenge)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
