package security

import (
	"crypto/rand"
	"encoding/base64"
)

// sessionTokenBytes is the entropy of a session token. 32 bytes encodes to a
// 43-character base64url string.
const sessionTokenBytes = 32

// NewSessionToken returns a cryptographically unguessable opaque session token.
// The token is stored verbatim in user_sessions.session_token and handed to the
// client; it carries no embedded claims.
func NewSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
