// Package gate verifies the caller-supplied access password before any
// remote interaction is attempted.
package gate

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	MissingCredential   = fmt.Errorf("no credential provided")
	InvalidCredential   = fmt.Errorf("credential is incorrect")
	ServerMisconfigured = fmt.Errorf("no credential hash configured on the server")
)

// Gate compares secrets against one configured bcrypt hash. There is
// no lockout or backoff on repeated failures; that gap is accepted and
// documented rather than handled here.
type Gate struct {
	hash []byte
}

// New takes the bcrypt hash of the shared access password. An empty
// hash produces a gate that fails closed with ServerMisconfigured.
func New(bcryptHash string) Gate {
	return Gate{hash: []byte(bcryptHash)}
}

func (g Gate) Verify(secret string) error {
	if len(g.hash) == 0 {
		return ServerMisconfigured
	}
	if secret == "" {
		return MissingCredential
	}
	err := bcrypt.CompareHashAndPassword(g.hash, []byte(secret))
	if err != nil {
		return InvalidCredential
	}
	return nil
}
