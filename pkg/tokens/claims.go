package tokens

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ErrInvalidToken is returned for every parse failure: bad signature, expiry,
// malformed input or a token of the wrong kind.
var ErrInvalidToken = errors.New("invalid token")

type AccessClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}
