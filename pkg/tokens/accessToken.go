package tokens

import (
	"time"
)

func AccessClaimsFromToken(TokenStr string, AccessSecret []byte) (*AccessClaims, error) {
	return parseAccess(TokenStr, AccessSecret, time.Now)
}

func parseAccess(tokenStr string, secret []byte, now func() time.Time) (*AccessClaims, error) {
	var claims AccessClaims
	if err := parse(tokenStr, &claims, secret, now); err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
