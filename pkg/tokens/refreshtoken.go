package tokens

import (
	"time"
)

func RefreshClaimsFromToken(TokenStr string, RefreshSecret []byte) (*RefreshClaims, error) {
	return parseRefresh(TokenStr, RefreshSecret, time.Now)
}

func parseRefresh(tokenStr string, secret []byte, now func() time.Time) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := parse(tokenStr, &claims, secret, now); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
