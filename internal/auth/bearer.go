package auth

import "crypto/subtle"

// BearerVerifier checks a static shared token.
type BearerVerifier struct {
	Expected string
}

func (v BearerVerifier) Verify(token string) error {
	if token == "" || v.Expected == "" {
		return ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(v.Expected)) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}
