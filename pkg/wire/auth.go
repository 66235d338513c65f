package wire

import (
	"crypto/subtle"
	"strings"
)

const AuthorizationHeader = "Authorization"

const bearerPrefix = "Bearer "

func Bearer(token string) string { return bearerPrefix + token }

// Authorized reports whether an Authorization header value carries token. An empty token accepts
// every request.
func Authorized(header, token string) bool {
	if token == "" {
		return true
	}
	got, ok := strings.CutPrefix(strings.TrimSpace(header), bearerPrefix)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(token)) == 1
}
