package txsource

import (
	"encoding/json"

	"StockSense/pkg/util"
)

// BearerToken is a pre-issued upstream access token.
type BearerToken struct {
	token string
}

// NewBearerToken wraps token. An empty token yields a credential that upstream will reject.
func NewBearerToken(token string) BearerToken { return BearerToken{token: token} }

func (BearerToken) Kind() string { return "bearer" }

func (b BearerToken) String() string   { return "bearer(" + util.Mask(b.token) + ")" }
func (b BearerToken) GoString() string { return b.String() }

func (b BearerToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"kind": b.Kind()})
}

// PasswordLogin is exchanged for a bearer token at the upstream login endpoint.
type PasswordLogin struct {
	username string
	password string
}

func NewPasswordLogin(username, password string) PasswordLogin {
	return PasswordLogin{username: username, password: password}
}

func (PasswordLogin) Kind() string { return "password" }

// Username is not secret and may appear in diagnostics.
func (p PasswordLogin) Username() string { return p.username }

func (p PasswordLogin) String() string {
	return "password(" + p.username + ", " + util.Mask(p.password) + ")"
}
func (p PasswordLogin) GoString() string { return p.String() }

func (p PasswordLogin) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"kind": p.Kind(), "username": p.username})
}
