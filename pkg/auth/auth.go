// Package auth implements the PLAIN-style credentials authenticator used
// during the session's Authenticating phase (spec 4.1).
package auth

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/wire"
)

// Credential is one user/pass entry of the credentials file.
type Credential struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

// Authenticator validates AUTH_RESPONSE credentials against a JSON
// credentials file, reloaded on every call so rotating the file never
// requires a restart.
type Authenticator struct {
	path string
}

func New(path string) *Authenticator {
	return &Authenticator{path: path}
}

// Validate reports whether user/pass match an entry in the credentials
// file.
func (a *Authenticator) Validate(user, pass string) (bool, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return false, errs.Server(err, "reading credentials file")
	}
	var creds []Credential
	if err := json.Unmarshal(data, &creds); err != nil {
		return false, errs.Server(err, "decoding credentials file")
	}
	for _, c := range creds {
		if c.User == user && c.Pass == pass {
			return true, nil
		}
	}
	return false, nil
}

// DecodePlainResponse reads the AUTH_RESPONSE frame body as the
// length-prefixed long-string spec 4.1 specifies, containing "user:pass",
// and splits it into (user, pass).
func DecodePlainResponse(body []byte) (user, pass string, err error) {
	text, err := wire.NewReader(body).ReadLongString()
	if err != nil {
		return "", "", errs.Authentication("malformed credentials: %v", err)
	}
	user, pass, ok := strings.Cut(text, ":")
	if !ok {
		return "", "", errs.Authentication("malformed credentials: expected user:pass")
	}
	return user, pass, nil
}
