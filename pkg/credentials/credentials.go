package credentials

import (
	"errors"
	"net/http"
	"strings"
)

// Supported header names, in preference order
const (
	HeaderAPIKey        = "x-api-key"
	HeaderAuthorization = "Authorization"
)

// ErrNoCredential is returned when neither header credential is available
var ErrNoCredential = errors.New("no credentials configured: set an x-api-key or Authorization header credential")

// Authenticator decorates outbound requests with credentials
type Authenticator interface {
	Authenticate(req *http.Request) error
}

// Credential is a single header/value pair
type Credential struct {
	Header string
	Value  string
}

// Static builds a credential with a canonical header name
func Static(header, value string) Credential {
	return Credential{Header: CanonicalHeader(header), Value: strings.TrimSpace(value)}
}

// Empty reports whether there is nothing to send
func (c Credential) Empty() bool {
	return c.Header == "" || c.Value == ""
}

// Authenticate sets the header on req
func (c Credential) Authenticate(req *http.Request) error {
	if c.Empty() {
		return ErrNoCredential
	}
	req.Header.Set(c.Header, c.Value)
	return nil
}

// String masks the value so credentials can be logged
func (c Credential) String() string {
	if c.Empty() {
		return "<none>"
	}
	return c.Header + ": " + Mask(c.Value)
}

// Resolve picks the credential to use: an x-api-key credential wins over an
// Authorization one, and within a header the first non-empty candidate wins.
func Resolve(candidates ...Credential) (Credential, error) {
	for _, header := range []string{HeaderAPIKey, HeaderAuthorization} {
		for _, c := range candidates {
			if !c.Empty() && CanonicalHeader(c.Header) == header {
				return Credential{Header: header, Value: c.Value}, nil
			}
		}
	}
	return Credential{}, ErrNoCredential
}

// FromHeaders extracts any supported credentials from an inbound request
func FromHeaders(h http.Header) []Credential {
	var out []Credential
	for _, header := range []string{HeaderAPIKey, HeaderAuthorization} {
		if v := h.Get(header); v != "" {
			out = append(out, Static(header, v))
		}
	}
	return out
}

// CanonicalHeader normalises the two supported header names; anything else
// is returned unchanged.
func CanonicalHeader(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case strings.ToLower(HeaderAPIKey):
		return HeaderAPIKey
	case strings.ToLower(HeaderAuthorization):
		return HeaderAuthorization
	}
	return name
}

func SupportedHeader(name string) bool {
	c := CanonicalHeader(name)
	return c == HeaderAPIKey || c == HeaderAuthorization
}

// Mask keeps the last four characters of a secret
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
