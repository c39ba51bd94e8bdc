package domain

import (
	"fmt"
	"time"
)

// Identity is the caller as decoded from a bearer token. The zero value is
// the anonymous caller.
type Identity struct {
	Username  string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Anonymous is the identity of a caller without a valid token.
var Anonymous = Identity{}

func (i Identity) IsAnonymous() bool { return i.Username == "" }

// DecodeErrorKind classifies why a token was rejected.
type DecodeErrorKind int

const (
	TokenMalformed DecodeErrorKind = iota + 1
	TokenBadSignature
	TokenExpired
)

func (k DecodeErrorKind) String() string {
	switch k {
	case TokenMalformed:
		return "malformed"
	case TokenBadSignature:
		return "bad_signature"
	case TokenExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// DecodeError is returned by the token codec for every rejected token.
type DecodeError struct {
	Kind DecodeErrorKind
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "token " + e.Kind.String()
	}
	return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
