package qrtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// Verification errors. The error text is part of the API contract:
// scan responses surface it verbatim in the "err" field.
var (
	// ErrSignature means the token decoded cleanly but its signature
	// does not match, i.e. it was forged or tampered with.
	ErrSignature = errors.New("sig")

	// ErrMalformed means the token could not be decoded at all.
	ErrMalformed = errors.New("malformed")
)

// Payload is the signed content of a ticket QR token.
type Payload struct {
	TicketID string
	EventID  string
	IssuedAt int64 // unix milliseconds
}

// signedFields is the canonical JSON form covered by the signature.
// Field order is fixed; changing it invalidates every issued token.
type signedFields struct {
	Tid string `json:"tid"`
	Eid string `json:"eid"`
	Iat int64  `json:"iat"`
}

type wireToken struct {
	Tid string `json:"tid"`
	Eid string `json:"eid"`
	Iat int64  `json:"iat"`
	Sig string `json:"sig"`
}

// Codec signs and verifies ticket QR tokens. Tokens are
// base64url(json{tid, eid, iat, sig}) where sig is the first 16 hex
// chars of HMAC-SHA256 over the canonical payload JSON. Verification
// needs no database lookup; revocation checks live in the gate
// validator, not here.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Sign serializes the payload, signs it and wraps everything into a
// URL-safe token suitable for embedding in a QR code.
func (c *Codec) Sign(p Payload) (string, error) {
	sig, err := c.signature(p)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(wireToken{
		Tid: p.TicketID,
		Eid: p.EventID,
		Iat: p.IssuedAt,
		Sig: sig,
	})
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Verify decodes a token and checks its signature in constant time.
// It returns ErrMalformed for undecodable input and ErrSignature for
// tokens whose signature does not match. It never panics.
func (c *Codec) Verify(token string) (Payload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Payload{}, ErrMalformed
	}

	var wire wireToken
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Payload{}, ErrMalformed
	}
	if wire.Sig == "" {
		return Payload{}, ErrMalformed
	}

	p := Payload{TicketID: wire.Tid, EventID: wire.Eid, IssuedAt: wire.Iat}

	expected, err := c.signature(p)
	if err != nil {
		return Payload{}, ErrMalformed
	}
	if !hmac.Equal([]byte(wire.Sig), []byte(expected)) {
		return Payload{}, ErrSignature
	}

	return p, nil
}

func (c *Codec) signature(p Payload) (string, error) {
	canonical, err := json.Marshal(signedFields{Tid: p.TicketID, Eid: p.EventID, Iat: p.IssuedAt})
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, c.secret)
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil))[:16], nil
}
