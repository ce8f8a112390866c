// Package envelope implements the message envelope of §3/§4.4: every
// message that crosses a service boundary is wrapped in a Msg carrying its
// author, a content hash of the payload, and a signature over that hash.
package envelope

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"

	"vnix/kernel/kernerr"
	"vnix/kernel/unit"
	"vnix/kernel/user"
)

// Msg is the immutable envelope. Any transformation of a Msg produces a
// fresh value; there is no in-place mutation.
type Msg struct {
	Author    string
	Payload   unit.Unit
	Hash      string
	Signature string
}

// digest returns the base64-encoded SHA-256 digest of payload's canonical
// text rendering — the hash the signature is computed over.
func digest(payload unit.Unit) (sum [32]byte, b64 string) {
	text := payload.String()
	sum = sha256.Sum256([]byte(text))
	return sum, base64.StdEncoding.EncodeToString(sum[:])
}

// Make renders payload to canonical text, digests it, and signs the digest
// with author's private key. It fails if author is not registered.
func Make(reg *user.Registry, author string, priv ed25519.PrivateKey, payload unit.Unit) (Msg, error) {
	if _, err := reg.Lookup(author); err != nil {
		return Msg{}, err
	}
	sum, b64 := digest(payload)
	sig := ed25519.Sign(priv, sum[:])
	return Msg{
		Author:    author,
		Payload:   payload,
		Hash:      b64,
		Signature: base64.StdEncoding.EncodeToString(sig),
	}, nil
}

// Verify re-renders and re-digests m.Payload, compares against m.Hash, then
// checks m.Signature against the author's registered public key.
func Verify(reg *user.Registry, m Msg) error {
	sum, b64 := digest(m.Payload)
	if b64 != m.Hash {
		return kernerr.HashMismatch("payload hash does not match envelope")
	}

	u, err := reg.Lookup(m.Author)
	if err != nil {
		return err
	}

	sig, err := base64.StdEncoding.DecodeString(m.Signature)
	if err != nil {
		return kernerr.SignatureMismatch("malformed signature encoding")
	}
	if !ed25519.Verify(u.PubKey, sum[:], sig) {
		return kernerr.SignatureMismatch("signature does not verify")
	}
	return nil
}

// WithPayload returns a fresh Msg for a reply: envelopes are never mutated.
func WithPayload(reg *user.Registry, author string, priv ed25519.PrivateKey, payload unit.Unit) (Msg, error) {
	return Make(reg, author, priv, payload)
}
