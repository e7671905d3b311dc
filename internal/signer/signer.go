package signer

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// Signer holds a terminal's ed25519 key and countersigns payment payloads.
// Lives in the terminal/relayer process, never in the gateway itself.
type Signer struct {
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

// NewSigner builds a signer from a 32-byte hex seed.
func NewSigner(seedHex string) (*Signer, error) {
	if seedHex == "" {
		return nil, fmt.Errorf("seed is required")
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("invalid seed: %v", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}

	key := ed25519.NewKeyFromSeed(seed)
	return &Signer{
		key: key,
		pub: key.Public().(ed25519.PublicKey),
	}, nil
}

// SignPayment signs the canonical digest and returns the signature as hex.
func (s *Signer) SignPayment(p *Payment) (string, error) {
	if p == nil {
		return "", fmt.Errorf("payment is required")
	}
	digest := DigestPayment(p)
	sig := ed25519.Sign(s.key, digest[:])
	return hex.EncodeToString(sig), nil
}

// PublicKeyHex returns the verifying key in the form relayer configs carry.
func (s *Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.pub)
}
