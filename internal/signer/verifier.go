package signer

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// VerifyPaymentSignature checks an ed25519 countersignature against the
// canonical payment digest. pubKeyHex comes from the relayer's configured
// allowed signer list.
func VerifyPaymentSignature(p *Payment, sigHex, pubKeyHex string) error {
	if p == nil {
		return fmt.Errorf("payment is required")
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %v", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("signature must be %d bytes, got %d", ed25519.SignatureSize, len(sig))
	}
	pub, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return fmt.Errorf("invalid public key encoding: %v", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}

	digest := DigestPayment(p)
	if !ed25519.Verify(ed25519.PublicKey(pub), digest[:], sig) {
		return fmt.Errorf("signature does not match signer %s", pubKeyHex)
	}
	return nil
}

// VerifyAgainstSigners accepts the signature if any configured signer key
// verifies it. An empty signer list means signature checks are disabled for
// the relayer.
func VerifyAgainstSigners(p *Payment, sigHex string, signerKeys []string) error {
	if len(signerKeys) == 0 {
		return nil
	}
	var lastErr error
	for _, key := range signerKeys {
		if err := VerifyPaymentSignature(p, sigHex, key); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("no configured signer matches: %v", lastErr)
}
