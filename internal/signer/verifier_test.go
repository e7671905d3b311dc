package signer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyPaymentSignature(t *testing.T) {
	s, err := NewSigner(testSeedHex(t))
	assert.NoError(t, err)

	payment := &Payment{
		Owner:    "owner-wallet",
		VaultID:  3,
		Merchant: "merchant-grocer",
		Amount:   12_500_000,
		Nonce:    42,
		IssuedAt: 1756400000,
	}

	sig, err := s.SignPayment(payment)
	assert.NoError(t, err)

	assert.NoError(t, VerifyPaymentSignature(payment, sig, s.PublicKeyHex()))

	// Wrong signer
	other, _ := NewSigner(testSeedHex(t))
	assert.Error(t, VerifyPaymentSignature(payment, sig, other.PublicKeyHex()))

	// Tampered amount
	tampered := *payment
	tampered.Amount = 12_500_001
	assert.Error(t, VerifyPaymentSignature(&tampered, sig, s.PublicKeyHex()))
}

func TestVerifyAgainstSigners(t *testing.T) {
	s, _ := NewSigner(testSeedHex(t))
	other, _ := NewSigner(testSeedHex(t))

	payment := &Payment{Owner: "owner-wallet", VaultID: 1, Merchant: "m", Amount: 1}
	sig, _ := s.SignPayment(payment)

	// Empty list disables checks
	assert.NoError(t, VerifyAgainstSigners(payment, sig, nil))

	// Match anywhere in the list passes
	keys := []string{other.PublicKeyHex(), s.PublicKeyHex()}
	assert.NoError(t, VerifyAgainstSigners(payment, sig, keys))

	// No match fails
	assert.Error(t, VerifyAgainstSigners(payment, sig, []string{other.PublicKeyHex()}))
}
