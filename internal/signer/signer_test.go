package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testSeedHex(t testing.TB) string {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return hex.EncodeToString(seed)
}

func TestSigner_SignPayment(t *testing.T) {
	s, err := NewSigner(testSeedHex(t))
	assert.NoError(t, err)

	payment := &Payment{
		Owner:    "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		VaultID:  1,
		Merchant: "merchant-cafe",
		Amount:   50_000_000,
		Nonce:    7,
		IssuedAt: 1756400000,
	}

	sig, err := s.SignPayment(payment)
	assert.NoError(t, err)
	assert.Equal(t, ed25519.SignatureSize*2, len(sig))
}

func TestNewSignerRejectsBadSeeds(t *testing.T) {
	_, err := NewSigner("")
	assert.Error(t, err)

	_, err = NewSigner("zzzz")
	assert.Error(t, err)

	_, err = NewSigner("abcd") // too short
	assert.Error(t, err)
}

func TestDigestPaymentFieldBoundaries(t *testing.T) {
	// Shifting bytes between adjacent string fields must change the digest.
	a := DigestPayment(&Payment{Owner: "ab", Merchant: "c"})
	b := DigestPayment(&Payment{Owner: "a", Merchant: "bc"})
	assert.NotEqual(t, a, b)
}

func BenchmarkSignPayment(b *testing.B) {
	s, _ := NewSigner(testSeedHex(b))
	payment := &Payment{
		Owner:    "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		VaultID:  1,
		Merchant: "merchant-cafe",
		Amount:   50_000_000,
		Nonce:    7,
		IssuedAt: 1756400000,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.SignPayment(payment)
	}
}
