package signer

import (
	"crypto/sha256"
	"encoding/binary"
)

// Domain separation prefix so a payment digest can never collide with
// another signed structure in the wider system.
const paymentDomainPrefix = "cresca-vault:payment:v1"

// Payment is the canonical structure a terminal countersigns before the
// relayer forwards an authorization to the gateway.
type Payment struct {
	Owner    string
	VaultID  uint64
	Merchant string
	Amount   uint64
	Nonce    uint64
	IssuedAt int64 // unix seconds
}

// DigestPayment produces the 32-byte digest that gets signed. Encoding is
// fixed-order with length-prefixed strings, so two distinct payments can
// never serialize to the same bytes.
func DigestPayment(p *Payment) [32]byte {
	h := sha256.New()
	h.Write([]byte(paymentDomainPrefix))

	writeString(h.Write, p.Owner)
	writeUint64(h.Write, p.VaultID)
	writeString(h.Write, p.Merchant)
	writeUint64(h.Write, p.Amount)
	writeUint64(h.Write, p.Nonce)
	writeUint64(h.Write, uint64(p.IssuedAt))

	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

func writeString(w func([]byte) (int, error), s string) {
	writeUint64(w, uint64(len(s)))
	w([]byte(s))
}

func writeUint64(w func([]byte) (int, error), v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	w(buf[:])
}
